// Package evidence holds the empirical signals a tightening decision is
// justified by: counts measured against live data and physical column state.
//
// Every signal is optional. A missing measurement is a distinct state from a
// measurement of zero, so counts and flags carry an explicit Known marker
// (the same valid-flag convention database/sql uses for nullable scans)
// rather than a sentinel value.
package evidence

// Count is an optional non-negative observation. The zero value is an
// unknown count.
type Count struct {
	Known bool
	Value int64
}

// Of returns a known count.
func Of(v int64) Count {
	return Count{Known: true, Value: v}
}

// Flag is an optional boolean observation. The zero value is unknown.
type Flag struct {
	Known bool
	Value bool
}

// FlagOf returns a known flag.
func FlagOf(v bool) Flag {
	return Flag{Known: true, Value: v}
}

// ColumnFacts carries the per-attribute signals.
type ColumnFacts struct {
	RowCount      Count
	NullCount     Count
	DistinctCount Count

	// DuplicateCount is the number of excess rows: for each value appearing
	// more than once, every row beyond the first counts once. NULLs do not
	// participate.
	DuplicateCount Count

	// OrphanCount is the number of rows whose reference value has no
	// matching target row. Only meaningful for reference attributes.
	OrphanCount Count

	// Physical reality of the live column.
	NotNull    Flag
	HasDefault Flag
	Computed   Flag
}

// GroupFacts carries the signals for a composite index candidate, measured
// over the combination of its columns. DuplicateCount uses the same
// excess-row counting as ColumnFacts.
type GroupFacts struct {
	RowCount       Count
	DuplicateCount Count
}

// ColumnKey identifies an attribute's evidence.
type ColumnKey struct {
	Entity    string
	Attribute string
}

// GroupKey identifies a composite index candidate's evidence.
type GroupKey struct {
	Entity string
	Index  string
}

// Profile is the full evidence set for one profiling run, keyed by
// attribute and index-group identity. An absent key means no evidence is
// available for that subject.
type Profile struct {
	columns map[ColumnKey]ColumnFacts
	groups  map[GroupKey]GroupFacts
}

// NewProfile returns an empty profile.
func NewProfile() *Profile {
	return &Profile{
		columns: make(map[ColumnKey]ColumnFacts),
		groups:  make(map[GroupKey]GroupFacts),
	}
}

// SetColumn records the facts for one attribute.
func (p *Profile) SetColumn(entity, attribute string, facts ColumnFacts) {
	p.columns[ColumnKey{Entity: entity, Attribute: attribute}] = facts
}

// SetGroup records the facts for one composite index candidate.
func (p *Profile) SetGroup(entity, index string, facts GroupFacts) {
	p.groups[GroupKey{Entity: entity, Index: index}] = facts
}

// Column looks up the facts for an attribute. The second return reports
// whether any evidence exists.
func (p *Profile) Column(entity, attribute string) (ColumnFacts, bool) {
	f, ok := p.columns[ColumnKey{Entity: entity, Attribute: attribute}]
	return f, ok
}

// Group looks up the facts for a composite index candidate.
func (p *Profile) Group(entity, index string) (GroupFacts, bool) {
	f, ok := p.groups[GroupKey{Entity: entity, Index: index}]
	return f, ok
}

// Len reports how many column subjects carry evidence.
func (p *Profile) Len() int {
	return len(p.columns)
}
