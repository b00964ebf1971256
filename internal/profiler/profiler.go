// Package profiler measures tightening evidence against a live database:
// row counts, null counts, duplicate counts for uniqueness candidates,
// orphan counts for reference candidates, and the physical state of each
// column. PostgreSQL, MySQL and SQLite are supported.
//
// A table or column that does not exist physically yields absent evidence,
// never an error; the policy engine treats absence as its own state.
package profiler

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tordrt/schematighten/internal/evidence"
	"github.com/tordrt/schematighten/internal/model"
)

// Options configures a profiling run.
type Options struct {
	// Entities limits profiling to the named entities. Empty means all.
	Entities []string

	// Concurrency caps how many entities are profiled simultaneously, to
	// protect the source database. Zero means the default of 4.
	Concurrency int
}

const defaultConcurrency = 4

// physical is the observed physical state of one column.
type physical struct {
	notNull    evidence.Flag
	hasDefault evidence.Flag
	computed   evidence.Flag
}

// dialect abstracts what differs between databases: identifier rendering,
// existence checks, physical metadata, and running a single-value count.
type dialect interface {
	tableExists(ctx context.Context, ent *model.Entity) (bool, error)
	physicalColumns(ctx context.Context, ent *model.Entity) (map[string]physical, error)
	count(ctx context.Context, query string) (int64, error)
	table(ent *model.Entity) string
	quote(ident string) string
}

// Profiler gathers an evidence profile for a logical model.
type Profiler struct {
	d dialect
}

// Profile measures evidence for every selected entity. Entities are
// profiled concurrently up to the configured cap; results are merged in
// model order so the profile is independent of scheduling.
func (p *Profiler) Profile(ctx context.Context, m *model.Model, opts *Options) (*evidence.Profile, error) {
	if opts == nil {
		opts = &Options{}
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	selected := selectEntities(m, opts.Entities)
	results := make([]entityFacts, len(selected))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, ent := range selected {
		i, ent := i, ent
		g.Go(func() error {
			facts, err := p.profileEntity(gctx, ent, m)
			if err != nil {
				return fmt.Errorf("failed to profile entity %s: %w", ent.Name, err)
			}
			results[i] = facts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	prof := evidence.NewProfile()
	for i, ent := range selected {
		for _, attr := range ent.Attributes {
			if facts, ok := results[i].columns[attr.Name]; ok {
				prof.SetColumn(ent.Name, attr.Name, facts)
			}
		}
		for _, idx := range ent.Indexes {
			if facts, ok := results[i].groups[idx.Name]; ok {
				prof.SetGroup(ent.Name, idx.Name, facts)
			}
		}
	}
	return prof, nil
}

type entityFacts struct {
	columns map[string]evidence.ColumnFacts
	groups  map[string]evidence.GroupFacts
}

func newEntityFacts() entityFacts {
	return entityFacts{
		columns: make(map[string]evidence.ColumnFacts),
		groups:  make(map[string]evidence.GroupFacts),
	}
}

func (p *Profiler) profileEntity(ctx context.Context, ent *model.Entity, m *model.Model) (entityFacts, error) {
	facts := newEntityFacts()

	exists, err := p.d.tableExists(ctx, ent)
	if err != nil {
		return facts, fmt.Errorf("failed to check table existence: %w", err)
	}
	if !exists {
		// No physical table, no evidence.
		return facts, nil
	}

	phys, err := p.d.physicalColumns(ctx, ent)
	if err != nil {
		return facts, fmt.Errorf("failed to read physical columns: %w", err)
	}

	tbl := p.d.table(ent)
	rowCount, err := p.d.count(ctx, "SELECT COUNT(*) FROM "+tbl)
	if err != nil {
		return facts, fmt.Errorf("failed to count rows: %w", err)
	}
	rows := evidence.Of(rowCount)

	for _, attr := range ent.Attributes {
		pc, present := phys[attr.Name]
		if !present {
			// Declared but not yet physical: nothing measurable.
			continue
		}

		cf := evidence.ColumnFacts{
			RowCount:   rows,
			NotNull:    pc.notNull,
			HasDefault: pc.hasDefault,
			Computed:   pc.computed,
		}
		col := p.d.quote(attr.Name)

		nulls, err := p.d.count(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s IS NULL", tbl, col))
		if err != nil {
			return facts, fmt.Errorf("failed to count nulls for %s: %w", attr.Name, err)
		}
		cf.NullCount = evidence.Of(nulls)

		if attr.Unique || inSingleColumnUniqueIndex(ent, attr.Name) {
			nonNull, err := p.d.count(ctx, fmt.Sprintf("SELECT COUNT(%s) FROM %s", col, tbl))
			if err != nil {
				return facts, fmt.Errorf("failed to count values for %s: %w", attr.Name, err)
			}
			distinct, err := p.d.count(ctx, fmt.Sprintf("SELECT COUNT(DISTINCT %s) FROM %s", col, tbl))
			if err != nil {
				return facts, fmt.Errorf("failed to count distinct values for %s: %w", attr.Name, err)
			}
			cf.DistinctCount = evidence.Of(distinct)
			cf.DuplicateCount = evidence.Of(nonNull - distinct)
		}

		if attr.Reference != nil {
			orphans, ok, err := p.countOrphans(ctx, ent, &attr, m, tbl, col)
			if err != nil {
				return facts, fmt.Errorf("failed to count orphans for %s: %w", attr.Name, err)
			}
			if ok {
				cf.OrphanCount = evidence.Of(orphans)
			}
		}

		facts.columns[attr.Name] = cf
	}

	for _, idx := range ent.Indexes {
		if !idx.Unique || len(idx.Columns) < 2 {
			continue
		}
		if !allPresent(phys, idx.Columns) {
			continue
		}
		excess, err := p.countGroupDuplicates(ctx, tbl, idx.Columns)
		if err != nil {
			return facts, fmt.Errorf("failed to count duplicates for index %s: %w", idx.Name, err)
		}
		facts.groups[idx.Name] = evidence.GroupFacts{
			RowCount:       rows,
			DuplicateCount: evidence.Of(excess),
		}
	}

	return facts, nil
}

// countOrphans counts source rows whose reference value has no matching
// target row. A target in another catalog cannot be reached over the same
// connection, so its orphan count stays unknown.
func (p *Profiler) countOrphans(ctx context.Context, ent *model.Entity, attr *model.Attribute, m *model.Model, tbl, col string) (int64, bool, error) {
	target := m.Entity(attr.Reference.Entity)
	if target == nil || target.Catalog != ent.Catalog {
		return 0, false, nil
	}
	exists, err := p.d.tableExists(ctx, target)
	if err != nil || !exists {
		return 0, false, err
	}

	targetTbl := p.d.table(target)
	targetCol := p.d.quote(attr.Reference.Attribute)
	query := fmt.Sprintf(
		"SELECT COUNT(*) FROM %s s LEFT JOIN %s t ON s.%s = t.%s WHERE s.%s IS NOT NULL AND t.%s IS NULL",
		tbl, targetTbl, col, targetCol, col, targetCol)
	n, err := p.d.count(ctx, query)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// countGroupDuplicates measures excess rows over a column combination: for
// each combination appearing more than once, every row beyond the first
// counts once.
func (p *Profiler) countGroupDuplicates(ctx context.Context, tbl string, columns []string) (int64, error) {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = p.d.quote(c)
	}
	cols := strings.Join(quoted, ", ")
	query := fmt.Sprintf(
		"SELECT COALESCE(SUM(n - 1), 0) FROM (SELECT COUNT(*) AS n FROM %s GROUP BY %s HAVING COUNT(*) > 1) d",
		tbl, cols)
	return p.d.count(ctx, query)
}

func selectEntities(m *model.Model, names []string) []*model.Entity {
	if len(names) == 0 {
		out := make([]*model.Entity, len(m.Entities))
		for i := range m.Entities {
			out[i] = &m.Entities[i]
		}
		return out
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []*model.Entity
	for i := range m.Entities {
		if want[m.Entities[i].Name] {
			out = append(out, &m.Entities[i])
		}
	}
	return out
}

func inSingleColumnUniqueIndex(ent *model.Entity, attrName string) bool {
	for _, idx := range ent.Indexes {
		if idx.Unique && len(idx.Columns) == 1 && idx.Columns[0] == attrName {
			return true
		}
	}
	return false
}

func allPresent(phys map[string]physical, columns []string) bool {
	for _, c := range columns {
		if _, ok := phys[c]; !ok {
			return false
		}
	}
	return true
}
