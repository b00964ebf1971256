// Package policy decides, column by column and constraint by constraint,
// whether a physical schema should be tightened: nullability enforced,
// foreign keys materialized, unique indexes enabled.
//
// Decide is a pure function over three borrowed inputs — the validated
// logical model, an evidence profile measured against live data, and an
// immutable configuration — and produces a decision report in which every
// decision carries an ordered rationale trail. Identical inputs produce a
// byte-identical report, trails included; the report is an audit artifact,
// not just a plan.
//
// The engine never enforces a constraint that observed data would violate:
// dirty evidence either skips the subject or, in aggressive mode only,
// tightens behind an explicit remediation step.
package policy

import (
	"fmt"

	"github.com/tordrt/schematighten/internal/evidence"
	"github.com/tordrt/schematighten/internal/model"
)

// Decide evaluates the tightening policy for every tightenable artifact in
// the model and returns the decision report.
//
// The model must already be validated (model.Validate); Decide assumes one
// identifier per entity and resolvable references, and fails loudly rather
// than guess if that contract is broken. A nil profile means no evidence at
// all, which is legal and degrades every evidence-gated rule to a skip.
// An invalid configuration is rejected before any decision is attempted.
func Decide(m *model.Model, prof *evidence.Profile, cfg Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if prof == nil {
		prof = evidence.NewProfile()
	}

	rep := &Report{Config: cfg}
	for i := range m.Entities {
		decideEntity(rep, &m.Entities[i], m, prof, cfg)
	}
	return rep, nil
}

// decideEntity runs the two phases for one entity: every single-column
// nullability decision first, then the foreign-key and index decisions that
// build on them. Entities are independent of one another.
func decideEntity(rep *Report, ent *model.Entity, m *model.Model, prof *evidence.Profile, cfg Config) {
	for i := range ent.Attributes {
		attr := &ent.Attributes[i]
		facts, _ := prof.Column(ent.Name, attr.Name)
		rep.Decisions = append(rep.Decisions, decideColumn(ent, attr, facts, cfg))
	}

	for i := range ent.Attributes {
		attr := &ent.Attributes[i]
		if attr.Reference == nil {
			continue
		}
		facts, _ := prof.Column(ent.Name, attr.Name)
		target := m.Entity(attr.Reference.Entity)
		if target == nil {
			// The validator guarantees resolvable references; a miss here is
			// a broken caller contract, not a decidable condition.
			panic(fmt.Sprintf("policy: reference %s.%s targets unknown entity %q", ent.Name, attr.Name, attr.Reference.Entity))
		}
		rep.Decisions = append(rep.Decisions, decideForeignKey(ent, attr, target, facts, cfg))
	}

	for i := range ent.Indexes {
		idx := &ent.Indexes[i]
		switch {
		case idx.Platform:
			rep.Decisions = append(rep.Decisions, decidePlatformIndex(ent, idx, cfg))
		case idx.Unique:
			rep.Decisions = append(rep.Decisions, decideUniqueIndex(ent, idx, prof, cfg))
		}
	}
}

// decideColumn runs the nullability rule chain for one attribute. Rules are
// evaluated highest priority first; evaluation stops at the first rule that
// fires a tightening, and every rule considered up to that point is
// recorded in the trail.
func decideColumn(ent *model.Entity, attr *model.Attribute, facts evidence.ColumnFacts, cfg Config) Decision {
	subject := Subject{Kind: SubjectColumnNullability, Entity: ent.Name, Attribute: attr.Name}
	var trail []TraceEntry

	// Rule 1: identifier columns are always NOT NULL, in every mode.
	if attr.Identifier {
		trail = append(trail, TraceEntry{
			Rule:    RuleIdentifier,
			Outcome: OutcomeTighten,
			Note:    "primary-key columns are always NOT NULL",
		})
		return Decision{Subject: subject, Action: ActionTighten, Trail: trail}
	}
	trail = append(trail, notApplicable(RuleIdentifier, ""))

	// Rule 2: declaring a weaker constraint than the live schema already
	// enforces is a no-op with audit value. No mode can contradict this.
	if facts.NotNull.Known && facts.NotNull.Value {
		trail = append(trail, TraceEntry{
			Rule:     RulePhysicalReality,
			Evidence: "is_physically_not_null=true",
			Outcome:  OutcomeTighten,
			Note:     "live column is already NOT NULL",
		})
		return Decision{Subject: subject, Action: ActionTighten, Trail: trail}
	}
	trail = append(trail, notApplicable(RulePhysicalReality, flagString("is_physically_not_null", facts.NotNull)))

	// Rule 3: mode gate.
	if cfg.Mode == ModeCautious {
		trail = append(trail, TraceEntry{
			Rule:    RuleModeGate,
			Outcome: OutcomeSkip,
			Note:    "cautious mode disables evidence-based tightening",
		})
		return Decision{Subject: subject, Action: ActionSkip, Trail: trail}
	}
	trail = append(trail, notApplicable(RuleModeGate, ""))

	nullsDirty := facts.NullCount.Known && !withinBudget(facts.NullCount, facts.RowCount, cfg.NullBudgetEpsilon)
	nullsClean := facts.NullCount.Known && withinBudget(facts.NullCount, facts.RowCount, cfg.NullBudgetEpsilon)

	// Model/evidence conflict: the model says mandatory, the data disagrees.
	// Surfaced as a warning, never fatal; the evidence-gated rules below
	// cannot fire over it.
	if attr.Mandatory && nullsDirty {
		trail = append(trail, TraceEntry{
			Rule:     RuleModelEvidenceConflict,
			Evidence: countPair(facts.NullCount, facts.RowCount),
			Outcome:  OutcomeWarning,
			Note:     fmt.Sprintf("declared mandatory but nulls observed: %d", facts.NullCount.Value),
		})
	}

	// Rule 4: clean-unique. Known-dirty nulls block the tightening since
	// enforcing NOT NULL would violate observed data.
	if attr.Unique {
		ev := countTriple(facts.DuplicateCount, facts.NullCount, facts.RowCount)
		if facts.DuplicateCount.Known && withinBudget(facts.DuplicateCount, facts.RowCount, cfg.NullBudgetEpsilon) && !nullsDirty {
			trail = append(trail, TraceEntry{
				Rule:     RuleCleanUnique,
				Evidence: ev,
				Outcome:  OutcomeTighten,
				Note:     "declared unique and duplicate-free in live data",
			})
			return Decision{Subject: subject, Action: ActionTighten, Trail: trail}
		}
		trail = append(trail, notApplicable(RuleCleanUnique, ev))
	} else {
		trail = append(trail, notApplicable(RuleCleanUnique, ""))
	}

	// Rule 5: mandatory with a default and no observed nulls.
	if attr.Mandatory && facts.HasDefault.Known && facts.HasDefault.Value {
		ev := "has_default=true " + countPair(facts.NullCount, facts.RowCount)
		if nullsClean {
			trail = append(trail, TraceEntry{
				Rule:     RuleMandatoryWithDefault,
				Evidence: ev,
				Outcome:  OutcomeTighten,
				Note:     "declared mandatory, default present, no observed nulls",
			})
			return Decision{Subject: subject, Action: ActionTighten, Trail: trail}
		}
		trail = append(trail, notApplicable(RuleMandatoryWithDefault, ev))
	} else {
		trail = append(trail, notApplicable(RuleMandatoryWithDefault, flagString("has_default", facts.HasDefault)))
	}

	// Rule 6: enforced reference. Orphan evidence must be exactly zero; the
	// null budget applies to null_count only, never to orphans. The paired
	// foreign-key decision is evaluated with the same orphan evidence in
	// phase two.
	if attr.Reference != nil {
		ev := fmt.Sprintf("%s %s", countName("orphan_count", facts.OrphanCount), countPair(facts.NullCount, facts.RowCount))
		orphansClean := facts.OrphanCount.Known && facts.OrphanCount.Value == 0
		if orphansClean && nullsClean {
			trail = append(trail, TraceEntry{
				Rule:     RuleEnforcedReference,
				Evidence: ev,
				Outcome:  OutcomeTighten,
				Note:     "reference is orphan-free and null-free in live data",
			})
			return Decision{Subject: subject, Action: ActionTighten, Trail: trail}
		}
		trail = append(trail, notApplicable(RuleEnforcedReference, ev))
	} else {
		trail = append(trail, notApplicable(RuleEnforcedReference, ""))
	}

	// Rule 8: aggressive fallback. Only path that tightens without clean
	// evidence, always explicit, and only where the model actually wants
	// the constraint.
	if cfg.Mode == ModeAggressive && attr.Mandatory {
		trail = append(trail, TraceEntry{
			Rule:     RuleAggressiveFallback,
			Evidence: countPair(facts.NullCount, facts.RowCount),
			Outcome:  OutcomeRemediate,
			Note:     "aggressive mode schedules remediation before tightening",
		})
		return Decision{Subject: subject, Action: ActionTightenWithRemediation, Trail: trail}
	}
	trail = append(trail, notApplicable(RuleAggressiveFallback, ""))

	// Rule 9: nothing fired; name what came closest.
	ev, note := nearestMiss(attr, facts, cfg)
	trail = append(trail, TraceEntry{Rule: RuleDefault, Evidence: ev, Outcome: OutcomeSkip, Note: note})
	return Decision{Subject: subject, Action: ActionSkip, Trail: trail}
}

// decideForeignKey evaluates materialization of the candidate foreign key
// behind a reference attribute. Orphan evidence is the gate: a foreign key
// is never created over observed orphans, in any mode, except behind an
// aggressive remediation step.
func decideForeignKey(ent *model.Entity, attr *model.Attribute, target *model.Entity, facts evidence.ColumnFacts, cfg Config) Decision {
	subject := Subject{Kind: SubjectForeignKey, Entity: ent.Name, Attribute: attr.Name}
	var trail []TraceEntry

	// Cross-schema/cross-catalog references are warning-only unless the
	// matching toggle opts in. Evaluated once per reference, before any
	// other foreign-key rule.
	if ent.Catalog != target.Catalog && !cfg.AllowCrossCatalog {
		trail = append(trail, TraceEntry{
			Rule:     RuleCrossBoundary,
			Evidence: fmt.Sprintf("source_catalog=%q target_catalog=%q", ent.Catalog, target.Catalog),
			Outcome:  OutcomeWarning,
			Note:     "cross-catalog reference excluded from foreign-key materialization",
		})
		trail = append(trail, TraceEntry{Rule: RuleDefault, Outcome: OutcomeSkip, Note: "cross-catalog reference"})
		return Decision{Subject: subject, Action: ActionSkip, Trail: trail}
	}
	if ent.Schema != target.Schema && !cfg.AllowCrossSchema {
		trail = append(trail, TraceEntry{
			Rule:     RuleCrossBoundary,
			Evidence: fmt.Sprintf("source_schema=%q target_schema=%q", ent.Schema, target.Schema),
			Outcome:  OutcomeWarning,
			Note:     "cross-schema reference excluded from foreign-key materialization",
		})
		trail = append(trail, TraceEntry{Rule: RuleDefault, Outcome: OutcomeSkip, Note: "cross-schema reference"})
		return Decision{Subject: subject, Action: ActionSkip, Trail: trail}
	}
	trail = append(trail, notApplicable(RuleCrossBoundary, ""))

	if !cfg.EnableForeignKeys {
		trail = append(trail, TraceEntry{
			Rule:    RuleForeignKeyToggle,
			Outcome: OutcomeSkip,
			Note:    "foreign-key creation disabled by configuration",
		})
		return Decision{Subject: subject, Action: ActionSkip, Trail: trail}
	}
	trail = append(trail, notApplicable(RuleForeignKeyToggle, ""))

	if cfg.Mode == ModeCautious {
		trail = append(trail, TraceEntry{
			Rule:    RuleModeGate,
			Outcome: OutcomeSkip,
			Note:    "cautious mode disables evidence-based tightening",
		})
		return Decision{Subject: subject, Action: ActionSkip, Trail: trail}
	}
	trail = append(trail, notApplicable(RuleModeGate, ""))

	// The orphan gate is strict: the null budget never excuses orphans, so a
	// foreign key is only ever created over a measured count of exactly zero.
	ev := fmt.Sprintf("%s %s", countName("orphan_count", facts.OrphanCount), countName("row_count", facts.RowCount))
	switch {
	case !facts.OrphanCount.Known:
		trail = append(trail, TraceEntry{Rule: RuleOrphanGate, Evidence: ev, Outcome: OutcomeSkip, Note: "evidence absent"})
		return Decision{Subject: subject, Action: ActionSkip, Trail: trail}
	case facts.OrphanCount.Value == 0:
		trail = append(trail, TraceEntry{
			Rule:     RuleOrphanGate,
			Evidence: ev,
			Outcome:  OutcomeTighten,
			Note:     "reference is orphan-free in live data",
		})
		return Decision{Subject: subject, Action: ActionTighten, Trail: trail}
	case cfg.Mode == ModeAggressive:
		trail = append(trail, TraceEntry{
			Rule:     RuleAggressiveFallback,
			Evidence: ev,
			Outcome:  OutcomeRemediate,
			Note:     fmt.Sprintf("orphans present: %d; remediation is a precondition of the constraint", facts.OrphanCount.Value),
		})
		return Decision{Subject: subject, Action: ActionTightenWithRemediation, Trail: trail}
	default:
		trail = append(trail, TraceEntry{
			Rule:     RuleOrphanGate,
			Evidence: ev,
			Outcome:  OutcomeSkip,
			Note:     fmt.Sprintf("orphans present: %d", facts.OrphanCount.Value),
		})
		return Decision{Subject: subject, Action: ActionSkip, Trail: trail}
	}
}

// decideUniqueIndex evaluates uniqueness enforcement for a declared unique
// index. A composite index needs duplicate-free evidence over the column
// combination; per-column evidence is never substituted.
func decideUniqueIndex(ent *model.Entity, idx *model.Index, prof *evidence.Profile, cfg Config) Decision {
	subject := Subject{Kind: SubjectUniqueIndex, Entity: ent.Name, Index: idx.Name, Columns: idx.Columns}
	var trail []TraceEntry

	if cfg.Mode == ModeCautious {
		trail = append(trail, TraceEntry{
			Rule:    RuleModeGate,
			Outcome: OutcomeSkip,
			Note:    "cautious mode disables evidence-based tightening",
		})
		return Decision{Subject: subject, Action: ActionSkip, Trail: trail}
	}
	trail = append(trail, notApplicable(RuleModeGate, ""))

	var dup, rows evidence.Count
	if len(idx.Columns) == 1 {
		facts, _ := prof.Column(ent.Name, idx.Columns[0])
		dup, rows = facts.DuplicateCount, facts.RowCount
	} else {
		group, ok := prof.Group(ent.Name, idx.Name)
		if !ok {
			// Per-column evidence may exist, but uniqueness of the
			// combination cannot be derived from it.
			if anyColumnDuplicateEvidence(ent, idx, prof) {
				trail = append(trail, TraceEntry{
					Rule:     RuleCompositeEvidence,
					Evidence: "per-column duplicate counts available",
					Outcome:  OutcomeWarning,
					Note:     "per-column uniqueness evidence cannot substitute for the column combination",
				})
			}
			trail = append(trail, TraceEntry{Rule: RuleDefault, Outcome: OutcomeSkip, Note: "evidence absent"})
			return Decision{Subject: subject, Action: ActionSkip, Trail: trail}
		}
		dup, rows = group.DuplicateCount, group.RowCount
	}

	ev := fmt.Sprintf("%s %s", countName("duplicate_count", dup), countName("row_count", rows))
	switch {
	case dup.Known && withinBudget(dup, rows, cfg.NullBudgetEpsilon):
		trail = append(trail, TraceEntry{
			Rule:     RuleCleanUnique,
			Evidence: ev,
			Outcome:  OutcomeTighten,
			Note:     "duplicate-free in live data",
		})
		return Decision{Subject: subject, Action: ActionTighten, Trail: trail}
	case dup.Known && cfg.Mode == ModeAggressive:
		trail = append(trail, TraceEntry{
			Rule:     RuleAggressiveFallback,
			Evidence: ev,
			Outcome:  OutcomeRemediate,
			Note:     fmt.Sprintf("duplicates present: %d; deduplication is a precondition of the index", dup.Value),
		})
		return Decision{Subject: subject, Action: ActionTightenWithRemediation, Trail: trail}
	case dup.Known:
		trail = append(trail, TraceEntry{
			Rule:     RuleCleanUnique,
			Evidence: ev,
			Outcome:  OutcomeSkip,
			Note:     fmt.Sprintf("duplicates present: %d", dup.Value),
		})
		return Decision{Subject: subject, Action: ActionSkip, Trail: trail}
	default:
		trail = append(trail, TraceEntry{Rule: RuleDefault, Evidence: ev, Outcome: OutcomeSkip, Note: "evidence absent"})
		return Decision{Subject: subject, Action: ActionSkip, Trail: trail}
	}
}

// decidePlatformIndex records the pass-through decision for a
// platform-generated index so the include_platform_indexes toggle leaves an
// audit trail. The nullability rule chain never consults it.
func decidePlatformIndex(ent *model.Entity, idx *model.Index, cfg Config) Decision {
	subject := Subject{Kind: SubjectPlatformIndex, Entity: ent.Name, Index: idx.Name, Columns: idx.Columns}
	action := ActionSkip
	outcome := OutcomeSkip
	note := "platform-generated indexes excluded by configuration"
	if cfg.IncludePlatformIndexes {
		action = ActionTighten
		outcome = OutcomeTighten
		note = "platform-generated indexes included by configuration"
	}
	return Decision{
		Subject: subject,
		Action:  action,
		Trail: []TraceEntry{{
			Rule:     RulePlatformIndexToggle,
			Evidence: fmt.Sprintf("include_platform_indexes=%t", cfg.IncludePlatformIndexes),
			Outcome:  outcome,
			Note:     note,
		}},
	}
}

// withinBudget reports whether a known count reads as zero under the null
// budget. A count exactly at row_count*epsilon is clean; one above is not.
// With an unknown row count the budget cannot be computed, so only a
// literal zero is clean.
func withinBudget(c, rows evidence.Count, epsilon float64) bool {
	if !c.Known {
		return false
	}
	if c.Value == 0 {
		return true
	}
	if !rows.Known {
		return false
	}
	return float64(c.Value) <= float64(rows.Value)*epsilon
}

// nearestMiss names the signal that came closest to permitting a
// tightening, for the default-skip rationale.
func nearestMiss(attr *model.Attribute, facts evidence.ColumnFacts, cfg Config) (ev, note string) {
	if attr.Reference != nil && facts.OrphanCount.Known && facts.OrphanCount.Value != 0 {
		return countName("orphan_count", facts.OrphanCount), fmt.Sprintf("orphans present: %d", facts.OrphanCount.Value)
	}
	if facts.NullCount.Known && !withinBudget(facts.NullCount, facts.RowCount, cfg.NullBudgetEpsilon) {
		return countName("null_count", facts.NullCount), fmt.Sprintf("nulls present: %d", facts.NullCount.Value)
	}
	if facts.DuplicateCount.Known && !withinBudget(facts.DuplicateCount, facts.RowCount, cfg.NullBudgetEpsilon) {
		return countName("duplicate_count", facts.DuplicateCount), fmt.Sprintf("duplicates present: %d", facts.DuplicateCount.Value)
	}
	if !attr.Mandatory && !attr.Unique && attr.Reference == nil {
		return "", "attribute declared nullable"
	}
	return "", "evidence absent"
}

func countName(name string, c evidence.Count) string {
	if !c.Known {
		return name + "=unknown"
	}
	return fmt.Sprintf("%s=%d", name, c.Value)
}

func countPair(nulls, rows evidence.Count) string {
	return fmt.Sprintf("%s %s", countName("null_count", nulls), countName("row_count", rows))
}

func countTriple(dup, nulls, rows evidence.Count) string {
	return fmt.Sprintf("%s %s %s", countName("duplicate_count", dup), countName("null_count", nulls), countName("row_count", rows))
}

func flagString(name string, f evidence.Flag) string {
	if !f.Known {
		return name + "=unknown"
	}
	return fmt.Sprintf("%s=%t", name, f.Value)
}

func anyColumnDuplicateEvidence(ent *model.Entity, idx *model.Index, prof *evidence.Profile) bool {
	for _, col := range idx.Columns {
		if facts, ok := prof.Column(ent.Name, col); ok && facts.DuplicateCount.Known {
			return true
		}
	}
	return false
}
