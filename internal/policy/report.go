package policy

// Action is the decided disposition of one tightenable artifact.
type Action string

const (
	ActionSkip    Action = "skip"
	ActionTighten Action = "tighten"

	// ActionTightenWithRemediation tightens only after a data-remediation
	// step the translator must schedule first. It is the single path that
	// tightens without clean evidence and only Aggressive mode produces it.
	ActionTightenWithRemediation Action = "tighten-with-remediation"
)

// SubjectKind classifies what a decision is about.
type SubjectKind string

const (
	SubjectColumnNullability SubjectKind = "column-nullability"
	SubjectForeignKey        SubjectKind = "foreign-key"
	SubjectUniqueIndex       SubjectKind = "unique-index"
	SubjectPlatformIndex     SubjectKind = "platform-index"
)

// Subject identifies the artifact a decision applies to.
type Subject struct {
	Kind      SubjectKind `json:"kind"`
	Entity    string      `json:"entity"`
	Attribute string      `json:"attribute,omitempty"`
	Index     string      `json:"index,omitempty"`
	Columns   []string    `json:"columns,omitempty"`
}

// Decision is the unit of output: one subject, the decided action, and the
// full rationale trail that produced it.
type Decision struct {
	Subject Subject      `json:"subject"`
	Action  Action       `json:"action"`
	Trail   []TraceEntry `json:"trail"`
}

// Warnings returns the warning-level trail entries, if any.
func (d *Decision) Warnings() []TraceEntry {
	var out []TraceEntry
	for _, e := range d.Trail {
		if e.Outcome == OutcomeWarning {
			out = append(out, e)
		}
	}
	return out
}

// Report is the complete output of one policy evaluation: every decision in
// deterministic order plus a frozen snapshot of the configuration that
// produced them. Constructed once, never mutated afterwards.
type Report struct {
	Config    Config     `json:"config"`
	Decisions []Decision `json:"decisions"`
}

// Find returns the decision for the given subject identity, or nil.
// Attribute subjects are matched by attribute name, index subjects by index
// name.
func (r *Report) Find(kind SubjectKind, entity, name string) *Decision {
	for i := range r.Decisions {
		d := &r.Decisions[i]
		if d.Subject.Kind != kind || d.Subject.Entity != entity {
			continue
		}
		switch kind {
		case SubjectColumnNullability, SubjectForeignKey:
			if d.Subject.Attribute == name {
				return d
			}
		case SubjectUniqueIndex, SubjectPlatformIndex:
			if d.Subject.Index == name {
				return d
			}
		}
	}
	return nil
}

// Summary counts decisions by action.
type Summary struct {
	Tighten     int `json:"tighten"`
	Skip        int `json:"skip"`
	Remediation int `json:"remediation"`
	Warnings    int `json:"warnings"`
}

// Summarize tallies the report.
func (r *Report) Summarize() Summary {
	var s Summary
	for i := range r.Decisions {
		switch r.Decisions[i].Action {
		case ActionTighten:
			s.Tighten++
		case ActionSkip:
			s.Skip++
		case ActionTightenWithRemediation:
			s.Remediation++
		}
		s.Warnings += len(r.Decisions[i].Warnings())
	}
	return s
}
