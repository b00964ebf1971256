// Package compare checks a decision report against observed physical
// reality: which planned tightenings the live schema already enforces,
// which would actually change it, and which cannot be verified from the
// available evidence.
package compare

import (
	"fmt"

	"github.com/tordrt/schematighten/internal/evidence"
	"github.com/tordrt/schematighten/internal/policy"
)

// Status classifies one planned tightening against the live schema.
type Status string

const (
	// StatusAlreadyEnforced means the live schema already carries the
	// constraint; emitting it is a no-op with audit value.
	StatusAlreadyEnforced Status = "already-enforced"

	// StatusPending means the tightening would change the live schema.
	StatusPending Status = "pending"

	// StatusUnverifiable means no physical evidence covers the subject.
	StatusUnverifiable Status = "unverifiable"
)

// Finding is the drift result for one tightening decision.
type Finding struct {
	Subject policy.Subject `json:"subject"`
	Action  policy.Action  `json:"action"`
	Status  Status         `json:"status"`
	Detail  string         `json:"detail,omitempty"`
}

// Report compares every tightening decision in the report against the
// evidence profile's physical signals. Skip decisions carry no drift and
// are omitted. Findings come back in report order.
func Report(rep *policy.Report, prof *evidence.Profile) []Finding {
	if prof == nil {
		prof = evidence.NewProfile()
	}

	var findings []Finding
	for i := range rep.Decisions {
		d := &rep.Decisions[i]
		if d.Action == policy.ActionSkip {
			continue
		}
		findings = append(findings, classify(d, prof))
	}
	return findings
}

func classify(d *policy.Decision, prof *evidence.Profile) Finding {
	f := Finding{Subject: d.Subject, Action: d.Action}

	switch d.Subject.Kind {
	case policy.SubjectColumnNullability:
		facts, ok := prof.Column(d.Subject.Entity, d.Subject.Attribute)
		switch {
		case !ok || !facts.NotNull.Known:
			f.Status = StatusUnverifiable
			f.Detail = "no physical evidence for the column"
		case facts.NotNull.Value:
			f.Status = StatusAlreadyEnforced
			f.Detail = "column is already NOT NULL"
		default:
			f.Status = StatusPending
			f.Detail = "column is nullable in the live schema"
		}
	case policy.SubjectUniqueIndex:
		// Duplicate-free evidence shows the index can be created, not that
		// it exists; creation state is not part of the evidence model.
		f.Status = StatusPending
		f.Detail = fmt.Sprintf("unique index over %d column(s) planned", len(d.Subject.Columns))
	case policy.SubjectForeignKey, policy.SubjectPlatformIndex:
		f.Status = StatusUnverifiable
		f.Detail = "constraint presence is not part of the evidence model"
	default:
		f.Status = StatusUnverifiable
	}
	return f
}

// Summary tallies findings by status.
type Summary struct {
	AlreadyEnforced int `json:"already_enforced"`
	Pending         int `json:"pending"`
	Unverifiable    int `json:"unverifiable"`
}

// Summarize tallies a finding list.
func Summarize(findings []Finding) Summary {
	var s Summary
	for _, f := range findings {
		switch f.Status {
		case StatusAlreadyEnforced:
			s.AlreadyEnforced++
		case StatusPending:
			s.Pending++
		case StatusUnverifiable:
			s.Unverifiable++
		}
	}
	return s
}
