package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/schematighten/internal/evidence"
	"github.com/tordrt/schematighten/internal/policy"
)

func columnDecision(entity, attr string, action policy.Action) policy.Decision {
	return policy.Decision{
		Subject: policy.Subject{Kind: policy.SubjectColumnNullability, Entity: entity, Attribute: attr},
		Action:  action,
	}
}

func TestReportOmitsSkips(t *testing.T) {
	rep := &policy.Report{Decisions: []policy.Decision{
		columnDecision("users", "email", policy.ActionSkip),
	}}
	assert.Empty(t, Report(rep, nil))
}

func TestReportClassifiesColumnNullability(t *testing.T) {
	prof := evidence.NewProfile()
	prof.SetColumn("users", "enforced", evidence.ColumnFacts{NotNull: evidence.FlagOf(true)})
	prof.SetColumn("users", "nullable", evidence.ColumnFacts{NotNull: evidence.FlagOf(false)})

	rep := &policy.Report{Decisions: []policy.Decision{
		columnDecision("users", "enforced", policy.ActionTighten),
		columnDecision("users", "nullable", policy.ActionTighten),
		columnDecision("users", "unseen", policy.ActionTighten),
	}}

	findings := Report(rep, prof)
	require.Len(t, findings, 3)
	assert.Equal(t, StatusAlreadyEnforced, findings[0].Status)
	assert.Equal(t, StatusPending, findings[1].Status)
	assert.Equal(t, StatusUnverifiable, findings[2].Status)
}

func TestReportClassifiesIndexAndForeignKey(t *testing.T) {
	rep := &policy.Report{Decisions: []policy.Decision{
		{
			Subject: policy.Subject{Kind: policy.SubjectUniqueIndex, Entity: "users", Index: "uq_email", Columns: []string{"email"}},
			Action:  policy.ActionTighten,
		},
		{
			Subject: policy.Subject{Kind: policy.SubjectForeignKey, Entity: "orders", Attribute: "user_id"},
			Action:  policy.ActionTighten,
		},
	}}

	findings := Report(rep, nil)
	require.Len(t, findings, 2)
	assert.Equal(t, StatusPending, findings[0].Status)
	assert.Equal(t, StatusUnverifiable, findings[1].Status)
}

func TestSummarize(t *testing.T) {
	findings := []Finding{
		{Status: StatusAlreadyEnforced},
		{Status: StatusPending},
		{Status: StatusPending},
		{Status: StatusUnverifiable},
	}
	s := Summarize(findings)
	assert.Equal(t, Summary{AlreadyEnforced: 1, Pending: 2, Unverifiable: 1}, s)
}
