package formatter

import (
	"fmt"
	"strings"

	"github.com/tordrt/schematighten/internal/policy"
)

// EntityGroup holds one entity's decisions in report order.
type EntityGroup struct {
	Entity    string
	Decisions []policy.Decision
}

// GroupByEntity splits a report into per-entity groups, preserving the
// report's entity order and the decision order within each entity.
func GroupByEntity(rep *policy.Report) []EntityGroup {
	index := make(map[string]int)
	var groups []EntityGroup
	for _, d := range rep.Decisions {
		i, ok := index[d.Subject.Entity]
		if !ok {
			i = len(groups)
			index[d.Subject.Entity] = i
			groups = append(groups, EntityGroup{Entity: d.Subject.Entity})
		}
		groups[i].Decisions = append(groups[i].Decisions, d)
	}
	return groups
}

// SubjectLabel renders a decision subject for human-readable output.
func SubjectLabel(s policy.Subject) string {
	switch s.Kind {
	case policy.SubjectColumnNullability:
		return fmt.Sprintf("column %s.%s", s.Entity, s.Attribute)
	case policy.SubjectForeignKey:
		return fmt.Sprintf("foreign key %s.%s", s.Entity, s.Attribute)
	case policy.SubjectUniqueIndex:
		return fmt.Sprintf("unique index %s (%s)", s.Index, strings.Join(s.Columns, ", "))
	case policy.SubjectPlatformIndex:
		return fmt.Sprintf("platform index %s (%s)", s.Index, strings.Join(s.Columns, ", "))
	}
	return fmt.Sprintf("%s %s", s.Kind, s.Entity)
}
