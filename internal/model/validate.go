package model

import (
	"fmt"
	"strings"
)

// ValidationError reports every structural problem found in a model.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid model: %s", strings.Join(e.Problems, "; "))
}

// Validate checks the structural invariants the policy engine assumes:
// unique entity names, exactly one identifier per entity, no duplicate
// attribute names, resolvable reference targets, and index columns that
// exist on their entity. The engine itself does not re-check these.
func Validate(m *Model) error {
	var problems []string

	seenEntities := make(map[string]bool)
	for i := range m.Entities {
		ent := &m.Entities[i]
		if ent.Name == "" {
			problems = append(problems, fmt.Sprintf("entity %d has no name", i))
			continue
		}
		if seenEntities[ent.Name] {
			problems = append(problems, fmt.Sprintf("duplicate entity name %q", ent.Name))
			continue
		}
		seenEntities[ent.Name] = true
		problems = append(problems, validateEntity(m, ent)...)
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func validateEntity(m *Model, ent *Entity) []string {
	var problems []string

	identifiers := 0
	seenAttrs := make(map[string]bool)
	for _, attr := range ent.Attributes {
		if attr.Name == "" {
			problems = append(problems, fmt.Sprintf("entity %q has an unnamed attribute", ent.Name))
			continue
		}
		if seenAttrs[attr.Name] {
			problems = append(problems, fmt.Sprintf("entity %q has duplicate attribute %q", ent.Name, attr.Name))
		}
		seenAttrs[attr.Name] = true
		if attr.Identifier {
			identifiers++
		}
		if attr.Reference != nil {
			problems = append(problems, validateReference(m, ent, &attr)...)
		}
	}
	if identifiers != 1 {
		problems = append(problems, fmt.Sprintf("entity %q has %d identifier attributes, want exactly 1", ent.Name, identifiers))
	}

	seenIndexes := make(map[string]bool)
	for _, idx := range ent.Indexes {
		if idx.Name == "" {
			problems = append(problems, fmt.Sprintf("entity %q has an unnamed index", ent.Name))
			continue
		}
		if seenIndexes[idx.Name] {
			problems = append(problems, fmt.Sprintf("entity %q has duplicate index %q", ent.Name, idx.Name))
		}
		seenIndexes[idx.Name] = true
		if len(idx.Columns) == 0 {
			problems = append(problems, fmt.Sprintf("index %q on entity %q has no columns", idx.Name, ent.Name))
		}
		for _, col := range idx.Columns {
			if !seenAttrs[col] {
				problems = append(problems, fmt.Sprintf("index %q on entity %q names unknown attribute %q", idx.Name, ent.Name, col))
			}
		}
	}

	return problems
}

func validateReference(m *Model, ent *Entity, attr *Attribute) []string {
	ref := attr.Reference
	target := m.Entity(ref.Entity)
	if target == nil {
		return []string{fmt.Sprintf("reference %s.%s targets unknown entity %q", ent.Name, attr.Name, ref.Entity)}
	}
	if target.Attribute(ref.Attribute) == nil {
		return []string{fmt.Sprintf("reference %s.%s targets unknown attribute %s.%s", ent.Name, attr.Name, ref.Entity, ref.Attribute)}
	}
	return nil
}
