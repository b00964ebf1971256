// Package translator turns a decision report into an ordered schema script
// for a concrete dialect. It decides how a tightening is expressed, never
// whether: Skip subjects are omitted, and TightenWithRemediation subjects
// get their remediation statement emitted before the tightening statement.
package translator

import (
	"fmt"
	"strings"

	"github.com/tordrt/schematighten/internal/model"
	"github.com/tordrt/schematighten/internal/policy"
)

// Dialect selects the SQL flavor of the emitted script.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
	DialectSQLite   Dialect = "sqlite"
)

// ParseDialect maps a user-facing dialect name to a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch Dialect(s) {
	case DialectPostgres, DialectMySQL, DialectSQLite:
		return Dialect(s), nil
	}
	return "", fmt.Errorf("unknown dialect %q (must be postgres, mysql, or sqlite)", s)
}

// Statement is one emitted script element.
type Statement struct {
	SQL string `json:"sql"`

	// Remediation marks a data-remediation step that must run before the
	// tightening statement that follows it.
	Remediation bool `json:"remediation,omitempty"`

	// Advisory marks a comment-only statement for operations the dialect
	// cannot express directly (SQLite column alterations).
	Advisory bool `json:"advisory,omitempty"`

	Subject policy.Subject `json:"subject"`
}

// Script is the ordered DDL output for one decision report.
type Script struct {
	Dialect    Dialect     `json:"dialect"`
	Statements []Statement `json:"statements"`
}

// SQL renders the script as a single text block, one statement per line.
func (s *Script) SQL() string {
	var b strings.Builder
	for _, st := range s.Statements {
		b.WriteString(st.SQL)
		b.WriteString("\n")
	}
	return b.String()
}

// Translate derives the schema script for a decision report. The model is
// needed for column types (MySQL column alterations restate the type) and
// reference targets. Decisions are processed in report order, so the script
// is as deterministic as the report.
func Translate(m *model.Model, rep *policy.Report, dialect Dialect) (*Script, error) {
	script := &Script{Dialect: dialect}
	for i := range rep.Decisions {
		d := &rep.Decisions[i]
		if d.Action == policy.ActionSkip {
			continue
		}
		stmts, err := translateDecision(m, d, dialect)
		if err != nil {
			return nil, fmt.Errorf("failed to translate decision for %s.%s: %w", d.Subject.Entity, subjectName(d.Subject), err)
		}
		script.Statements = append(script.Statements, stmts...)
	}
	return script, nil
}

func translateDecision(m *model.Model, d *policy.Decision, dialect Dialect) ([]Statement, error) {
	ent := m.Entity(d.Subject.Entity)
	if ent == nil {
		return nil, fmt.Errorf("unknown entity %q", d.Subject.Entity)
	}

	switch d.Subject.Kind {
	case policy.SubjectColumnNullability:
		return translateNullability(ent, d, dialect)
	case policy.SubjectForeignKey:
		return translateForeignKey(m, ent, d, dialect)
	case policy.SubjectUniqueIndex, policy.SubjectPlatformIndex:
		return translateIndex(ent, d, dialect)
	}
	return nil, fmt.Errorf("unknown subject kind %q", d.Subject.Kind)
}

func translateNullability(ent *model.Entity, d *policy.Decision, dialect Dialect) ([]Statement, error) {
	attr := ent.Attribute(d.Subject.Attribute)
	if attr == nil {
		return nil, fmt.Errorf("unknown attribute %q", d.Subject.Attribute)
	}

	var stmts []Statement
	tbl := qualifiedTable(ent, dialect)
	col := quote(attr.Name, dialect)

	if d.Action == policy.ActionTightenWithRemediation {
		stmts = append(stmts, Statement{
			SQL:         fmt.Sprintf("UPDATE %s SET %s = /* backfill value */ NULL WHERE %s IS NULL; -- replace placeholder before running", tbl, col, col),
			Remediation: true,
			Subject:     d.Subject,
		})
	}

	switch dialect {
	case DialectPostgres:
		stmts = append(stmts, Statement{
			SQL:     fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL;", tbl, col),
			Subject: d.Subject,
		})
	case DialectMySQL:
		stmts = append(stmts, Statement{
			SQL:     fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s %s NOT NULL;", tbl, col, attr.Type),
			Subject: d.Subject,
		})
	case DialectSQLite:
		stmts = append(stmts, Statement{
			SQL:      fmt.Sprintf("-- sqlite cannot alter column nullability in place; rebuild table %s with %s NOT NULL", ent.Name, attr.Name),
			Advisory: true,
			Subject:  d.Subject,
		})
	}
	return stmts, nil
}

func translateForeignKey(m *model.Model, ent *model.Entity, d *policy.Decision, dialect Dialect) ([]Statement, error) {
	attr := ent.Attribute(d.Subject.Attribute)
	if attr == nil || attr.Reference == nil {
		return nil, fmt.Errorf("attribute %q is not a reference", d.Subject.Attribute)
	}
	target := m.Entity(attr.Reference.Entity)
	if target == nil {
		return nil, fmt.Errorf("unknown target entity %q", attr.Reference.Entity)
	}

	var stmts []Statement
	tbl := qualifiedTable(ent, dialect)
	col := quote(attr.Name, dialect)
	targetTbl := qualifiedTable(target, dialect)
	targetCol := quote(attr.Reference.Attribute, dialect)

	if d.Action == policy.ActionTightenWithRemediation {
		stmts = append(stmts, Statement{
			SQL: fmt.Sprintf(
				"DELETE FROM %s WHERE %s IS NOT NULL AND %s NOT IN (SELECT %s FROM %s); -- orphan cleanup, review before running",
				tbl, col, col, targetCol, targetTbl),
			Remediation: true,
			Subject:     d.Subject,
		})
	}

	if dialect == DialectSQLite {
		stmts = append(stmts, Statement{
			SQL:      fmt.Sprintf("-- sqlite cannot add a foreign key in place; rebuild table %s with FOREIGN KEY (%s) REFERENCES %s (%s)", ent.Name, attr.Name, attr.Reference.Entity, attr.Reference.Attribute),
			Advisory: true,
			Subject:  d.Subject,
		})
		return stmts, nil
	}

	constraint := quote(fmt.Sprintf("fk_%s_%s", ent.Name, attr.Name), dialect)
	stmts = append(stmts, Statement{
		SQL: fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s);",
			tbl, constraint, col, targetTbl, targetCol),
		Subject: d.Subject,
	})
	return stmts, nil
}

func translateIndex(ent *model.Entity, d *policy.Decision, dialect Dialect) ([]Statement, error) {
	idx := findIndex(ent, d.Subject.Index)
	if idx == nil {
		return nil, fmt.Errorf("unknown index %q", d.Subject.Index)
	}

	var stmts []Statement
	tbl := qualifiedTable(ent, dialect)
	cols := make([]string, len(idx.Columns))
	for i, c := range idx.Columns {
		cols[i] = quote(c, dialect)
	}

	if d.Action == policy.ActionTightenWithRemediation {
		stmts = append(stmts, Statement{
			SQL: fmt.Sprintf("-- deduplicate %s over (%s) before creating the unique index",
				ent.Name, strings.Join(idx.Columns, ", ")),
			Remediation: true,
			Advisory:    true,
			Subject:     d.Subject,
		})
	}

	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	stmts = append(stmts, Statement{
		SQL: fmt.Sprintf("CREATE %sINDEX %s ON %s (%s);",
			unique, quote(idx.Name, dialect), tbl, strings.Join(cols, ", ")),
		Subject: d.Subject,
	})
	return stmts, nil
}

func findIndex(ent *model.Entity, name string) *model.Index {
	for i := range ent.Indexes {
		if ent.Indexes[i].Name == name {
			return &ent.Indexes[i]
		}
	}
	return nil
}

func qualifiedTable(ent *model.Entity, dialect Dialect) string {
	if ent.Schema == "" || dialect == DialectSQLite {
		return quote(ent.Name, dialect)
	}
	return quote(ent.Schema, dialect) + "." + quote(ent.Name, dialect)
}

func quote(ident string, dialect Dialect) string {
	if dialect == DialectMySQL {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func subjectName(s policy.Subject) string {
	if s.Attribute != "" {
		return s.Attribute
	}
	return s.Index
}
