package translator

import (
	"strings"
	"testing"

	"github.com/tordrt/schematighten/internal/model"
	"github.com/tordrt/schematighten/internal/policy"
)

func testModel() *model.Model {
	return &model.Model{Entities: []model.Entity{
		{
			Name:   "orders",
			Schema: "sales",
			Attributes: []model.Attribute{
				{Name: "id", Type: "bigint", Identifier: true, Mandatory: true},
				{Name: "status", Type: "varchar(20)", Mandatory: true},
				{Name: "user_id", Type: "bigint", Reference: &model.Reference{Entity: "users", Attribute: "id"}},
			},
			Indexes: []model.Index{
				{Name: "uq_status_user", Columns: []string{"status", "user_id"}, Unique: true},
			},
		},
		{
			Name:   "users",
			Schema: "sales",
			Attributes: []model.Attribute{
				{Name: "id", Type: "bigint", Identifier: true, Mandatory: true},
			},
		},
	}}
}

func TestParseDialect(t *testing.T) {
	for _, valid := range []string{"postgres", "mysql", "sqlite"} {
		if _, err := ParseDialect(valid); err != nil {
			t.Errorf("ParseDialect(%q) returned error: %v", valid, err)
		}
	}
	if _, err := ParseDialect("oracle"); err == nil {
		t.Error("ParseDialect(\"oracle\") should return error")
	}
}

func TestTranslateSkipsSkippedDecisions(t *testing.T) {
	rep := &policy.Report{Decisions: []policy.Decision{
		{
			Subject: policy.Subject{Kind: policy.SubjectColumnNullability, Entity: "orders", Attribute: "status"},
			Action:  policy.ActionSkip,
		},
	}}

	script, err := Translate(testModel(), rep, DialectPostgres)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if len(script.Statements) != 0 {
		t.Errorf("expected no statements for a skip decision, got %d", len(script.Statements))
	}
}

func TestTranslateNullability(t *testing.T) {
	rep := &policy.Report{Decisions: []policy.Decision{
		{
			Subject: policy.Subject{Kind: policy.SubjectColumnNullability, Entity: "orders", Attribute: "status"},
			Action:  policy.ActionTighten,
		},
	}}

	tests := []struct {
		dialect  Dialect
		wantSQL  string
		advisory bool
	}{
		{
			dialect: DialectPostgres,
			wantSQL: `ALTER TABLE "sales"."orders" ALTER COLUMN "status" SET NOT NULL;`,
		},
		{
			dialect: DialectMySQL,
			wantSQL: "ALTER TABLE `sales`.`orders` MODIFY COLUMN `status` varchar(20) NOT NULL;",
		},
		{
			dialect:  DialectSQLite,
			wantSQL:  "-- sqlite cannot alter column nullability in place; rebuild table orders with status NOT NULL",
			advisory: true,
		},
	}
	for _, tt := range tests {
		t.Run(string(tt.dialect), func(t *testing.T) {
			script, err := Translate(testModel(), rep, tt.dialect)
			if err != nil {
				t.Fatalf("Translate failed: %v", err)
			}
			if len(script.Statements) != 1 {
				t.Fatalf("expected 1 statement, got %d", len(script.Statements))
			}
			st := script.Statements[0]
			if st.SQL != tt.wantSQL {
				t.Errorf("SQL mismatch:\n got: %s\nwant: %s", st.SQL, tt.wantSQL)
			}
			if st.Advisory != tt.advisory {
				t.Errorf("Advisory = %t, want %t", st.Advisory, tt.advisory)
			}
		})
	}
}

func TestTranslateRemediationPrecedesTightening(t *testing.T) {
	rep := &policy.Report{Decisions: []policy.Decision{
		{
			Subject: policy.Subject{Kind: policy.SubjectColumnNullability, Entity: "orders", Attribute: "status"},
			Action:  policy.ActionTightenWithRemediation,
		},
	}}

	script, err := Translate(testModel(), rep, DialectPostgres)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if len(script.Statements) != 2 {
		t.Fatalf("expected remediation + tightening, got %d statements", len(script.Statements))
	}
	if !script.Statements[0].Remediation {
		t.Error("first statement should be the remediation step")
	}
	if !strings.HasPrefix(script.Statements[0].SQL, "UPDATE ") {
		t.Errorf("remediation should be an UPDATE, got: %s", script.Statements[0].SQL)
	}
	if script.Statements[1].Remediation {
		t.Error("second statement should be the tightening itself")
	}
}

func TestTranslateForeignKey(t *testing.T) {
	rep := &policy.Report{Decisions: []policy.Decision{
		{
			Subject: policy.Subject{Kind: policy.SubjectForeignKey, Entity: "orders", Attribute: "user_id"},
			Action:  policy.ActionTighten,
		},
	}}

	script, err := Translate(testModel(), rep, DialectPostgres)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if len(script.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(script.Statements))
	}
	want := `ALTER TABLE "sales"."orders" ADD CONSTRAINT "fk_orders_user_id" FOREIGN KEY ("user_id") REFERENCES "sales"."users" ("id");`
	if script.Statements[0].SQL != want {
		t.Errorf("SQL mismatch:\n got: %s\nwant: %s", script.Statements[0].SQL, want)
	}
}

func TestTranslateForeignKeyRemediationDeletesOrphans(t *testing.T) {
	rep := &policy.Report{Decisions: []policy.Decision{
		{
			Subject: policy.Subject{Kind: policy.SubjectForeignKey, Entity: "orders", Attribute: "user_id"},
			Action:  policy.ActionTightenWithRemediation,
		},
	}}

	script, err := Translate(testModel(), rep, DialectPostgres)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if len(script.Statements) != 2 {
		t.Fatalf("expected remediation + constraint, got %d statements", len(script.Statements))
	}
	if !script.Statements[0].Remediation || !strings.HasPrefix(script.Statements[0].SQL, "DELETE FROM ") {
		t.Errorf("expected orphan-cleanup DELETE first, got: %s", script.Statements[0].SQL)
	}
}

func TestTranslateForeignKeySQLiteIsAdvisory(t *testing.T) {
	rep := &policy.Report{Decisions: []policy.Decision{
		{
			Subject: policy.Subject{Kind: policy.SubjectForeignKey, Entity: "orders", Attribute: "user_id"},
			Action:  policy.ActionTighten,
		},
	}}

	script, err := Translate(testModel(), rep, DialectSQLite)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if len(script.Statements) != 1 || !script.Statements[0].Advisory {
		t.Fatalf("sqlite foreign keys should emit one advisory statement, got %+v", script.Statements)
	}
}

func TestTranslateUniqueIndex(t *testing.T) {
	rep := &policy.Report{Decisions: []policy.Decision{
		{
			Subject: policy.Subject{Kind: policy.SubjectUniqueIndex, Entity: "orders", Index: "uq_status_user", Columns: []string{"status", "user_id"}},
			Action:  policy.ActionTighten,
		},
	}}

	script, err := Translate(testModel(), rep, DialectPostgres)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	want := `CREATE UNIQUE INDEX "uq_status_user" ON "sales"."orders" ("status", "user_id");`
	if len(script.Statements) != 1 || script.Statements[0].SQL != want {
		t.Errorf("SQL mismatch:\n got: %+v\nwant: %s", script.Statements, want)
	}
}

func TestTranslateUniqueIndexRemediationIsAdvisory(t *testing.T) {
	rep := &policy.Report{Decisions: []policy.Decision{
		{
			Subject: policy.Subject{Kind: policy.SubjectUniqueIndex, Entity: "orders", Index: "uq_status_user", Columns: []string{"status", "user_id"}},
			Action:  policy.ActionTightenWithRemediation,
		},
	}}

	script, err := Translate(testModel(), rep, DialectMySQL)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if len(script.Statements) != 2 {
		t.Fatalf("expected advisory + index, got %d statements", len(script.Statements))
	}
	first := script.Statements[0]
	if !first.Remediation || !first.Advisory || !strings.Contains(first.SQL, "deduplicate") {
		t.Errorf("expected deduplication advisory first, got: %+v", first)
	}
}

func TestScriptSQLJoinsStatements(t *testing.T) {
	script := &Script{Statements: []Statement{
		{SQL: "A;"},
		{SQL: "B;"},
	}}
	if got, want := script.SQL(), "A;\nB;\n"; got != want {
		t.Errorf("SQL() = %q, want %q", got, want)
	}
}

func TestTranslateUnknownEntityFails(t *testing.T) {
	rep := &policy.Report{Decisions: []policy.Decision{
		{
			Subject: policy.Subject{Kind: policy.SubjectColumnNullability, Entity: "ghosts", Attribute: "id"},
			Action:  policy.ActionTighten,
		},
	}}
	if _, err := Translate(testModel(), rep, DialectPostgres); err == nil {
		t.Error("expected error for unknown entity")
	}
}
