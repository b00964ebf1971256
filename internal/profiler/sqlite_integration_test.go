//go:build integration

package profiler

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/tordrt/schematighten/internal/evidence"
	"github.com/tordrt/schematighten/internal/model"
)

func TestSQLiteProfileIntegration(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "profile.db")

	client, err := NewSQLiteClient(ctx, path)
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	defer client.Close()

	stmts := []string{
		`CREATE TABLE users (
			id INTEGER PRIMARY KEY,
			email TEXT,
			status TEXT NOT NULL DEFAULT 'active'
		)`,
		`CREATE TABLE orders (
			id INTEGER PRIMARY KEY,
			user_id INTEGER
		)`,
		`INSERT INTO users (id, email) VALUES (1, 'a@x'), (2, 'b@x'), (3, 'a@x'), (4, NULL)`,
		`INSERT INTO orders (id, user_id) VALUES (1, 1), (2, 2), (3, 99), (4, NULL)`,
	}
	for _, s := range stmts {
		if _, err := client.db.ExecContext(ctx, s); err != nil {
			t.Fatalf("setup failed: %v", err)
		}
	}

	m := &model.Model{Entities: []model.Entity{
		{
			Name: "users",
			Attributes: []model.Attribute{
				{Name: "id", Type: "INTEGER", Identifier: true, Mandatory: true},
				{Name: "email", Type: "TEXT", Unique: true},
				{Name: "status", Type: "TEXT", Mandatory: true},
			},
		},
		{
			Name: "orders",
			Attributes: []model.Attribute{
				{Name: "id", Type: "INTEGER", Identifier: true, Mandatory: true},
				{Name: "user_id", Type: "INTEGER", Reference: &model.Reference{Entity: "users", Attribute: "id"}},
			},
		},
		{
			Name: "missing_table",
			Attributes: []model.Attribute{
				{Name: "id", Type: "INTEGER", Identifier: true, Mandatory: true},
			},
		},
	}}

	prof, err := NewSQLite(client).Profile(ctx, m, nil)
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}

	email, ok := prof.Column("users", "email")
	if !ok {
		t.Fatal("no evidence for users.email")
	}
	if email.RowCount != evidence.Of(4) {
		t.Errorf("RowCount = %+v, want known 4", email.RowCount)
	}
	if email.NullCount != evidence.Of(1) {
		t.Errorf("NullCount = %+v, want known 1", email.NullCount)
	}
	// Three non-null emails, two distinct: one excess row.
	if email.DuplicateCount != evidence.Of(1) {
		t.Errorf("DuplicateCount = %+v, want known 1", email.DuplicateCount)
	}

	status, ok := prof.Column("users", "status")
	if !ok {
		t.Fatal("no evidence for users.status")
	}
	if status.NotNull != evidence.FlagOf(true) {
		t.Errorf("NotNull = %+v, want known true", status.NotNull)
	}
	if status.HasDefault != evidence.FlagOf(true) {
		t.Errorf("HasDefault = %+v, want known true", status.HasDefault)
	}

	userID, ok := prof.Column("orders", "user_id")
	if !ok {
		t.Fatal("no evidence for orders.user_id")
	}
	// user_id 99 has no matching user; the NULL row is not an orphan.
	if userID.OrphanCount != evidence.Of(1) {
		t.Errorf("OrphanCount = %+v, want known 1", userID.OrphanCount)
	}

	if _, ok := prof.Column("missing_table", "id"); ok {
		t.Error("missing table should yield no evidence")
	}
}
