package profiler

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tordrt/schematighten/internal/evidence"
	"github.com/tordrt/schematighten/internal/model"
)

// SQLiteClient manages the connection to SQLite.
type SQLiteClient struct {
	db *sql.DB
}

// NewSQLiteClient creates a new SQLite client.
func NewSQLiteClient(ctx context.Context, path string) (*SQLiteClient, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteClient{db: db}, nil
}

// Close closes the database connection.
func (c *SQLiteClient) Close() error {
	return c.db.Close()
}

// NewSQLite creates a profiler over a SQLite database. SQLite has no schema
// concept; entity schema qualifiers are ignored.
func NewSQLite(client *SQLiteClient) *Profiler {
	return &Profiler{d: &sqliteDialect{client: client}}
}

type sqliteDialect struct {
	client *SQLiteClient
}

func (d *sqliteDialect) table(ent *model.Entity) string {
	return d.quote(ent.Name)
}

func (d *sqliteDialect) quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (d *sqliteDialect) tableExists(ctx context.Context, ent *model.Entity) (bool, error) {
	query := `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	var n int64
	err := d.client.db.QueryRowContext(ctx, query, ent.Name).Scan(&n)
	return n > 0, err
}

// physicalColumns reads PRAGMA table_info. SQLite does not expose computed
// columns there, so that flag stays unknown.
func (d *sqliteDialect) physicalColumns(ctx context.Context, ent *model.Entity) (map[string]physical, error) {
	query := fmt.Sprintf("PRAGMA table_info(%s)", d.quote(ent.Name))

	rows, err := d.client.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]physical)
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull int
		var dfltValue sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		result[name] = physical{
			notNull:    evidence.FlagOf(notNull == 1 || pk == 1),
			hasDefault: evidence.FlagOf(dfltValue.Valid),
		}
	}
	return result, rows.Err()
}

func (d *sqliteDialect) count(ctx context.Context, query string) (int64, error) {
	var n int64
	err := d.client.db.QueryRowContext(ctx, query).Scan(&n)
	return n, err
}
