package profiler

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/tordrt/schematighten/internal/evidence"
	"github.com/tordrt/schematighten/internal/model"
)

// MySQLClient manages the connection to MySQL.
type MySQLClient struct {
	db *sql.DB
}

// NewMySQLClient creates a new MySQL client.
func NewMySQLClient(ctx context.Context, connString string) (*MySQLClient, error) {
	db, err := sql.Open("mysql", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &MySQLClient{db: db}, nil
}

// Close closes the database connection.
func (c *MySQLClient) Close() error {
	return c.db.Close()
}

// ParseDatabaseName extracts the database name from a MySQL DSN of the form
// user:pass@tcp(host:port)/dbname?params.
func ParseDatabaseName(connString string) (string, error) {
	slash := strings.LastIndex(connString, "/")
	if slash < 0 || slash == len(connString)-1 {
		return "", fmt.Errorf("connection string has no database name")
	}
	name := connString[slash+1:]
	if q := strings.Index(name, "?"); q >= 0 {
		name = name[:q]
	}
	if name == "" {
		return "", fmt.Errorf("connection string has no database name")
	}
	return name, nil
}

// NewMySQL creates a profiler over a MySQL connection. MySQL schemas are
// databases; entities without a schema qualifier are profiled in database.
func NewMySQL(client *MySQLClient, database string) *Profiler {
	return &Profiler{d: &mysqlDialect{client: client, database: database}}
}

type mysqlDialect struct {
	client   *MySQLClient
	database string
}

func (d *mysqlDialect) schemaFor(ent *model.Entity) string {
	if ent.Schema != "" {
		return ent.Schema
	}
	return d.database
}

func (d *mysqlDialect) table(ent *model.Entity) string {
	return d.quote(d.schemaFor(ent)) + "." + d.quote(ent.Name)
}

func (d *mysqlDialect) quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func (d *mysqlDialect) tableExists(ctx context.Context, ent *model.Entity) (bool, error) {
	query := `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = ? AND table_name = ? AND table_type = 'BASE TABLE'
	`
	var n int64
	err := d.client.db.QueryRowContext(ctx, query, d.schemaFor(ent), ent.Name).Scan(&n)
	return n > 0, err
}

func (d *mysqlDialect) physicalColumns(ctx context.Context, ent *model.Entity) (map[string]physical, error) {
	query := `
		SELECT
			column_name,
			is_nullable,
			column_default IS NOT NULL,
			COALESCE(generation_expression, '') <> ''
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position
	`

	rows, err := d.client.db.QueryContext(ctx, query, d.schemaFor(ent), ent.Name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]physical)
	for rows.Next() {
		var name, nullable string
		var hasDefault, generated bool
		if err := rows.Scan(&name, &nullable, &hasDefault, &generated); err != nil {
			return nil, err
		}
		result[name] = physical{
			notNull:    evidence.FlagOf(nullable == "NO"),
			hasDefault: evidence.FlagOf(hasDefault),
			computed:   evidence.FlagOf(generated),
		}
	}
	return result, rows.Err()
}

func (d *mysqlDialect) count(ctx context.Context, query string) (int64, error) {
	var n int64
	err := d.client.db.QueryRowContext(ctx, query).Scan(&n)
	return n, err
}
