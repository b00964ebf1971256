package profiler

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tordrt/schematighten/internal/evidence"
	"github.com/tordrt/schematighten/internal/model"
)

// PostgresClient manages the connection to PostgreSQL.
type PostgresClient struct {
	conn *pgx.Conn
}

// NewPostgresClient creates a new PostgreSQL client.
func NewPostgresClient(ctx context.Context, connString string) (*PostgresClient, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{conn: conn}, nil
}

// Close closes the database connection.
func (c *PostgresClient) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

// NewPostgres creates a profiler over a PostgreSQL connection. Entities
// without an explicit schema qualifier are profiled in defaultSchema.
func NewPostgres(client *PostgresClient, defaultSchema string) *Profiler {
	if defaultSchema == "" {
		defaultSchema = "public"
	}
	return &Profiler{d: &postgresDialect{client: client, defaultSchema: defaultSchema}}
}

type postgresDialect struct {
	client        *PostgresClient
	defaultSchema string
}

func (d *postgresDialect) schemaFor(ent *model.Entity) string {
	if ent.Schema != "" {
		return ent.Schema
	}
	return d.defaultSchema
}

func (d *postgresDialect) table(ent *model.Entity) string {
	return pgx.Identifier{d.schemaFor(ent), ent.Name}.Sanitize()
}

func (d *postgresDialect) quote(ident string) string {
	return pgx.Identifier{ident}.Sanitize()
}

func (d *postgresDialect) tableExists(ctx context.Context, ent *model.Entity) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = $1 AND table_name = $2 AND table_type = 'BASE TABLE'
		)
	`
	var exists bool
	err := d.client.conn.QueryRow(ctx, query, d.schemaFor(ent), ent.Name).Scan(&exists)
	return exists, err
}

func (d *postgresDialect) physicalColumns(ctx context.Context, ent *model.Entity) (map[string]physical, error) {
	query := `
		SELECT
			column_name,
			is_nullable,
			column_default IS NOT NULL,
			is_generated
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := d.client.conn.Query(ctx, query, d.schemaFor(ent), ent.Name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]physical)
	for rows.Next() {
		var name, nullable, generated string
		var hasDefault bool
		if err := rows.Scan(&name, &nullable, &hasDefault, &generated); err != nil {
			return nil, err
		}
		result[name] = physical{
			notNull:    evidence.FlagOf(nullable == "NO"),
			hasDefault: evidence.FlagOf(hasDefault),
			computed:   evidence.FlagOf(generated == "ALWAYS"),
		}
	}
	return result, rows.Err()
}

func (d *postgresDialect) count(ctx context.Context, query string) (int64, error) {
	var n int64
	err := d.client.conn.QueryRow(ctx, query).Scan(&n)
	return n, err
}
