// Package duckdb provides a DuckDB database adapter for LeapView.
package duckdb

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/leapstack-labs/leapview/pkg/adapter"
	"github.com/leapstack-labs/leapview/pkg/core"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

const describeQuery = `
	SELECT
		c.column_name AS column_name,
		c.data_type AS data_type,
		c.is_nullable AS is_nullable,
		c.ordinal_position AS ordinal_position,
		list_contains(
			COALESCE((
				SELECT k.constraint_column_names
				FROM duckdb_constraints() k
				WHERE k.schema_name = c.table_schema
					AND k.table_name = c.table_name
					AND k.constraint_type = 'PRIMARY KEY'
				LIMIT 1
			), []),
			c.column_name
		) AS is_primary_key
	FROM information_schema.columns c
	WHERE c.table_schema = ? AND c.table_name = ?
	ORDER BY c.ordinal_position
`

const listQuery = `
	SELECT table_name
	FROM information_schema.tables
	WHERE table_schema = ?
	ORDER BY table_name
`

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" as the path for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	dsn := path
	if params.ReadOnly && path != ":memory:" {
		dsn += "?access_mode=read_only"
	}

	db, err := sqlx.Open("duckdb", dsn)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	// Session settings apply per connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	for _, stmt := range params.setupStatements() {
		a.Logger.Debug("applying duckdb setup", slog.String("sql", stmt))
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply %q: %w", stmt, err)
		}
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// Describe returns the table's columns. The schema comes from a qualified
// table name, the connection schema, or "main".
func (a *Adapter) Describe(ctx context.Context, _, table string) ([]core.Column, error) {
	schema, name := adapter.ParseQualifiedName(table, a.defaultSchema())
	return a.DescribeWith(ctx, describeQuery, table, schema, name)
}

// ListTables lists the tables and views of the default schema.
func (a *Adapter) ListTables(ctx context.Context, _ string) ([]string, error) {
	return a.ListWith(ctx, listQuery, a.defaultSchema())
}

func (a *Adapter) defaultSchema() string {
	if a.Cfg.Schema != "" {
		return a.Cfg.Schema
	}
	return "main"
}

var _ adapter.Adapter = (*Adapter)(nil)
