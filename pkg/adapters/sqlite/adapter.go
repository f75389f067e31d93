// Package sqlite provides a SQLite database adapter for LeapView.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/leapstack-labs/leapview/pkg/adapter"
	"github.com/leapstack-labs/leapview/pkg/core"

	_ "modernc.org/sqlite" // sqlite driver
)

const describeQuery = `
	SELECT
		name AS column_name,
		type AS data_type,
		CASE WHEN "notnull" = 1 THEN 'NO' ELSE 'YES' END AS is_nullable,
		cid + 1 AS ordinal_position,
		pk > 0 AS is_primary_key
	FROM pragma_table_info(?)
	ORDER BY cid
`

const listQuery = `
	SELECT name
	FROM sqlite_master
	WHERE type IN ('table', 'view')
	AND name NOT LIKE 'sqlite_%'
	AND name NOT LIKE 'goose_%'
	ORDER BY name
`

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Connect opens the database file at cfg.Path.
// Use ":memory:" (or an empty path) for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	a.Logger.Debug("opening sqlite database", slog.String("path", path))

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite: %w", err)
	}

	if mode, ok := cfg.Options["journal_mode"]; ok {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = "+mode); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to set journal mode: %w", err)
		}
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// Describe returns the table's columns. SQLite has a single database per
// file so the database argument is ignored.
func (a *Adapter) Describe(ctx context.Context, _, table string) ([]core.Column, error) {
	return a.DescribeWith(ctx, describeQuery, table, table)
}

// ListTables lists the tables and views in the database file.
func (a *Adapter) ListTables(ctx context.Context, _ string) ([]string, error) {
	return a.ListWith(ctx, listQuery)
}

var _ adapter.Adapter = (*Adapter)(nil)
