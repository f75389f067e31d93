// Package postgres provides a PostgreSQL database adapter for LeapView.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/leapstack-labs/leapview/pkg/adapter"
	"github.com/leapstack-labs/leapview/pkg/core"
)

const describeQuery = `
	SELECT
		c.column_name AS column_name,
		c.data_type AS data_type,
		c.is_nullable AS is_nullable,
		c.ordinal_position AS ordinal_position,
		EXISTS (
			SELECT 1
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.table_schema = kcu.table_schema
			WHERE tc.constraint_type = 'PRIMARY KEY'
				AND tc.table_schema = c.table_schema
				AND tc.table_name = c.table_name
				AND kcu.column_name = c.column_name
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

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Connect establishes a connection to PostgreSQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	connCfg, err := pgx.ParseConfig(buildPostgresDSN(cfg))
	if err != nil {
		return fmt.Errorf("failed to parse postgres config: %w", err)
	}

	a.Logger.Debug("connecting to postgres", slog.String("host", connCfg.Host), slog.String("database", connCfg.Database))

	db := sqlx.NewDb(stdlib.OpenDB(*connCfg), "pgx")
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildPostgresDSN constructs a PostgreSQL connection string.
func buildPostgresDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, cfg.Database, sslmode)

	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}

	return dsn
}

// Describe returns the table's columns. The database argument is ignored
// because a postgres connection is bound to one database; the schema comes
// from a qualified table name or the connection's schema.
func (a *Adapter) Describe(ctx context.Context, _, table string) ([]core.Column, error) {
	schema, name := adapter.ParseQualifiedName(table, a.defaultSchema())
	return a.DescribeWith(ctx, describeQuery, table, schema, name)
}

// ListTables lists the tables and views of the connection's schema.
func (a *Adapter) ListTables(ctx context.Context, _ string) ([]string, error) {
	return a.ListWith(ctx, listQuery, a.defaultSchema())
}

func (a *Adapter) defaultSchema() string {
	if a.Cfg.Schema != "" {
		return a.Cfg.Schema
	}
	return "public"
}

var _ adapter.Adapter = (*Adapter)(nil)
