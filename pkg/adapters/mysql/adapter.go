// Package mysql provides a MySQL database adapter for LeapView.
package mysql

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	driver "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/leapstack-labs/leapview/pkg/adapter"
	"github.com/leapstack-labs/leapview/pkg/core"
)

const describeQuery = `
	SELECT
		c.COLUMN_NAME AS column_name,
		c.DATA_TYPE AS data_type,
		c.IS_NULLABLE AS is_nullable,
		c.ORDINAL_POSITION AS ordinal_position,
		c.COLUMN_KEY = 'PRI' AS is_primary_key
	FROM information_schema.COLUMNS c
	WHERE c.TABLE_SCHEMA = ? AND c.TABLE_NAME = ?
	ORDER BY c.ORDINAL_POSITION
`

const listQuery = `
	SELECT TABLE_NAME
	FROM information_schema.TABLES
	WHERE TABLE_SCHEMA = ?
	ORDER BY TABLE_NAME
`

// Adapter implements the adapter.Adapter interface for MySQL and MariaDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new MySQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Connect establishes a connection to MySQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsnCfg := buildMySQLConfig(cfg)

	a.Logger.Debug("connecting to mysql", slog.String("addr", dsnCfg.Addr), slog.String("database", dsnCfg.DBName))

	db, err := sqlx.Open("mysql", dsnCfg.FormatDSN())
	if err != nil {
		return fmt.Errorf("failed to open mysql connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping mysql: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildMySQLConfig maps an adapter config onto the driver config.
// Options are passed through as DSN parameters.
func buildMySQLConfig(cfg adapter.Config) *driver.Config {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	c := driver.NewConfig()
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	c.User = cfg.Username
	c.Passwd = cfg.Password
	c.DBName = cfg.Database
	c.ParseTime = true
	c.Timeout = 10 * time.Second
	if len(cfg.Options) > 0 {
		c.Params = make(map[string]string, len(cfg.Options))
		for k, v := range cfg.Options {
			c.Params[k] = v
		}
	}
	return c
}

// Describe returns the table's columns. The database argument selects the
// schema and falls back to the connection's database.
func (a *Adapter) Describe(ctx context.Context, database, table string) ([]core.Column, error) {
	schema, name := adapter.ParseQualifiedName(table, a.schemaFor(database))
	return a.DescribeWith(ctx, describeQuery, table, schema, name)
}

// ListTables lists the tables and views of database.
func (a *Adapter) ListTables(ctx context.Context, database string) ([]string, error) {
	return a.ListWith(ctx, listQuery, a.schemaFor(database))
}

func (a *Adapter) schemaFor(database string) string {
	if database != "" {
		return database
	}
	return a.Cfg.Database
}

var _ adapter.Adapter = (*Adapter)(nil)
