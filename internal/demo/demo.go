// Package demo creates a sample sqlite database to browse without any
// setup.
package demo

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"

	// sqlite driver for the demo database.
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ConnectionName is the connection the demo database is registered under.
const ConnectionName = "demo"

// Tables lists the tables the demo migrations create.
var Tables = []string{"people", "orders"}

// Create builds the demo database at path, applying any pending
// migrations. Running it again on an existing demo database is a no-op.
func Create(ctx context.Context, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create demo directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open demo database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := Migrate(ctx, db); err != nil {
		return err
	}
	return nil
}

// Migrate runs the demo migrations against db.
func Migrate(ctx context.Context, db *sql.DB) error {
	// Configure goose for embedded migrations
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Version returns the demo database's migration version.
func Version(db *sql.DB) (int64, error) {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite"); err != nil {
		return 0, fmt.Errorf("failed to set dialect: %w", err)
	}
	return goose.GetDBVersion(db)
}

// ConfigSnippet returns a leapview.yaml fragment registering the demo
// database at path.
func ConfigSnippet(path string) string {
	return fmt.Sprintf("connections:\n  %s:\n    type: sqlite\n    path: %s\n", ConnectionName, path)
}
