// Package adapter provides database adapter interfaces and shared plumbing
// for LeapView's table views.
//
// This package contains the public contract that all database adapters must implement,
// an sqlx-backed base to embed, the init-time registry, a named connection pool
// and a table-metadata cache. Concrete adapter implementations are in
// pkg/adapters/ subdirectories.
package adapter

import (
	"context"

	"github.com/leapstack-labs/leapview/pkg/core"
)

// Config is an alias for core.AdapterConfig.
type Config = core.AdapterConfig

// Adapter defines the interface that all database adapters must implement.
// It extends core.DataSource with lifecycle and catalog methods.
type Adapter interface {
	core.DataSource

	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// ListTables returns the tables and views visible in database.
	ListTables(ctx context.Context, database string) ([]string, error)
}
