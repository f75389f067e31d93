// Package postgres provides a PostgreSQL database adapter for LeapView.
//
// This file registers the PostgreSQL adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/leapview/pkg/adapters/postgres"
package postgres

import (
	"log/slog"

	"github.com/leapstack-labs/leapview/pkg/adapter"
)

func init() {
	adapter.Register("postgres", adapter.ServerKind(5432), func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
