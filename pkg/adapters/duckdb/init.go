// Package duckdb provides a DuckDB database adapter for LeapView.
//
// This file registers the DuckDB adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/leapview/pkg/adapters/duckdb"
package duckdb

import (
	"log/slog"

	"github.com/leapstack-labs/leapview/pkg/adapter"
)

func init() {
	adapter.Register("duckdb", adapter.FileKind, func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
