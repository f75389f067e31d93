// Package sqlite provides a SQLite database adapter for LeapView.
//
// This file registers the SQLite adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/leapview/pkg/adapters/sqlite"
package sqlite

import (
	"log/slog"

	"github.com/leapstack-labs/leapview/pkg/adapter"
)

func init() {
	adapter.Register("sqlite", adapter.FileKind, func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
