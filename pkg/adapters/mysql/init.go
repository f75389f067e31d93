// Package mysql provides a MySQL database adapter for LeapView.
//
// This file registers the MySQL adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/leapview/pkg/adapters/mysql"
package mysql

import (
	"log/slog"

	"github.com/leapstack-labs/leapview/pkg/adapter"
)

func init() {
	adapter.Register("mysql", adapter.ServerKind(3306), func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
