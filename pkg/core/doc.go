// Package core defines the shared language of the LeapView system.
//
// This package contains:
//   - View identity and state (ViewID, TableViewState, Filter, SortKey)
//   - Query results and column metadata (QueryResult, Record, Column)
//   - Service interfaces (DataSource)
//   - Connection configuration (AdapterConfig)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
