package core

import (
	"context"
	"fmt"
)

// DataSource is the minimal contract the view engine needs from a database.
// Implementations live in pkg/adapter and pkg/adapters.
type DataSource interface {
	// Execute runs a query and returns the full result set.
	Execute(ctx context.Context, query string) (*QueryResult, error)

	// Describe returns the column metadata of a table in ordinal order.
	Describe(ctx context.Context, database, table string) ([]Column, error)
}

// AdapterConfig holds configuration for connecting to a database.
type AdapterConfig struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
	Params   map[string]any
}

// Column represents a column in a database table.
type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Nullable   bool   `json:"nullable"`
	PrimaryKey bool   `json:"primaryKey"`
	Position   int    `json:"position"`
}

// ColumnNames returns the names of cols in order.
func ColumnNames(cols []Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// ExecutionError is returned when the data source rejects or fails a query.
type ExecutionError struct {
	Query string
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("query execution failed: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
