package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/leapstack-labs/leapview/pkg/core"
)

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Exec, Execute and metadata helpers.
type BaseSQLAdapter struct {
	DB     *sqlx.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger
}

// ColumnRow is the shape scanned from catalog queries by DescribeWith.
// Catalog queries must alias their columns to these names.
type ColumnRow struct {
	Name       string `db:"column_name"`
	Type       string `db:"data_type"`
	Nullable   string `db:"is_nullable"`
	Position   int    `db:"ordinal_position"`
	PrimaryKey bool   `db:"is_primary_key"`
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection", slog.String("type", b.Cfg.Type))
		}
		return b.DB.Close()
	}
	return nil
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string) error {
	if b.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	_, err := b.DB.ExecContext(ctx, sqlStr)
	if err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// Execute runs a query and materializes every row.
// Driver []byte values are converted to strings so results are JSON friendly.
func (b *BaseSQLAdapter) Execute(ctx context.Context, sqlStr string) (*core.QueryResult, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	if b.Logger != nil {
		b.Logger.Debug("executing query", slog.String("sql", sqlStr))
	}

	rows, err := b.DB.QueryxContext(ctx, sqlStr)
	if err != nil {
		return nil, &core.ExecutionError{Query: sqlStr, Err: err}
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &core.ExecutionError{Query: sqlStr, Err: err}
	}

	result := &core.QueryResult{Columns: cols, Rows: []core.Record{}}
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, &core.ExecutionError{Query: sqlStr, Err: fmt.Errorf("failed to scan row: %w", err)}
		}
		rec := make(core.Record, len(cols))
		for i, col := range cols {
			rec[col] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.ExecutionError{Query: sqlStr, Err: err}
	}

	result.RowCount = int64(len(result.Rows))
	return result, nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// DescribeWith runs a catalog query returning ColumnRow-shaped rows.
// Placeholders are written as ? and rebound for the driver.
func (b *BaseSQLAdapter) DescribeWith(ctx context.Context, catalogQuery string, table string, args ...any) ([]core.Column, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	var found []ColumnRow
	if err := b.DB.SelectContext(ctx, &found, b.DB.Rebind(catalogQuery), args...); err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}

	columns := make([]core.Column, len(found))
	for i, r := range found {
		columns[i] = core.Column{
			Name:       r.Name,
			Type:       r.Type,
			Nullable:   strings.EqualFold(r.Nullable, "YES"),
			PrimaryKey: r.PrimaryKey,
			Position:   r.Position,
		}
	}
	return columns, nil
}

// ListWith runs a catalog query returning one name per row.
func (b *BaseSQLAdapter) ListWith(ctx context.Context, catalogQuery string, args ...any) ([]string, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	var names []string
	if err := b.DB.SelectContext(ctx, &names, b.DB.Rebind(catalogQuery), args...); err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return names, nil
}

// ParseQualifiedName splits a table reference into schema and name.
// Uses defaultSchema if not specified.
func ParseQualifiedName(table, defaultSchema string) (schema, name string) {
	if parts := strings.SplitN(table, ".", 2); len(parts) == 2 {
		return parts[0], parts[1]
	}
	return defaultSchema, table
}

func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
