package config

import "time"

// Default configuration values.
const (
	DefaultPageSize     = 100
	DefaultQueryTimeout = 30 * time.Second
	DefaultUIPort       = 8766
	DefaultExportDir    = "."
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
)

// DefaultSchemaForType returns the default schema for a database type.
func DefaultSchemaForType(dbType string) string {
	switch dbType {
	case "postgres":
		return "public"
	case "duckdb", "sqlite":
		return "main"
	}
	return ""
}
