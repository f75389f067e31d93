// Package config provides the connection configuration shared by the CLI,
// the UI server's reload watcher and the demo.
package config

import (
	"fmt"
	"maps"
	"os"
	"regexp"
	"strings"

	"github.com/leapstack-labs/leapview/pkg/adapter"
)

// ConnectionConfig holds one named database connection.
type ConnectionConfig struct {
	Type string `koanf:"type"` // sqlite, duckdb, postgres, mysql

	// File-based databases (SQLite, DuckDB)
	Path string `koanf:"path"`

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	// Common
	Schema string `koanf:"schema"`

	// Additional driver-specific options (DSN parameters)
	Options map[string]string `koanf:"options"`

	// Params holds adapter-specific configuration (e.g., DuckDB extensions, settings)
	Params map[string]any `koanf:"params"`
}

// ApplyDefaults fills in the schema and port defaults for the connection type.
func (c *ConnectionConfig) ApplyDefaults() {
	c.Type = strings.ToLower(c.Type)
	if c.Schema == "" {
		c.Schema = DefaultSchemaForType(c.Type)
	}
	if kind, ok := adapter.KindOf(c.Type); ok && c.Port == 0 {
		c.Port = kind.DefaultPort
	}
}

// Validate checks that the connection names a registered adapter and has
// the fields that adapter needs.
func (c *ConnectionConfig) Validate() error {
	if c.Type == "" {
		return fmt.Errorf("connection type is required")
	}
	kind, ok := adapter.KindOf(c.Type)
	if !ok {
		return &adapter.UnknownAdapterError{Type: c.Type, Available: adapter.ListAdapters()}
	}
	if kind.Server && c.Host == "" {
		return fmt.Errorf("%s connection requires host", c.Type)
	}
	return nil
}

// ExpandEnv replaces ${VAR} references in the credential and address
// fields with environment values.
func (c *ConnectionConfig) ExpandEnv() {
	c.Host = expandEnvVars(c.Host)
	c.User = expandEnvVars(c.User)
	c.Password = expandEnvVars(c.Password)
	c.Database = expandEnvVars(c.Database)
	c.Path = expandEnvVars(c.Path)
}

// AdapterConfig converts the connection to the adapter's config.
func (c ConnectionConfig) AdapterConfig() adapter.Config {
	return adapter.Config{
		Type:     c.Type,
		Path:     c.Path,
		Host:     c.Host,
		Port:     c.Port,
		Database: c.Database,
		Username: c.User,
		Password: c.Password,
		Schema:   c.Schema,
		Options:  maps.Clone(c.Options),
		Params:   maps.Clone(c.Params),
	}
}

// Prepare applies defaults, expands environment references and validates
// every connection, returning the adapter configs keyed by name.
func Prepare(conns map[string]ConnectionConfig) (map[string]adapter.Config, error) {
	out := make(map[string]adapter.Config, len(conns))
	for name, c := range conns {
		c.ApplyDefaults()
		c.ExpandEnv()
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("invalid connection %q: %w", name, err)
		}
		out[name] = c.AdapterConfig()
	}
	return out, nil
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns. Unset variables are left as is.
func expandEnvVars(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}
