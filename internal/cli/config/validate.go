package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapview/pkg/adapter"
	sharedcfg "github.com/leapstack-labs/leapview/internal/config"
)

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	if c.QueryTimeout < 0 {
		return fmt.Errorf("query_timeout must not be negative")
	}
	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("log.level must be one of %s", strings.Join(logLevels, ", "))
	}
	if !slices.Contains(logFormats, strings.ToLower(c.Log.Format)) {
		return fmt.Errorf("log.format must be one of %s", strings.Join(logFormats, ", "))
	}
	if c.UI.Port < 0 || c.UI.Port > 65535 {
		return fmt.Errorf("ui.port out of range: %d", c.UI.Port)
	}
	return nil
}

// AdapterConfigs validates the connections and converts them for the pool.
func (c *Config) AdapterConfigs() (map[string]adapter.Config, error) {
	return sharedcfg.Prepare(c.Connections)
}

// ConnectionNames returns the configured connection names (sorted).
func (c *Config) ConnectionNames() []string {
	names := make([]string, 0, len(c.Connections))
	for name := range c.Connections {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
