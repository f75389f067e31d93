// Package config loads the leapview CLI configuration.
//
// Connection types are shared with the UI server's reload watcher and live
// in internal/config; this package layers the CLI settings on top.
package config

import (
	"time"

	sharedcfg "github.com/leapstack-labs/leapview/internal/config"
)

// ConnectionConfig is an alias for the shared connection configuration.
type ConnectionConfig = sharedcfg.ConnectionConfig

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // text, json
	// File switches logging to a rotating file.
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
}

// UIConfig holds configuration for the UI server.
type UIConfig struct {
	Port          int    `koanf:"port"`
	Watch         bool   `koanf:"watch"`
	SessionSecret string `koanf:"session_secret"`
}

// ExportConfig controls where exports are written.
type ExportConfig struct {
	Dir string `koanf:"dir"`
}

// CacheConfig bounds the per-connection table metadata cache.
type CacheConfig struct {
	Size int           `koanf:"size"`
	TTL  time.Duration `koanf:"ttl"`
}

// Config holds all CLI configuration options.
type Config struct {
	PageSize     int                         `koanf:"page_size"`
	QueryTimeout time.Duration               `koanf:"query_timeout"`
	Verbose      bool                        `koanf:"verbose"`
	OutputFormat string                      `koanf:"output"`
	Log          LogConfig                   `koanf:"log"`
	UI           UIConfig                    `koanf:"ui"`
	Export       ExportConfig                `koanf:"export"`
	Cache        CacheConfig                 `koanf:"cache"`
	Connections  map[string]ConnectionConfig `koanf:"connections"`
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultPageSize     = sharedcfg.DefaultPageSize
	DefaultQueryTimeout = sharedcfg.DefaultQueryTimeout
	DefaultUIPort       = sharedcfg.DefaultUIPort
	DefaultExportDir    = sharedcfg.DefaultExportDir
	DefaultLogLevel     = sharedcfg.DefaultLogLevel
	DefaultLogFormat    = sharedcfg.DefaultLogFormat
	DefaultOutput       = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)
