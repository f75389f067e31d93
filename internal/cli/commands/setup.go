package commands

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapview/internal/cli/config"
	"github.com/leapstack-labs/leapview/internal/cli/output"
	"github.com/leapstack-labs/leapview/internal/clipboard"
	"github.com/leapstack-labs/leapview/internal/dispatch"
	"github.com/leapstack-labs/leapview/internal/export"
	"github.com/leapstack-labs/leapview/pkg/adapter"
	"github.com/leapstack-labs/leapview/pkg/core"
	"github.com/spf13/cobra"

	// Register the built-in adapters.
	_ "github.com/leapstack-labs/leapview/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leapview/pkg/adapters/mysql"
	_ "github.com/leapstack-labs/leapview/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/leapview/pkg/adapters/sqlite"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Pool     *adapter.Pool
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with a connection pool and
// renderer. Returns the context and a cleanup function that must be called
// (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx := NewCommandContextWithoutPool(cmd)

	configs, err := cmdCtx.Cfg.AdapterConfigs()
	if err != nil {
		return nil, nil, err
	}
	cmdCtx.Pool = adapter.NewPool(configs, adapter.PoolOptions{
		Logger:    cmdCtx.Logger,
		CacheSize: cmdCtx.Cfg.Cache.Size,
		CacheTTL:  cmdCtx.Cfg.Cache.TTL,
	})

	cleanup := func() {
		if err := cmdCtx.Pool.Close(); err != nil {
			cmdCtx.Logger.Warn("failed to close connections", "error", err)
		}
	}
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutPool creates a CommandContext without a pool.
// Useful for commands that don't need database access.
func NewCommandContextWithoutPool(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.ParseMode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// NewDispatcher returns a dispatcher serving views from the context's pool.
func (c *CommandContext) NewDispatcher(clip clipboard.Writer, exportDir string) *dispatch.Dispatcher {
	if exportDir == "" {
		exportDir = c.Cfg.Export.Dir
	}
	return dispatch.New(dispatch.Options{
		Logger:       c.Logger,
		Sources:      dispatch.PoolSources(c.Pool),
		PageSize:     c.Cfg.PageSize,
		QueryTimeout: c.Cfg.QueryTimeout,
		Exports:      export.DirSink{Dir: exportDir},
		Clipboard:    clip,
	})
}

// Helper functions shared across commands

// getConfig returns the current configuration, or the defaults when no
// config has been loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		PageSize:     config.DefaultPageSize,
		QueryTimeout: config.DefaultQueryTimeout,
		OutputFormat: config.DefaultOutput,
		Log:          config.LogConfig{Level: config.DefaultLogLevel, Format: config.DefaultLogFormat},
		UI:           config.UIConfig{Port: config.DefaultUIPort},
		Export:       config.ExportConfig{Dir: config.DefaultExportDir},
	}
}

// viewArgs builds a view id from "<connection> <database> <table>".
func viewArgs(args []string) (core.ViewID, error) {
	id := core.ViewID{Connection: args[0], Database: args[1], Table: args[2]}
	if id.Connection == "" || id.Database == "" || id.Table == "" {
		return core.ViewID{}, fmt.Errorf("connection, database and table must not be empty")
	}
	return id, nil
}

// completeConnections offers configured connection names for the first
// positional argument.
func completeConnections(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	cfg := getConfig()
	if len(cfg.Connections) == 0 {
		if loaded, err := config.LoadConfig("", nil); err == nil {
			cfg = loaded
		}
	}
	return cfg.ConnectionNames(), cobra.ShellCompDirectiveNoFileComp
}
