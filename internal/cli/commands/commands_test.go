package commands

import (
	"bytes"
	"context"
	"testing"

	"github.com/leapstack-labs/leapview/internal/cli/config"
	"github.com/leapstack-labs/leapview/internal/cli/testutil"
	"github.com/leapstack-labs/leapview/internal/protocol"
	"github.com/leapstack-labs/leapview/pkg/adapter"
	"github.com/leapstack-labs/leapview/pkg/core"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServeCommand(t *testing.T) {
	cmd := NewServeCommand()

	assert.Equal(t, "serve", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	for _, flag := range []string{"port", "watch", "no-browser", "export-dir"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewBrowseCommand(t *testing.T) {
	cmd := NewBrowseCommand()

	assert.Equal(t, "browse <connection> <database> <table>", cmd.Use)
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")
	assert.NotNil(t, cmd.Flags().Lookup("history"))
	assert.Error(t, cmd.Args(cmd, []string{"demo", "main"}))
	assert.NoError(t, cmd.Args(cmd, []string{"demo", "main", "people"}))
}

func TestNewExportCommand(t *testing.T) {
	cmd := NewExportCommand()

	assert.Equal(t, "export <connection> <database> <table>", cmd.Use)
	for _, flag := range []string{"format", "dir", "filter", "sort", "desc", "query"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
	assert.Equal(t, "csv", cmd.Flags().Lookup("format").DefValue)
}

func TestNewConnectionsCommand(t *testing.T) {
	cmd := NewConnectionsCommand()

	assert.Equal(t, "connections", cmd.Use)
	assert.Contains(t, cmd.Aliases, "conn")
	require.Len(t, cmd.Commands(), 1)
	assert.Equal(t, "tables", cmd.Commands()[0].Name())
}

func TestExportSteps(t *testing.T) {
	tests := []struct {
		name    string
		opts    ExportOptions
		want    []protocol.Command
		wantErr string
	}{
		{name: "whole table", opts: ExportOptions{Format: "csv"}},
		{
			name: "sort only",
			opts: ExportOptions{Format: "json", Sort: "age", Desc: true},
			want: []protocol.Command{protocol.Sort{Column: "age", Direction: "desc"}},
		},
		{
			name: "filters with sort",
			opts: ExportOptions{Format: "sql", Filters: []string{"age >= 40", "email is null"}, Sort: "name"},
			want: []protocol.Command{protocol.Filter{
				Filters: []core.Filter{
					{Column: "age", Operator: core.OpGreaterEqual, Value: "40"},
					{Column: "email", Operator: core.OpIsNull},
				},
				SortColumn:    "name",
				SortDirection: "asc",
			}},
		},
		{
			name: "custom query",
			opts: ExportOptions{Format: "csv", Query: "SELECT 1"},
			want: []protocol.Command{protocol.ExecuteQuery{Query: "SELECT 1"}},
		},
		{name: "bad format", opts: ExportOptions{Format: "xlsx"}, wantErr: `unsupported export format "xlsx"`},
		{name: "bad filter", opts: ExportOptions{Format: "csv", Filters: []string{"age ~ 3"}}, wantErr: `invalid filter "age ~ 3"`},
		{name: "query with sort", opts: ExportOptions{Format: "csv", Query: "SELECT 1", Sort: "a"}, wantErr: "--query cannot be combined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := exportSteps(&tt.opts)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConnectionTarget(t *testing.T) {
	tests := []struct {
		name string
		cfg  adapter.Config
		want string
	}{
		{"memory", adapter.Config{Type: "sqlite"}, ":memory:"},
		{"file", adapter.Config{Type: "duckdb", Path: "/data/wh.duckdb"}, "/data/wh.duckdb"},
		{"network", adapter.Config{Type: "postgres", Host: "db", Port: 6543, Username: "app", Password: "secret", Database: "shop"}, "app@db:6543/shop"},
		{"default port", adapter.Config{Type: "postgres", Host: "db", Username: "app"}, "app@db:5432"},
		{"ipv6", adapter.Config{Type: "mysql", Host: "::1"}, "[::1]:3306"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := adapter.Target(tt.cfg)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "secret")
		})
	}
}

func TestAdapterKinds(t *testing.T) {
	kinds := adapterKinds()
	assert.Contains(t, kinds, "duckdb (file)")
	assert.Contains(t, kinds, "postgres (server :5432)")
	assert.Contains(t, kinds, "mysql (server :3306)")
	assert.Contains(t, kinds, "sqlite (file)")
}

func TestViewArgs(t *testing.T) {
	id, err := viewArgs([]string{"demo", "main", "people"})
	require.NoError(t, err)
	assert.Equal(t, core.ViewID{Connection: "demo", Database: "main", Table: "people"}, id)

	_, err = viewArgs([]string{"demo", "", "people"})
	assert.Error(t, err)
}

// execute runs fn against a command whose output is captured.
func execute(t *testing.T, cmd *cobra.Command, fn func(*cobra.Command) error) string {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetContext(context.Background())
	require.NoError(t, fn(cmd))
	return out.String()
}

func TestRunConnections_Markdown(t *testing.T) {
	p := testutil.SetupTestProject(t, "")
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	_, err := config.LoadConfig(p.ConfigPath, nil)
	require.NoError(t, err)

	out := execute(t, NewConnectionsCommand(), runConnections)
	testutil.AssertNoANSI(t, out)
	testutil.AssertValidMarkdown(t, out)
	assert.Contains(t, out, "## demo")
	assert.Contains(t, out, "**Target:** "+p.DBPath)

	out = execute(t, NewConnectionsCommand(), func(cmd *cobra.Command) error {
		return runConnectionTables(cmd, "demo", "")
	})
	assert.Contains(t, out, "# Tables in demo")
	assert.Contains(t, out, "- orders")
	assert.Contains(t, out, "- people")
}

func TestGetConfig_Defaults(t *testing.T) {
	config.ResetConfig()
	cfg := getConfig()
	assert.Equal(t, config.DefaultPageSize, cfg.PageSize)
	assert.Equal(t, config.DefaultUIPort, cfg.UI.Port)
	assert.Empty(t, cfg.Connections)
}
