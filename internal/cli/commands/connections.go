package commands

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapview/internal/cli/output"
	"github.com/leapstack-labs/leapview/pkg/adapter"
	"github.com/spf13/cobra"
)

// connectionInfo is the listing entry for one configured connection.
type connectionInfo struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Target string `json:"target"`
	Schema string `json:"schema,omitempty"`
}

// NewConnectionsCommand creates the connections command.
func NewConnectionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "connections",
		Aliases: []string{"conn"},
		Short:   "List configured connections",
		Long: `List the connections defined in leapview.yaml.

Output adapts to environment:
  - Terminal: Styled table
  - Piped/Scripted: Markdown format

Use --output to override: auto, text, markdown, json`,
		Example: `  # List connections
  leapview connections

  # List the tables of one connection
  leapview connections tables demo`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConnections(cmd)
		},
	}

	cmd.AddCommand(newConnectionTablesCommand())
	return cmd
}

func runConnections(cmd *cobra.Command) error {
	cmdCtx := NewCommandContextWithoutPool(cmd)
	configs, err := cmdCtx.Cfg.AdapterConfigs()
	if err != nil {
		return err
	}

	infos := make([]connectionInfo, 0, len(configs))
	for _, name := range cmdCtx.Cfg.ConnectionNames() {
		c := configs[name]
		infos = append(infos, connectionInfo{Name: name, Type: c.Type, Target: adapter.Target(c), Schema: c.Schema})
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(infos)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, fmt.Sprintf("Connections (%d)", len(infos))))
		for _, info := range infos {
			r.Println("")
			r.Println(output.FormatHeader(2, info.Name))
			r.Println(output.FormatKeyValue("Type", info.Type))
			r.Println(output.FormatKeyValue("Target", info.Target))
			if info.Schema != "" {
				r.Println(output.FormatKeyValue("Schema", info.Schema))
			}
		}
		return nil
	}

	if len(infos) == 0 {
		r.Muted("No connections configured. Run leapview demo to create one.")
		r.Muted("Adapters: " + adapterKinds())
		return nil
	}
	t := table.NewWriter()
	t.SetOutputMirror(r.Out())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "Type", "Target", "Schema"})
	for _, info := range infos {
		t.AppendRow(table.Row{info.Name, info.Type, info.Target, info.Schema})
	}
	t.Render()
	r.Muted("Adapters: " + adapterKinds())
	return nil
}

// adapterKinds lists the registered adapter types, e.g. "duckdb (file)".
func adapterKinds() string {
	names := adapter.ListAdapters()
	parts := make([]string, len(names))
	for i, name := range names {
		kind, _ := adapter.KindOf(name)
		parts[i] = fmt.Sprintf("%s (%s)", name, kind)
	}
	return strings.Join(parts, ", ")
}

func newConnectionTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "tables <connection> [database]",
		Short:             "List the tables of a connection",
		Args:              cobra.RangeArgs(1, 2),
		ValidArgsFunction: completeConnections,
		RunE: func(cmd *cobra.Command, args []string) error {
			database := ""
			if len(args) == 2 {
				database = args[1]
			}
			return runConnectionTables(cmd, args[0], database)
		},
	}
}

func runConnectionTables(cmd *cobra.Command, name, database string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	src, err := cmdCtx.Pool.Source(cmd.Context(), name)
	if err != nil {
		return err
	}
	tables, err := src.ListTables(cmd.Context(), database)
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(tables)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, fmt.Sprintf("Tables in %s (%d)", name, len(tables))))
		r.Println("")
		for _, t := range tables {
			r.Println("- " + t)
		}
		return nil
	}

	r.Header(1, fmt.Sprintf("%s: %s %s", name, humanize.Comma(int64(len(tables))), plural(len(tables), "table", "tables")))
	for _, t := range tables {
		r.Println("  " + t)
	}
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
