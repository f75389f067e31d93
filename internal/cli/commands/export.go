package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/leapstack-labs/leapview/internal/client"
	"github.com/leapstack-labs/leapview/internal/clipboard"
	"github.com/leapstack-labs/leapview/internal/export"
	"github.com/leapstack-labs/leapview/internal/protocol"
	"github.com/leapstack-labs/leapview/internal/repl"
	"github.com/leapstack-labs/leapview/pkg/core"
	"github.com/spf13/cobra"
)

// ExportOptions holds options for the export command.
type ExportOptions struct {
	Format  string
	Dir     string
	Filters []string
	Sort    string
	Desc    bool
	Query   string
}

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:   "export <connection> <database> <table>",
		Short: "Export a table view to a file",
		Long: `Export a table to CSV, JSON, YAML or SQL INSERT statements without
opening an interactive session.

Without --filter or --sort the whole table is exported. With them, the rows
matching the filters are exported in sort order. --query exports the result
of a custom SQL query instead.`,
		Example: `  # Export a whole table as CSV
  leapview export demo main people

  # Export adults in Lisbon as JSON, oldest first
  leapview export demo main people -f json --filter "age >= 18" --filter "city = Lisbon" --sort age --desc

  # Export a query result as INSERT statements
  leapview export demo main orders -f sql --query "SELECT * FROM orders WHERE total > 400"`,
		Args:              cobra.ExactArgs(3),
		ValidArgsFunction: completeConnections,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "csv", "Export format: csv, json, sql, yaml")
	cmd.Flags().StringVar(&opts.Dir, "dir", "", "Directory to write to (default: export.dir)")
	cmd.Flags().StringArrayVar(&opts.Filters, "filter", nil, `Filter as "<column> <operator> [value]" (repeatable)`)
	cmd.Flags().StringVar(&opts.Sort, "sort", "", "Column to sort by")
	cmd.Flags().BoolVar(&opts.Desc, "desc", false, "Sort descending")
	cmd.Flags().StringVar(&opts.Query, "query", "", "Export the result of a custom query")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return export.Formats, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runExport(cmd *cobra.Command, args []string, opts *ExportOptions) error {
	id, err := viewArgs(args)
	if err != nil {
		return err
	}
	steps, err := exportSteps(opts)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	d := cmdCtx.NewDispatcher(&clipboard.Memory{}, opts.Dir)
	defer d.Shutdown()

	ctx, cancel := context.WithTimeout(cmd.Context(), replyTimeout(cmdCtx)*time.Duration(len(steps)+1))
	defer cancel()

	host, conn := protocol.Pipe()
	if err := d.Open(ctx, id, host); err != nil {
		return err
	}
	defer d.Close(id)

	c := client.New(conn, cmdCtx.Cfg.PageSize, cmdCtx.Logger)
	defer func() { _ = c.Close() }()

	if _, err := await(ctx, c, nil, protocol.MsgUpdateData); err != nil {
		return fmt.Errorf("failed to load %s: %w", id, err)
	}
	for _, step := range steps {
		if _, err := await(ctx, c, step, protocol.MsgUpdateData); err != nil {
			return err
		}
	}

	msg, err := await(ctx, c, protocol.Export{Format: opts.Format, SelectedOnly: opts.filtered()}, protocol.MsgNotice)
	if err != nil {
		return err
	}
	cmdCtx.Renderer.Success(msg.(protocol.Notice).Message)
	return nil
}

func (o *ExportOptions) filtered() bool {
	return len(o.Filters) > 0 || o.Sort != ""
}

// exportSteps converts the flags into the commands that shape the view
// before it is exported.
func exportSteps(opts *ExportOptions) ([]protocol.Command, error) {
	if err := protocol.ValidateCommand(protocol.Export{Format: opts.Format}); err != nil {
		return nil, fmt.Errorf("unsupported export format %q", opts.Format)
	}
	if opts.Query != "" {
		if opts.filtered() {
			return nil, fmt.Errorf("--query cannot be combined with --filter or --sort")
		}
		return []protocol.Command{protocol.ExecuteQuery{Query: opts.Query}}, nil
	}

	dir := core.Asc
	if opts.Desc {
		dir = core.Desc
	}
	if len(opts.Filters) == 0 {
		if opts.Sort == "" {
			return nil, nil
		}
		return []protocol.Command{protocol.Sort{Column: opts.Sort, Direction: string(dir)}}, nil
	}

	filters := make([]core.Filter, 0, len(opts.Filters))
	for _, raw := range opts.Filters {
		f, err := repl.ParseFilter(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid filter %q: %w", raw, err)
		}
		filters = append(filters, f)
	}
	step := protocol.Filter{Filters: filters}
	if opts.Sort != "" {
		step.SortColumn = opts.Sort
		step.SortDirection = string(dir)
	}
	return []protocol.Command{step}, nil
}

// await sends cmd (if any) and waits for a message of kind want. An error
// message from the host is returned as an error.
func await(ctx context.Context, c *client.Client, cmd protocol.Command, want string) (protocol.Message, error) {
	if err := c.Send(cmd); err != nil {
		return nil, err
	}
	msg, err := c.Await(ctx, want)
	if err != nil {
		return nil, err
	}
	if e, ok := msg.(protocol.Error); ok {
		return nil, fmt.Errorf("%s failed: %s", e.Command, e.Message)
	}
	return msg, nil
}
