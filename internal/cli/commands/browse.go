package commands

import (
	"os"
	"path/filepath"
	"time"

	"github.com/leapstack-labs/leapview/internal/client"
	"github.com/leapstack-labs/leapview/internal/clipboard"
	"github.com/leapstack-labs/leapview/internal/protocol"
	"github.com/leapstack-labs/leapview/internal/repl"
	"github.com/spf13/cobra"
)

// BrowseOptions holds options for the browse command.
type BrowseOptions struct {
	HistoryFile string
	ExportDir   string
}

// NewBrowseCommand creates the browse command.
func NewBrowseCommand() *cobra.Command {
	opts := &BrowseOptions{}

	cmd := &cobra.Command{
		Use:   "browse <connection> <database> <table>",
		Short: "Browse a table interactively in the terminal",
		Long: `Open a table view in an interactive terminal session.

Pages, sorting and filters are evaluated by the database. The find command
narrows the rows already on screen without another query. Type help inside
the session for the full command list.`,
		Example: `  # Browse the demo database
  leapview demo
  leapview browse demo main people

  # Browse a postgres table
  leapview browse warehouse analytics public.orders`,
		Args:              cobra.ExactArgs(3),
		ValidArgsFunction: completeConnections,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.HistoryFile, "history", defaultHistoryFile(), "Command history file")
	cmd.Flags().StringVar(&opts.ExportDir, "export-dir", "", "Directory exports are written to")

	return cmd
}

func runBrowse(cmd *cobra.Command, args []string, opts *BrowseOptions) error {
	id, err := viewArgs(args)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	var clip clipboard.Writer = clipboard.NewTerminal()
	if !cmdCtx.Renderer.IsTerminal() {
		clip = &clipboard.Memory{}
	}
	d := cmdCtx.NewDispatcher(clip, opts.ExportDir)
	defer d.Shutdown()

	ctx := cmd.Context()
	host, conn := protocol.Pipe()
	if err := d.Open(ctx, id, host); err != nil {
		return err
	}
	defer d.Close(id)

	if opts.HistoryFile != "" {
		if err := os.MkdirAll(filepath.Dir(opts.HistoryFile), 0o750); err != nil {
			cmdCtx.Logger.Warn("history disabled", "error", err)
			opts.HistoryFile = ""
		}
	}

	c := client.New(conn, cmdCtx.Cfg.PageSize, cmdCtx.Logger)
	defer func() { _ = c.Close() }()

	session := repl.New(repl.Options{
		Client:       c,
		View:         id,
		Renderer:     cmdCtx.Renderer,
		HistoryFile:  opts.HistoryFile,
		Logger:       cmdCtx.Logger,
		ReplyTimeout: replyTimeout(cmdCtx),
	})
	if err := session.Start(ctx); err != nil {
		return err
	}
	return session.Run(ctx)
}

// defaultHistoryFile keeps history under the user cache directory.
func defaultHistoryFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "leapview", "history")
}

// replyTimeout allows a query its full timeout before the client gives up.
func replyTimeout(c *CommandContext) time.Duration {
	if t := c.Cfg.QueryTimeout; t > 0 {
		return t + 5*time.Second
	}
	return repl.DefaultReplyTimeout
}
