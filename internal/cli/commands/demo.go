package commands

import (
	"fmt"
	"path/filepath"

	"github.com/leapstack-labs/leapview/internal/demo"
	"github.com/spf13/cobra"
)

// DemoOptions holds options for the demo command.
type DemoOptions struct {
	Path string
}

// NewDemoCommand creates the demo command.
func NewDemoCommand() *cobra.Command {
	opts := &DemoOptions{}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Create a sample sqlite database",
		Long: `Create a sqlite database with sample people and orders tables.

The command prints the leapview.yaml snippet that registers the database.
Running it again on an existing demo database leaves the data unchanged.`,
		Example: `  leapview demo
  leapview demo --path data/demo.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDemo(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Path, "path", "leapview-demo.db", "Where to create the database")
	return cmd
}

func runDemo(cmd *cobra.Command, opts *DemoOptions) error {
	cmdCtx := NewCommandContextWithoutPool(cmd)

	path, err := filepath.Abs(opts.Path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", opts.Path, err)
	}
	if err := demo.Create(cmd.Context(), path); err != nil {
		return err
	}
	cmdCtx.Logger.Info("demo database ready", "path", path)

	r := cmdCtx.Renderer
	r.Success("Demo database ready at " + path)
	r.Println("")
	r.Println("Add it to leapview.yaml:")
	r.Println("")
	r.Println(demo.ConfigSnippet(path))
	r.Muted(fmt.Sprintf("Then run: leapview browse %s main %s", demo.ConnectionName, demo.Tables[0]))
	return nil
}
