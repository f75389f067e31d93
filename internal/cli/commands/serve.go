package commands

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/leapstack-labs/leapview/internal/cli/config"
	"github.com/leapstack-labs/leapview/internal/clipboard"
	sharedcfg "github.com/leapstack-labs/leapview/internal/config"
	"github.com/leapstack-labs/leapview/internal/ui"
	"github.com/leapstack-labs/leapview/pkg/adapter"
	"github.com/spf13/cobra"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	NoBrowser bool
	ExportDir string
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve table views to the browser",
		Long: `Start a local web server that hosts table views for browser clients.

Each browser tab opens a view on a connection's table, and the server streams
pages over SSE as the tab navigates, sorts and filters. With --watch the
server reloads the connections section of the config file when it changes.`,
		Example: `  # Start on the configured port
  leapview serve

  # Start on a custom port and follow config edits
  leapview serve --port 3000 --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().Int("port", 0, fmt.Sprintf("Port to serve on (default: %d)", config.DefaultUIPort))
	cmd.Flags().Bool("watch", false, "Reload connections when the config file changes")
	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "Don't auto-open browser")
	cmd.Flags().StringVar(&opts.ExportDir, "export-dir", "", "Directory exports are written to")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	cfg := cmdCtx.Cfg

	secret := cfg.UI.SessionSecret
	if secret == "" {
		if secret, err = generateSessionSecret(); err != nil {
			return err
		}
	}

	d := cmdCtx.NewDispatcher(&clipboard.Memory{}, opts.ExportDir)

	serverCfg := ui.Config{
		Dispatcher:    d,
		Pool:          cmdCtx.Pool,
		Port:          cfg.UI.Port,
		Watch:         cfg.UI.Watch,
		SessionSecret: secret,
		Logger:        cmdCtx.Logger,
	}
	if path := config.GetConfigFileUsed(); path != "" {
		serverCfg.ConfigPath = path
		serverCfg.Reload = func() (map[string]adapter.Config, error) {
			return sharedcfg.LoadConnections(path)
		}
	} else if cfg.UI.Watch {
		cmdCtx.Renderer.Warning("No config file found, --watch has nothing to follow")
	}

	server := ui.NewServer(serverCfg)

	url := fmt.Sprintf("http://localhost:%d", cfg.UI.Port)
	if !opts.NoBrowser && cmdCtx.Renderer.IsTerminal() {
		go openBrowser(url)
	}

	r := cmdCtx.Renderer
	r.Info(fmt.Sprintf("Serving %d connection(s) on %s", len(cmdCtx.Pool.Names()), url))
	r.Muted("Press Ctrl+C to stop")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	return server.Serve(ctx)
}

// generateSessionSecret returns a random key for the session cookie store.
// Sessions do not survive a restart unless ui.session_secret is configured.
func generateSessionSecret() (string, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate session secret: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url) //nolint:noctx
	case "linux":
		cmd = exec.Command("xdg-open", url) //nolint:noctx
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url) //nolint:noctx
	default:
		return
	}

	_ = cmd.Start()
}
