// Package ui serves table views to the browser over HTTP and SSE.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/leapview/internal/dispatch"
	"github.com/leapstack-labs/leapview/internal/ui/notifier"
	"github.com/leapstack-labs/leapview/internal/ui/router"
	"github.com/leapstack-labs/leapview/pkg/adapter"
	"golang.org/x/sync/errgroup"
)

// reloadDebounce coalesces the burst of events editors emit on save.
const reloadDebounce = 100 * time.Millisecond

// ReloadFunc re-reads the connection configs from the config file.
type ReloadFunc func() (map[string]adapter.Config, error)

// Server is the browser UI server.
type Server struct {
	dispatcher   *dispatch.Dispatcher
	pool         *adapter.Pool
	sessionStore *sessions.CookieStore
	port         int
	watch        bool
	configPath   string
	reload       ReloadFunc
	logger       *slog.Logger
	notifier     *notifier.Notifier
}

// Config holds configuration for the UI server.
type Config struct {
	Dispatcher    *dispatch.Dispatcher
	Pool          *adapter.Pool
	Port          int
	Watch         bool
	SessionSecret string
	Logger        *slog.Logger
	// ConfigPath is the file watched when Watch is set.
	ConfigPath string
	Reload     ReloadFunc
}

// NewServer creates a new UI server instance.
func NewServer(cfg Config) *Server {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 30) // 30 days
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Server{
		dispatcher:   cfg.Dispatcher,
		pool:         cfg.Pool,
		sessionStore: sessionStore,
		port:         cfg.Port,
		watch:        cfg.Watch,
		configPath:   cfg.ConfigPath,
		reload:       cfg.Reload,
		logger:       logger,
		notifier:     notifier.New(),
	}
}

// Handler builds the HTTP handler with middleware and all routes.
func (s *Server) Handler() (http.Handler, error) {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	if err := router.SetupRoutes(r, s.dispatcher, s.pool, s.sessionStore, s.notifier, s.logger); err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}
	return r, nil
}

// Serve starts the UI server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting UI server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	handler, err := s.Handler()
	if err != nil {
		return err
	}

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch && s.configPath != "" && s.reload != nil {
		eg.Go(func() error {
			return s.watchConfig(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down UI server...")
		err := srv.Shutdown(shutdownCtx)
		if s.dispatcher != nil {
			s.dispatcher.Shutdown()
		}
		return err
	})

	return eg.Wait()
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// watchConfig reloads connections whenever the config file changes.
// The directory is watched rather than the file so that editors that
// replace the file on save are still seen.
func (s *Server) watchConfig(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	target, err := filepath.Abs(s.configPath)
	if err != nil {
		return fmt.Errorf("failed to resolve config path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		s.logger.Error("failed to watch config directory", "error", err)
		// Don't fail - continue without watching
	}

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if name, err := filepath.Abs(event.Name); err != nil || name != target {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(reloadDebounce, s.reloadConnections)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

// reloadConnections applies the config file's connections to the pool and
// pings every open event stream so its view is re-queried.
func (s *Server) reloadConnections() {
	configs, err := s.reload()
	if err != nil {
		s.logger.Error("config reload failed", "error", err)
		return
	}
	if err := s.pool.Reconfigure(configs); err != nil {
		s.logger.Warn("closing stale connections failed", "error", err)
	}
	sent := s.notifier.Broadcast()
	s.logger.Info("connections reloaded", "connections", len(configs), "streams", sent)
}
