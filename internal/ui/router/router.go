// Package router sets up HTTP routes for the UI server.
package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/leapview/internal/dispatch"
	viewsFeature "github.com/leapstack-labs/leapview/internal/ui/features/views"
	"github.com/leapstack-labs/leapview/internal/ui/notifier"
	"github.com/leapstack-labs/leapview/internal/ui/resources"
	"github.com/leapstack-labs/leapview/pkg/adapter"
)

// SetupRoutes configures all routes for the UI server.
func SetupRoutes(
	router chi.Router,
	d *dispatch.Dispatcher,
	pool *adapter.Pool,
	sessionStore sessions.Store,
	notify *notifier.Notifier,
	logger *slog.Logger,
) error {
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Static assets
	router.Handle("/static/*", resources.Handler())
	router.Handle("/", resources.Index())

	if err := viewsFeature.SetupRoutes(router, d, pool, sessionStore, notify, logger); err != nil {
		return err
	}

	return nil
}
