package views

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/leapview/internal/dispatch"
	"github.com/leapstack-labs/leapview/internal/ui/notifier"
	"github.com/leapstack-labs/leapview/pkg/adapter"
)

// SetupRoutes registers the views feature routes.
func SetupRoutes(
	router chi.Router,
	d *dispatch.Dispatcher,
	pool *adapter.Pool,
	sessionStore sessions.Store,
	notify *notifier.Notifier,
	logger *slog.Logger,
) error {
	handlers := NewHandlers(d, pool, sessionStore, notify, logger)

	router.Route("/api/connections", func(r chi.Router) {
		r.Get("/", handlers.Connections)
		r.Get("/{connection}/tables", handlers.Tables)
	})

	router.Route("/api/views", func(r chi.Router) {
		r.Get("/", handlers.List)
		r.Post("/open", handlers.Open)
		r.Route("/{connection}/{database}/{table}", func(r chi.Router) {
			r.Get("/events", handlers.Events)
			r.Post("/commands", handlers.Command)
			r.Delete("/", handlers.Close)
		})
	})

	return nil
}
