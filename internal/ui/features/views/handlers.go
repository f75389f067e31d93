// Package views exposes table views to the browser. Commands arrive as
// datastar signals and host messages are streamed back as signal patches.
package views

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/leapview/internal/dispatch"
	"github.com/leapstack-labs/leapview/internal/protocol"
	"github.com/leapstack-labs/leapview/internal/ui/notifier"
	"github.com/leapstack-labs/leapview/pkg/adapter"
	"github.com/leapstack-labs/leapview/pkg/core"
	"github.com/starfederation/datastar-go/datastar"
)

const (
	sessionName = "leapview"
	clientIDKey = "client_id"
)

// Handlers provides HTTP handlers for the views feature.
type Handlers struct {
	dispatcher   *dispatch.Dispatcher
	pool         *adapter.Pool
	sessionStore sessions.Store
	notifier     *notifier.Notifier
	logger       *slog.Logger
	validate     *validator.Validate
	remotes      *remotes
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	d *dispatch.Dispatcher,
	pool *adapter.Pool,
	sessionStore sessions.Store,
	notify *notifier.Notifier,
	logger *slog.Logger,
) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		dispatcher:   d,
		pool:         pool,
		sessionStore: sessionStore,
		notifier:     notify,
		logger:       logger,
		validate:     validator.New(),
		remotes:      newRemotes(),
	}
}

// Open opens the view named by the signals and replies with its endpoints.
// The first page is queued on the view's event stream.
func (h *Handlers) Open(w http.ResponseWriter, r *http.Request) {
	var signals OpenSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(signals); err != nil {
		http.Error(w, fmt.Sprintf("invalid open request: %v", err), http.StatusBadRequest)
		return
	}

	owner := h.clientID(w, r)
	id := signals.ViewID()
	host, client := protocol.Pipe()

	sse := datastar.NewSSE(w, r)
	if err := h.dispatcher.Open(r.Context(), id, host); err != nil {
		_ = host.Close()
		h.logger.Warn("failed to open view", "view", id.String(), "client", owner, "error", err)
		_ = sse.MarshalAndPatchSignals(map[string]any{"error": err.Error()})
		_ = sse.ConsoleError(err)
		return
	}

	rm := &remote{id: id, conn: client, owner: owner}
	if prev := h.remotes.put(rm); prev != nil {
		_ = prev.conn.Close()
	}
	h.logger.Info("view opened from browser", "view", id.String(), "client", owner)
	_ = sse.MarshalAndPatchSignals(map[string]any{"view": rm.info(), "error": ""})
}

// Command forwards one protocol command to the view's host side.
func (h *Handlers) Command(w http.ResponseWriter, r *http.Request) {
	rm, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var raw json.RawMessage
	if err := datastar.ReadSignals(r, &raw); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cmd, err := protocol.DecodeCommand(raw)
	if err != nil {
		h.logger.Warn("rejecting browser command", "view", rm.id.String(), "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// Re-encoding drops the unrelated signals the browser sends along.
	if err := protocol.SendCommand(rm.conn, cmd); err != nil {
		http.Error(w, err.Error(), http.StatusGone)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Events streams host messages for one view until the request ends. A view
// has at most one stream. A stream that reconnects asks for the current
// page again, as does a connection reload.
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	rm, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if !rm.streaming.CompareAndSwap(false, true) {
		http.Error(w, "view already has an event stream", http.StatusConflict)
		return
	}
	defer rm.streaming.Store(false)

	ctx := r.Context()
	sse := datastar.NewSSE(w, r)

	// The reader is stopped and joined before the stream is released, so
	// a message it took off the channel is held for the next stream.
	readCtx, stopReading := context.WithCancel(context.WithoutCancel(ctx))
	messages := make(chan []byte)
	reading := make(chan struct{})
	go func() {
		defer close(reading)
		defer close(messages)
		rm.pump(readCtx, messages)
	}()
	defer func() {
		stopReading()
		<-reading
	}()

	held := rm.takeHeld()
	for i, data := range held {
		if err := sse.PatchSignals(messageSignals(data)); err != nil {
			rm.hold(held[i:]...)
			return
		}
	}

	updates := h.notifier.Subscribe()
	defer h.notifier.Unsubscribe(updates)

	if rm.served.Swap(true) {
		h.resync(rm)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			h.resync(rm)
		case data, ok := <-messages:
			if !ok {
				return
			}
			if err := sse.PatchSignals(messageSignals(data)); err != nil {
				h.logger.Debug("event stream closed", "view", rm.id.String(), "error", err)
				rm.hold(data)
				return
			}
		}
	}
}

// Close closes the view and its channel.
func (h *Handlers) Close(w http.ResponseWriter, r *http.Request) {
	id, err := viewIDParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rm, ok := h.remotes.remove(id)
	if !ok {
		http.Error(w, core.ErrNoActiveView.Error(), http.StatusNotFound)
		return
	}
	h.dispatcher.Close(id)
	_ = rm.conn.Close()
	w.WriteHeader(http.StatusNoContent)
}

// List returns the views opened through the UI.
func (h *Handlers) List(w http.ResponseWriter, _ *http.Request) {
	rs := h.remotes.list()
	out := make([]ViewInfo, 0, len(rs))
	for _, rm := range rs {
		out = append(out, rm.info())
	}
	slices.SortFunc(out, func(a, b ViewInfo) int { return strings.Compare(a.ID, b.ID) })
	writeJSON(w, out)
}

// Connections returns the configured connections.
func (h *Handlers) Connections(w http.ResponseWriter, _ *http.Request) {
	names := h.pool.Names()
	out := make([]ConnectionInfo, 0, len(names))
	for _, name := range names {
		cfg, _ := h.pool.Config(name)
		out = append(out, ConnectionInfo{Name: name, Type: cfg.Type})
	}
	writeJSON(w, out)
}

// Tables lists the tables of a connection, optionally within ?database=.
func (h *Handlers) Tables(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "connection")
	src, err := h.pool.Source(r.Context(), name)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, adapter.ErrUnknownConnection) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	tables, err := src.ListTables(r.Context(), r.URL.Query().Get("database"))
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to list tables: %v", err), http.StatusBadGateway)
		return
	}
	writeJSON(w, tables)
}

// resync asks the host to push the view's current source again.
func (h *Handlers) resync(rm *remote) {
	if err := protocol.SendCommand(rm.conn, protocol.Ready{}); err != nil {
		h.logger.Debug("resync skipped", "view", rm.id.String(), "error", err)
	}
}

func (h *Handlers) lookup(w http.ResponseWriter, r *http.Request) (*remote, bool) {
	id, err := viewIDParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	rm, ok := h.remotes.get(id)
	if !ok {
		http.Error(w, core.ErrNoActiveView.Error(), http.StatusNotFound)
		return nil, false
	}
	return rm, true
}

// clientID returns the browser's id from its session cookie, issuing one
// on first contact. It must run before any response body is written.
func (h *Handlers) clientID(w http.ResponseWriter, r *http.Request) string {
	session, err := h.sessionStore.Get(r, sessionName)
	if err != nil {
		h.logger.Debug("discarding unreadable session", "error", err)
	}
	if session == nil {
		return ""
	}
	if id, ok := session.Values[clientIDKey].(string); ok && id != "" {
		return id
	}
	id := uuid.NewString()
	session.Values[clientIDKey] = id
	if err := session.Save(r, w); err != nil {
		h.logger.Warn("failed to save session", "error", err)
	}
	return id
}

func viewIDParam(r *http.Request) (core.ViewID, error) {
	return core.ParseViewID(strings.Join([]string{
		chi.URLParam(r, "connection"),
		chi.URLParam(r, "database"),
		chi.URLParam(r, "table"),
	}, "/"))
}

// messageSignals wraps an encoded host message as the "message" signal.
func messageSignals(data []byte) []byte {
	return fmt.Appendf(nil, `{"message":%s}`, data)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
