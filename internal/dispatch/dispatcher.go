// Package dispatch runs the host side of table views: it owns the view
// state store, turns commands into state transitions and queries, and
// pushes results back over each view's channel.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/leapstack-labs/leapview/internal/clipboard"
	"github.com/leapstack-labs/leapview/internal/export"
	"github.com/leapstack-labs/leapview/internal/protocol"
	"github.com/leapstack-labs/leapview/internal/view"
	"github.com/leapstack-labs/leapview/pkg/adapter"
	"github.com/leapstack-labs/leapview/pkg/core"
)

// Sources resolves a connection name to a data source.
type Sources interface {
	Source(ctx context.Context, connection string) (core.DataSource, error)
}

// SourcesFunc adapts a function to Sources.
type SourcesFunc func(ctx context.Context, connection string) (core.DataSource, error)

// Source implements Sources.
func (f SourcesFunc) Source(ctx context.Context, connection string) (core.DataSource, error) {
	return f(ctx, connection)
}

// PoolSources resolves sources from a connection pool.
func PoolSources(p *adapter.Pool) Sources {
	return SourcesFunc(func(ctx context.Context, connection string) (core.DataSource, error) {
		src, err := p.Source(ctx, connection)
		if err != nil {
			return nil, err
		}
		return src, nil
	})
}

// Options configures a Dispatcher.
type Options struct {
	Logger  *slog.Logger
	Sources Sources
	// PageSize seeds newly opened views. Zero means core.DefaultPageSize.
	PageSize int
	// QueryTimeout bounds each query. Zero means no limit.
	QueryTimeout time.Duration
	Exports      export.Sink
	Clipboard    clipboard.Writer
}

// Dispatcher serves any number of open views, each from its own goroutine.
type Dispatcher struct {
	logger  *slog.Logger
	opts    Options
	store   *view.Store
	mu      sync.Mutex
	session map[core.ViewID]*session
	wg      sync.WaitGroup
}

// New creates a Dispatcher.
func New(opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Exports == nil {
		opts.Exports = export.DirSink{}
	}
	if opts.Clipboard == nil {
		opts.Clipboard = &clipboard.Memory{}
	}
	return &Dispatcher{
		logger:  logger,
		opts:    opts,
		store:   view.NewStore(opts.PageSize),
		session: make(map[core.ViewID]*session),
	}
}

// Store exposes the view state store.
func (d *Dispatcher) Store() *view.Store {
	return d.store
}

// Open describes the table behind id, seeds its state, starts serving
// commands from conn and pushes the first page. Opening an id that is
// already open replaces the previous session.
func (d *Dispatcher) Open(ctx context.Context, id core.ViewID, conn protocol.Conn) error {
	if d.opts.Sources == nil {
		return errors.New("no data sources configured")
	}
	src, err := d.opts.Sources.Source(ctx, id.Connection)
	if err != nil {
		return fmt.Errorf("failed to resolve connection %s: %w", id.Connection, err)
	}
	columns, err := src.Describe(ctx, id.Database, id.Table)
	if err != nil {
		return fmt.Errorf("failed to describe %s: %w", id, err)
	}

	d.Close(id)

	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &session{
		id:      id,
		conn:    conn,
		sources: d.opts.Sources,
		columns: columns,
		cancel:  cancel,
		done:    make(chan struct{}),
		logger:  d.logger.With("view", id.String()),
	}
	d.store.Open(id, d.opts.PageSize)

	d.mu.Lock()
	d.session[id] = s
	d.mu.Unlock()

	s.logger.Info("view opened", "columns", len(columns))
	d.respond(sctx, s, protocol.CmdReady, func() (core.TableViewState, error) {
		return d.store.Get(id)
	})

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer close(s.done)
		d.serve(sctx, s)
	}()
	return nil
}

// Close stops serving id and forgets its state. Closing an unknown id is a
// no-op.
func (d *Dispatcher) Close(id core.ViewID) {
	d.mu.Lock()
	s, ok := d.session[id]
	delete(d.session, id)
	d.mu.Unlock()
	if !ok {
		return
	}
	s.cancel()
	<-s.done
	d.store.Close(id)
	s.logger.Info("view closed")
}

// Shutdown closes every open view and waits for their goroutines.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	ids := make([]core.ViewID, 0, len(d.session))
	for id := range d.session {
		ids = append(ids, id)
	}
	d.mu.Unlock()

	for _, id := range ids {
		d.Close(id)
	}
	d.wg.Wait()
}

// Views returns the ids of the open views.
func (d *Dispatcher) Views() []core.ViewID {
	return d.store.IDs()
}

type session struct {
	id      core.ViewID
	conn    protocol.Conn
	sources Sources
	columns []core.Column
	cancel  context.CancelFunc
	done    chan struct{}
	logger  *slog.Logger
}

// execute resolves the view's connection on every call so that a
// reconfigured pool is picked up by sessions that are already open.
func (s *session) execute(ctx context.Context, q string) (*core.QueryResult, error) {
	src, err := s.sources.Source(ctx, s.id.Connection)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve connection %s: %w", s.id.Connection, err)
	}
	return src.Execute(ctx, q)
}

// serve handles commands in arrival order until the channel closes or the
// session is cancelled.
func (d *Dispatcher) serve(ctx context.Context, s *session) {
	for {
		data, err := s.conn.Recv(ctx)
		if err != nil {
			if !errors.Is(err, protocol.ErrClosed) && ctx.Err() == nil {
				s.logger.Warn("channel receive failed", "error", err)
			}
			return
		}
		cmd, err := protocol.DecodeCommand(data)
		if err != nil {
			s.logger.Warn("dropping message", "error", err)
			continue
		}
		d.handle(ctx, s, cmd)
	}
}
