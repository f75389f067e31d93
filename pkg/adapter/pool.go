package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultConnectTimeout bounds a single Connect call.
const DefaultConnectTimeout = 10 * time.Second

// ErrUnknownConnection is returned for a connection name with no config.
var ErrUnknownConnection = errors.New("unknown connection")

// PoolOptions configures a Pool.
type PoolOptions struct {
	Logger         *slog.Logger
	CacheSize      int
	CacheTTL       time.Duration
	ConnectTimeout time.Duration
}

// Pool owns one lazily connected adapter per named connection.
// Concurrent first requests for the same name share a single Connect.
type Pool struct {
	mu      sync.Mutex
	configs map[string]Config
	open    map[string]*CachedSource
	group   singleflight.Group
	opts    PoolOptions
	logger  *slog.Logger
}

// NewPool creates a pool over the given named connection configs.
func NewPool(configs map[string]Config, opts PoolOptions) *Pool {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	return &Pool{
		configs: cloneConfigs(configs),
		open:    make(map[string]*CachedSource),
		opts:    opts,
		logger:  logger,
	}
}

// Names returns the configured connection names (sorted).
func (p *Pool) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.configs))
	for name := range p.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Config returns the config of a named connection.
func (p *Pool) Config(name string) (Config, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cfg, ok := p.configs[name]
	return cfg, ok
}

// Source returns the connected, metadata-cached adapter for name,
// connecting on first use.
func (p *Pool) Source(ctx context.Context, name string) (*CachedSource, error) {
	p.mu.Lock()
	if src, ok := p.open[name]; ok {
		p.mu.Unlock()
		return src, nil
	}
	cfg, ok := p.configs[name]
	p.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownConnection, name)
	}

	v, err, _ := p.group.Do(name, func() (any, error) {
		p.mu.Lock()
		if src, ok := p.open[name]; ok {
			p.mu.Unlock()
			return src, nil
		}
		p.mu.Unlock()

		a, err := NewAdapter(cfg, p.logger.With(slog.String("connection", name)))
		if err != nil {
			return nil, err
		}

		connectCtx, cancel := context.WithTimeout(ctx, p.opts.ConnectTimeout)
		defer cancel()
		if err := a.Connect(connectCtx, cfg); err != nil {
			return nil, fmt.Errorf("failed to connect %q: %w", name, err)
		}
		p.logger.Info("connected", slog.String("connection", name), slog.String("type", cfg.Type))

		src := NewCachedSource(a, p.opts.CacheSize, p.opts.CacheTTL)
		p.mu.Lock()
		defer p.mu.Unlock()
		// A Reconfigure may have removed or changed the connection meanwhile.
		if current, ok := p.configs[name]; !ok || !reflect.DeepEqual(current, cfg) {
			_ = a.Close()
			return nil, fmt.Errorf("connection %q was reconfigured while connecting", name)
		}
		p.open[name] = src
		return src, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*CachedSource), nil
}

// Reconfigure replaces the connection configs. Open adapters whose config
// changed or disappeared are closed; unchanged ones are kept.
func (p *Pool) Reconfigure(configs map[string]Config) error {
	p.mu.Lock()
	var stale []*CachedSource
	for name, src := range p.open {
		next, ok := configs[name]
		if !ok || !reflect.DeepEqual(next, p.configs[name]) {
			stale = append(stale, src)
			delete(p.open, name)
			p.logger.Info("connection reconfigured", slog.String("connection", name), slog.Bool("removed", !ok))
		}
	}
	p.configs = cloneConfigs(configs)
	p.mu.Unlock()

	var errs []error
	for _, src := range stale {
		if err := src.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every open adapter.
func (p *Pool) Close() error {
	p.mu.Lock()
	open := p.open
	p.open = make(map[string]*CachedSource)
	p.mu.Unlock()

	var errs []error
	for name, src := range open {
		if err := src.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func cloneConfigs(in map[string]Config) map[string]Config {
	out := make(map[string]Config, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
