package adapter

import (
	"context"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/leapstack-labs/leapview/pkg/core"
)

// Default metadata cache bounds.
const (
	DefaultCacheSize = 256
	DefaultCacheTTL  = 5 * time.Minute
)

// CachedSource wraps an Adapter and memoizes Describe results per table.
// Execute is never cached.
type CachedSource struct {
	Adapter
	columns *expirable.LRU[string, []core.Column]
}

// NewCachedSource wraps a with a bounded, expiring column cache.
// Non-positive size or ttl fall back to the defaults.
func NewCachedSource(a Adapter, size int, ttl time.Duration) *CachedSource {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedSource{
		Adapter: a,
		columns: expirable.NewLRU[string, []core.Column](size, nil, ttl),
	}
}

// Describe returns cached column metadata, loading it on a miss.
func (c *CachedSource) Describe(ctx context.Context, database, table string) ([]core.Column, error) {
	key := cacheKey(database, table)
	if cols, ok := c.columns.Get(key); ok {
		return slices.Clone(cols), nil
	}

	cols, err := c.Adapter.Describe(ctx, database, table)
	if err != nil {
		return nil, err
	}
	c.columns.Add(key, slices.Clone(cols))
	return cols, nil
}

// Invalidate drops the cached metadata of one table.
func (c *CachedSource) Invalidate(database, table string) {
	c.columns.Remove(cacheKey(database, table))
}

// Purge drops all cached metadata.
func (c *CachedSource) Purge() {
	c.columns.Purge()
}

// Len reports the number of cached tables.
func (c *CachedSource) Len() int {
	return c.columns.Len()
}

func cacheKey(database, table string) string {
	return database + ":" + table
}
