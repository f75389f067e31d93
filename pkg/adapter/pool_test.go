package adapter

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leapstack-labs/leapview/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAdapter counts lifecycle calls for pool and cache tests.
type stubAdapter struct {
	connects  *atomic.Int32
	describes atomic.Int32
	closed    atomic.Bool
	fail      bool
}

func (s *stubAdapter) Connect(_ context.Context, _ Config) error {
	s.connects.Add(1)
	time.Sleep(5 * time.Millisecond)
	if s.fail {
		return errors.New("refused")
	}
	return nil
}

func (s *stubAdapter) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *stubAdapter) Execute(_ context.Context, _ string) (*core.QueryResult, error) {
	return &core.QueryResult{Columns: []string{"n"}, Rows: []core.Record{{"n": 1}}, RowCount: 1}, nil
}

func (s *stubAdapter) Describe(_ context.Context, _, table string) ([]core.Column, error) {
	s.describes.Add(1)
	return []core.Column{{Name: table + "_id", Position: 1}}, nil
}

func (s *stubAdapter) ListTables(_ context.Context, _ string) ([]string, error) {
	return []string{"t"}, nil
}

var stubConnects atomic.Int32

func init() {
	Register("pooltest", FileKind, func(_ *slog.Logger) Adapter {
		return &stubAdapter{connects: &stubConnects}
	})
	Register("pooltest_fail", FileKind, func(_ *slog.Logger) Adapter {
		return &stubAdapter{connects: &atomic.Int32{}, fail: true}
	})
}

func TestPool_SourceConnectsOnce(t *testing.T) {
	stubConnects.Store(0)
	pool := NewPool(map[string]Config{"main": {Type: "pooltest"}}, PoolOptions{})
	defer func() { _ = pool.Close() }()

	var wg sync.WaitGroup
	sources := make([]*CachedSource, 8)
	for i := range sources {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			src, err := pool.Source(context.Background(), "main")
			assert.NoError(t, err)
			sources[i] = src
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), stubConnects.Load())
	for _, src := range sources {
		assert.Same(t, sources[0], src)
	}
}

func TestPool_UnknownConnection(t *testing.T) {
	pool := NewPool(nil, PoolOptions{})
	_, err := pool.Source(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownConnection)
}

func TestPool_ConnectFailureIsNotCached(t *testing.T) {
	pool := NewPool(map[string]Config{"bad": {Type: "pooltest_fail"}}, PoolOptions{})

	_, err := pool.Source(context.Background(), "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")

	_, err = pool.Source(context.Background(), "bad")
	assert.Error(t, err)
}

func TestPool_Reconfigure(t *testing.T) {
	stubConnects.Store(0)
	pool := NewPool(map[string]Config{
		"a": {Type: "pooltest", Path: "a.db"},
		"b": {Type: "pooltest", Path: "b.db"},
	}, PoolOptions{})
	defer func() { _ = pool.Close() }()

	srcA, err := pool.Source(context.Background(), "a")
	require.NoError(t, err)
	stubA := srcA.Adapter.(*stubAdapter)
	srcB, err := pool.Source(context.Background(), "b")
	require.NoError(t, err)
	stubB := srcB.Adapter.(*stubAdapter)

	require.NoError(t, pool.Reconfigure(map[string]Config{
		"a": {Type: "pooltest", Path: "a.db"},
		"c": {Type: "pooltest", Path: "c.db"},
	}))

	assert.False(t, stubA.closed.Load(), "unchanged connection stays open")
	assert.True(t, stubB.closed.Load(), "removed connection is closed")
	assert.Equal(t, []string{"a", "c"}, pool.Names())

	again, err := pool.Source(context.Background(), "a")
	require.NoError(t, err)
	assert.Same(t, srcA, again)

	_, err = pool.Source(context.Background(), "b")
	assert.ErrorIs(t, err, ErrUnknownConnection)
}

func TestPool_Close(t *testing.T) {
	pool := NewPool(map[string]Config{"a": {Type: "pooltest"}}, PoolOptions{})
	src, err := pool.Source(context.Background(), "a")
	require.NoError(t, err)

	require.NoError(t, pool.Close())
	assert.True(t, src.Adapter.(*stubAdapter).closed.Load())
}

func TestCachedSource_Describe(t *testing.T) {
	stub := &stubAdapter{connects: &atomic.Int32{}}
	src := NewCachedSource(stub, 2, time.Minute)
	ctx := context.Background()

	cols, err := src.Describe(ctx, "main", "users")
	require.NoError(t, err)
	assert.Equal(t, "users_id", cols[0].Name)

	_, err = src.Describe(ctx, "main", "users")
	require.NoError(t, err)
	assert.Equal(t, int32(1), stub.describes.Load(), "second describe is served from cache")

	cols[0].Name = "mutated"
	again, _ := src.Describe(ctx, "main", "users")
	assert.Equal(t, "users_id", again[0].Name, "callers cannot corrupt the cache")

	src.Invalidate("main", "users")
	_, _ = src.Describe(ctx, "main", "users")
	assert.Equal(t, int32(2), stub.describes.Load())

	_, _ = src.Describe(ctx, "main", "orders")
	_, _ = src.Describe(ctx, "main", "items")
	assert.Equal(t, 2, src.Len(), "cache is bounded")

	src.Purge()
	assert.Equal(t, 0, src.Len())
}

func TestCachedSource_ExecuteIsNotCached(t *testing.T) {
	stub := &stubAdapter{connects: &atomic.Int32{}}
	src := NewCachedSource(stub, 0, 0)

	res, err := src.Execute(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowCount)
}
