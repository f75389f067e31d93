// Package features provides shared test utilities for UI feature tests.
package features

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapview/internal/dispatch"
	"github.com/leapstack-labs/leapview/internal/export"
	"github.com/leapstack-labs/leapview/internal/testutil"
	"github.com/leapstack-labs/leapview/internal/ui/notifier"
	"github.com/leapstack-labs/leapview/pkg/adapter"

	// Import adapter packages to ensure adapters are registered via init()
	_ "github.com/leapstack-labs/leapview/pkg/adapters/sqlite"
)

// TestTable is a table seeded into the fixture database.
type TestTable struct {
	Name string
	// DDL defines the columns, e.g. "id INTEGER PRIMARY KEY, name TEXT".
	DDL  string
	Rows []string
}

// TestFixture holds all dependencies needed for UI handler tests.
type TestFixture struct {
	Pool         *adapter.Pool
	Dispatcher   *dispatch.Dispatcher
	Notifier     *notifier.Notifier
	SessionStore *sessions.CookieStore
	ExportDir    string
}

// Connection is the connection name of the fixture database.
const Connection = "local"

// SetupTestFixture creates a sqlite backed pool and dispatcher with the
// provided tables.
func SetupTestFixture(t *testing.T, pageSize int, tables ...TestTable) *TestFixture {
	t.Helper()

	logger := testutil.NewTestLogger(t)
	tmpDir := t.TempDir()

	pool := adapter.NewPool(map[string]adapter.Config{
		Connection: {Type: "sqlite", Path: filepath.Join(tmpDir, "test.db")},
	}, adapter.PoolOptions{Logger: logger})
	t.Cleanup(func() { _ = pool.Close() })

	ctx := context.Background()
	src, err := pool.Source(ctx, Connection)
	require.NoError(t, err)
	for _, tbl := range tables {
		_, err := src.Execute(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", tbl.Name, tbl.DDL))
		require.NoError(t, err)
		for _, row := range tbl.Rows {
			_, err := src.Execute(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", tbl.Name, row))
			require.NoError(t, err)
		}
	}

	exportDir := filepath.Join(tmpDir, "exports")
	d := dispatch.New(dispatch.Options{
		Logger:   logger,
		Sources:  dispatch.PoolSources(pool),
		PageSize: pageSize,
		Exports:  export.DirSink{Dir: exportDir},
	})
	t.Cleanup(d.Shutdown)

	return &TestFixture{
		Pool:         pool,
		Dispatcher:   d,
		Notifier:     notifier.New(),
		SessionStore: NewTestSessionStore(),
		ExportDir:    exportDir,
	}
}

// RequestWithPathParams wraps a request with chi URL params given as
// key, value pairs.
func RequestWithPathParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// NewTestSessionStore creates a session store for testing.
func NewTestSessionStore() *sessions.CookieStore {
	return sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!"))
}
