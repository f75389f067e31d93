package dispatch

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/leapview/internal/protocol"
	"github.com/leapstack-labs/leapview/internal/testutil"
	"github.com/leapstack-labs/leapview/pkg/adapter"
	_ "github.com/leapstack-labs/leapview/pkg/adapters/sqlite"
	"github.com/leapstack-labs/leapview/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_SQLite(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "people.db")

	pool := adapter.NewPool(map[string]adapter.Config{
		"local": {Type: "sqlite", Path: dbPath},
	}, adapter.PoolOptions{Logger: testutil.NewTestLogger(t)})
	t.Cleanup(func() { _ = pool.Close() })

	src, err := pool.Source(ctx, "local")
	require.NoError(t, err)
	_, err = src.Execute(ctx, "CREATE TABLE people (id INTEGER PRIMARY KEY, name TEXT, age INTEGER)")
	require.NoError(t, err)
	for i := 1; i <= 25; i++ {
		_, err = src.Execute(ctx, fmt.Sprintf("INSERT INTO people (name, age) VALUES ('person%02d', %d)", i, 20+i))
		require.NoError(t, err)
	}

	d := New(Options{
		Logger:       testutil.NewTestLogger(t),
		Sources:      PoolSources(pool),
		PageSize:     10,
		QueryTimeout: 5 * time.Second,
	})
	t.Cleanup(d.Shutdown)

	host, client := protocol.Pipe()
	t.Cleanup(func() { _ = client.Close() })
	id := core.ViewID{Connection: "local", Database: "main", Table: "people"}
	require.NoError(t, d.Open(ctx, id, host))

	next := func() protocol.Message {
		rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		data, err := client.Recv(rctx)
		require.NoError(t, err)
		msg, err := protocol.DecodeMessage(data)
		require.NoError(t, err)
		return msg
	}

	first := next().(protocol.UpdateData)
	assert.Equal(t, int64(25), first.Data.RowCount)
	assert.Len(t, first.Data.Rows, 10)
	assert.Equal(t, []string{"id", "name", "age"}, first.ColumnNames())

	require.NoError(t, protocol.SendCommand(client, protocol.Navigate{Page: 3}))
	last := next().(protocol.UpdateData)
	assert.Len(t, last.Data.Rows, 5)

	require.NoError(t, protocol.SendCommand(client, protocol.Filter{
		Filters:       []core.Filter{{Column: "age", Operator: core.OpGreaterEqual, Value: "40"}},
		SortColumn:    "age",
		SortDirection: "desc",
	}))
	filtered := next().(protocol.UpdateData)
	assert.Equal(t, 1, filtered.Page)
	assert.Equal(t, int64(6), filtered.Data.RowCount)
	require.NotEmpty(t, filtered.Data.Rows)
	assert.Equal(t, "person25", filtered.Data.Rows[0]["name"])

	require.NoError(t, protocol.SendCommand(client, protocol.Sort{Column: "nope"}))
	failed, ok := next().(protocol.Error)
	require.True(t, ok)
	assert.Contains(t, failed.Message, "nope")
}
