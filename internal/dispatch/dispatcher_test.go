package dispatch

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leapstack-labs/leapview/internal/client"
	"github.com/leapstack-labs/leapview/internal/clipboard"
	"github.com/leapstack-labs/leapview/internal/export"
	"github.com/leapstack-labs/leapview/internal/protocol"
	"github.com/leapstack-labs/leapview/internal/testutil"
	"github.com/leapstack-labs/leapview/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource answers COUNT queries with total and every other query with
// rows copies of a row echoing the query text (one when rows is zero).
type fakeSource struct {
	mu      sync.Mutex
	queries []string
	total   int64
	rows    int
	fail    func(query string) error
}

func (f *fakeSource) Execute(_ context.Context, q string) (*core.QueryResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	fail := f.fail
	n := max(f.rows, 1)
	f.mu.Unlock()

	if fail != nil {
		if err := fail(q); err != nil {
			return nil, &core.ExecutionError{Query: q, Err: err}
		}
	}
	if strings.HasPrefix(q, "SELECT COUNT(*)") {
		return &core.QueryResult{
			Columns:  []string{"COUNT(*)"},
			Rows:     []core.Record{{"COUNT(*)": f.total}},
			RowCount: 1,
		}, nil
	}
	rows := make([]core.Record, n)
	for i := range rows {
		rows[i] = core.Record{"id": int64(i + 1), "query": q}
	}
	return &core.QueryResult{
		Columns:  []string{"id", "query"},
		Rows:     rows,
		RowCount: int64(n),
	}, nil
}

func (f *fakeSource) Describe(_ context.Context, _, table string) ([]core.Column, error) {
	if table == "missing" {
		return nil, errors.New("table missing not found")
	}
	return []core.Column{
		{Name: "id", Type: "INTEGER", PrimaryKey: true, Position: 1},
		{Name: "query", Type: "TEXT", Nullable: true, Position: 2},
	}, nil
}

func (f *fakeSource) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.queries) - 1; i >= 0; i-- {
		if !strings.HasPrefix(f.queries[i], "SELECT COUNT(*)") {
			return f.queries[i]
		}
	}
	return ""
}

var usersView = core.ViewID{Connection: "local", Database: "main", Table: "users"}

type harness struct {
	d      *Dispatcher
	src    *fakeSource
	client protocol.Conn
	clip   *clipboard.Memory
	dir    string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	src := &fakeSource{total: 95}
	clip := &clipboard.Memory{}
	dir := t.TempDir()
	d := New(Options{
		Logger: testutil.NewTestLogger(t),
		Sources: SourcesFunc(func(_ context.Context, name string) (core.DataSource, error) {
			if name != "local" {
				return nil, errors.New("unknown connection")
			}
			return src, nil
		}),
		PageSize:     10,
		QueryTimeout: time.Second,
		Exports:      export.DirSink{Dir: dir},
		Clipboard:    clip,
	})
	t.Cleanup(d.Shutdown)

	host, client := protocol.Pipe()
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, d.Open(context.Background(), usersView, host))

	return &harness{d: d, src: src, client: client, clip: clip, dir: dir}
}

func (h *harness) send(t *testing.T, c protocol.Command) {
	t.Helper()
	require.NoError(t, protocol.SendCommand(h.client, c))
}

func (h *harness) recv(t *testing.T) protocol.Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, err := h.client.Recv(ctx)
	require.NoError(t, err)
	msg, err := protocol.DecodeMessage(data)
	require.NoError(t, err)
	return msg
}

func (h *harness) update(t *testing.T) protocol.UpdateData {
	t.Helper()
	msg := h.recv(t)
	update, ok := msg.(protocol.UpdateData)
	require.True(t, ok, "expected updateData, got %#v", msg)
	return update
}

func TestDispatcher_OpenPushesFirstPage(t *testing.T) {
	h := newHarness(t)

	update := h.update(t)
	assert.Equal(t, 1, update.Page)
	assert.Equal(t, 10, update.PageSize)
	assert.Equal(t, int64(95), update.Data.RowCount)
	assert.Equal(t, []string{"id", "query"}, update.ColumnNames())
	assert.True(t, update.Data.Columns[0].PrimaryKey)
	assert.Equal(t, "SELECT * FROM users LIMIT 10 OFFSET 0", h.src.last())
}

func TestDispatcher_OpenFailures(t *testing.T) {
	d := New(Options{Sources: SourcesFunc(func(context.Context, string) (core.DataSource, error) {
		return &fakeSource{}, nil
	})})
	defer d.Shutdown()

	host, _ := protocol.Pipe()
	err := d.Open(context.Background(), core.ViewID{Connection: "c", Database: "d", Table: "missing"}, host)
	assert.ErrorContains(t, err, "failed to describe")
	assert.Empty(t, d.Views())

	err = New(Options{}).Open(context.Background(), usersView, host)
	assert.Error(t, err)
}

func TestDispatcher_Commands(t *testing.T) {
	h := newHarness(t)
	h.update(t)

	tests := []struct {
		name      string
		cmd       protocol.Command
		wantQuery string
		wantPage  int
	}{
		{
			name:      "navigate",
			cmd:       protocol.Navigate{Page: 3},
			wantQuery: "SELECT * FROM users LIMIT 10 OFFSET 20",
			wantPage:  3,
		},
		{
			name:      "sort keeps page",
			cmd:       protocol.Sort{Column: "id", Direction: "desc"},
			wantQuery: "SELECT * FROM users ORDER BY id DESC LIMIT 10 OFFSET 20",
			wantPage:  3,
		},
		{
			name: "filter resets page and keeps sort",
			cmd: protocol.Filter{
				Filters: []core.Filter{{Column: "id", Operator: core.OpGreater, Value: "5"}},
			},
			wantQuery: "SELECT * FROM users WHERE id > '5' ORDER BY id DESC LIMIT 10 OFFSET 0",
			wantPage:  1,
		},
		{
			name:      "multi sort with empty filters clears filters",
			cmd:       protocol.Sort{SortColumns: []core.SortKey{{Column: "a", Direction: core.Desc}, {Column: "b"}}, Filters: []core.Filter{}},
			wantQuery: "SELECT * FROM users ORDER BY a DESC, b ASC LIMIT 10 OFFSET 0",
			wantPage:  1,
		},
		{
			name:      "page size change",
			cmd:       protocol.Navigate{Page: 2, PageSize: 25},
			wantQuery: "SELECT * FROM users ORDER BY a DESC, b ASC LIMIT 25 OFFSET 25",
			wantPage:  2,
		},
		{
			name:      "clear filters",
			cmd:       protocol.ClearFilters{},
			wantQuery: "SELECT * FROM users ORDER BY a DESC, b ASC LIMIT 25 OFFSET 0",
			wantPage:  1,
		},
		{
			name:      "ready repeats current page",
			cmd:       protocol.Ready{},
			wantQuery: "SELECT * FROM users ORDER BY a DESC, b ASC LIMIT 25 OFFSET 0",
			wantPage:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.send(t, tt.cmd)
			update := h.update(t)
			assert.Equal(t, tt.wantPage, update.Page)
			assert.Equal(t, tt.wantQuery, h.src.last())
		})
	}
}

func TestDispatcher_CustomQuery(t *testing.T) {
	h := newHarness(t)
	h.update(t)

	h.send(t, protocol.Navigate{Page: 2})
	h.update(t)

	h.send(t, protocol.ExecuteQuery{Query: "SELECT id, extra FROM users"})
	update := h.update(t)
	assert.Equal(t, "SELECT id, extra FROM users", h.src.last())
	assert.Equal(t, int64(1), update.Data.RowCount)
	assert.Equal(t, []string{"id", "query"}, update.ColumnNames())

	h.send(t, protocol.Ready{})
	h.update(t)
	assert.Equal(t, "SELECT id, extra FROM users", h.src.last())

	h.send(t, protocol.Refresh{})
	update = h.update(t)
	assert.Equal(t, "SELECT * FROM users LIMIT 10 OFFSET 10", h.src.last())
	assert.Equal(t, 2, update.Page)
}

func TestDispatcher_CustomQueryIsSinglePage(t *testing.T) {
	h := newHarness(t)
	m := client.NewMirror(10)
	m.ApplyUpdate(h.update(t))
	assert.Equal(t, 10, m.TotalPages())

	h.src.mu.Lock()
	h.src.rows = 25
	h.src.mu.Unlock()

	h.send(t, protocol.ExecuteQuery{Query: "SELECT id, query FROM users"})
	update := h.update(t)
	assert.Len(t, update.Data.Rows, 25)
	assert.Equal(t, 25, update.PageSize)

	m.ApplyUpdate(update)
	assert.Equal(t, 1, m.CurrentPage())
	assert.Equal(t, 1, m.TotalPages())
	assert.Nil(t, m.NextPage())
	assert.Equal(t, "Page 1 of 1 · 25 rows", m.Status())

	// leaving the custom source restores the view's own page size
	h.send(t, protocol.Refresh{})
	update = h.update(t)
	assert.Equal(t, 10, update.PageSize)
	m.ApplyUpdate(update)
	assert.Equal(t, 10, m.TotalPages())
}

func TestDispatcher_FailureKeepsMutation(t *testing.T) {
	h := newHarness(t)
	h.update(t)

	h.src.mu.Lock()
	h.src.fail = func(q string) error {
		if strings.Contains(q, "ORDER BY broken") {
			return errors.New("no such column: broken")
		}
		return nil
	}
	h.src.mu.Unlock()

	h.send(t, protocol.Sort{Column: "broken"})
	msg := h.recv(t)
	errMsg, ok := msg.(protocol.Error)
	require.True(t, ok, "expected error, got %#v", msg)
	assert.Equal(t, protocol.CmdSort, errMsg.Command)
	assert.Contains(t, errMsg.Message, "no such column")

	state, err := h.d.Store().Get(usersView)
	require.NoError(t, err)
	assert.Equal(t, "broken", state.SortColumn)

	// the view keeps serving commands
	h.send(t, protocol.Sort{})
	update := h.update(t)
	assert.Equal(t, 1, update.Page)
}

func TestDispatcher_DropsMalformedMessages(t *testing.T) {
	h := newHarness(t)
	h.update(t)

	require.NoError(t, h.client.Send([]byte(`not json`)))
	require.NoError(t, h.client.Send([]byte(`{"command":"teleport"}`)))
	require.NoError(t, h.client.Send([]byte(`{"command":"navigate","page":0}`)))
	h.send(t, protocol.Navigate{Page: 4})

	update := h.update(t)
	assert.Equal(t, 4, update.Page)
}

func TestDispatcher_Export(t *testing.T) {
	tests := []struct {
		name      string
		setup     []protocol.Command
		cmd       protocol.Export
		wantQuery string
		wantFile  string
	}{
		{
			name:      "whole table ignores filters",
			setup:     []protocol.Command{protocol.Filter{Filters: []core.Filter{{Column: "id", Operator: core.OpEqual, Value: "1"}}}},
			cmd:       protocol.Export{Format: "csv"},
			wantQuery: "SELECT * FROM users",
			wantFile:  "users_export.csv",
		},
		{
			name:      "selected only keeps filters and drops limit",
			setup:     []protocol.Command{protocol.Filter{Filters: []core.Filter{{Column: "id", Operator: core.OpEqual, Value: "1"}}, SortColumn: "id"}},
			cmd:       protocol.Export{Format: "json", SelectedOnly: true},
			wantQuery: "SELECT * FROM users WHERE id = '1' ORDER BY id ASC",
			wantFile:  "users_export.json",
		},
		{
			name:      "custom source exports its query",
			setup:     []protocol.Command{protocol.ExecuteQuery{Query: "SELECT 1 AS id"}},
			cmd:       protocol.Export{Format: "sql"},
			wantQuery: "SELECT 1 AS id",
			wantFile:  "users_export.sql",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.update(t)
			for _, c := range tt.setup {
				h.send(t, c)
				h.update(t)
			}

			h.send(t, tt.cmd)
			msg := h.recv(t)
			notice, ok := msg.(protocol.Notice)
			require.True(t, ok, "expected notice, got %#v", msg)
			assert.Contains(t, notice.Message, tt.wantFile)
			assert.Contains(t, notice.Message, "(1 rows)")
			assert.Equal(t, tt.wantQuery, h.src.last())

			_, err := os.Stat(h.dir + "/" + tt.wantFile)
			assert.NoError(t, err)
		})
	}
}

func TestDispatcher_CopyToClipboard(t *testing.T) {
	h := newHarness(t)
	h.update(t)

	h.send(t, protocol.CopyToClipboard{Text: "id\n1"})
	msg := h.recv(t)
	assert.Equal(t, protocol.Notice{Message: "Copied to clipboard"}, msg)
	assert.Equal(t, "id\n1", h.clip.Text())
}

func TestDispatcher_ViewsAreIndependent(t *testing.T) {
	h := newHarness(t)
	h.update(t)

	ordersView := core.ViewID{Connection: "local", Database: "main", Table: "orders"}
	host, client := protocol.Pipe()
	require.NoError(t, h.d.Open(context.Background(), ordersView, host))

	h.send(t, protocol.Navigate{Page: 5})
	h.update(t)

	users, err := h.d.Store().Get(usersView)
	require.NoError(t, err)
	orders, err := h.d.Store().Get(ordersView)
	require.NoError(t, err)
	assert.Equal(t, 5, users.Page)
	assert.Equal(t, 1, orders.Page)
	assert.Len(t, h.d.Views(), 2)

	h.d.Close(ordersView)
	_, err = h.d.Store().Get(ordersView)
	assert.ErrorIs(t, err, core.ErrNoActiveView)
	_ = client.Close()
}

func TestCountValue(t *testing.T) {
	tests := []struct {
		in   any
		want int64
	}{
		{int64(7), 7},
		{int32(7), 7},
		{7, 7},
		{float64(7), 7},
		{"7", 7},
		{[]byte("7"), 7},
	}
	for _, tt := range tests {
		got, err := countValue(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := countValue(nil)
	assert.Error(t, err)
}
