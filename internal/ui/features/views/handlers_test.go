package views

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/leapview/internal/protocol"
	"github.com/leapstack-labs/leapview/internal/testutil"
	"github.com/leapstack-labs/leapview/internal/ui/features"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const signalsPrefix = "data: signals "

func peopleTable() features.TestTable {
	rows := make([]string, 0, 25)
	for i := 1; i <= 25; i++ {
		rows = append(rows, fmt.Sprintf("%d, 'person%02d', %d", i, i, 20+i))
	}
	return features.TestTable{
		Name: "people",
		DDL:  "id INTEGER PRIMARY KEY, name TEXT, age INTEGER",
		Rows: rows,
	}
}

type testServer struct {
	*httptest.Server
	fixture *features.TestFixture
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	fx := features.SetupTestFixture(t, 10, peopleTable())
	r := chi.NewRouter()
	require.NoError(t, SetupRoutes(r, fx.Dispatcher, fx.Pool, fx.SessionStore, fx.Notifier, testutil.NewTestLogger(t)))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, fixture: fx}
}

func (s *testServer) post(t *testing.T, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(s.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (s *testServer) open(t *testing.T) *http.Response {
	t.Helper()
	resp := s.post(t, "/api/views/open", `{"connection":"local","database":"main","table":"people"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return resp
}

// stream opens the view's event stream and returns decoded host messages.
func (s *testServer) stream(t *testing.T) <-chan protocol.Message {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL+"/api/views/local/main/people/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := make(chan protocol.Message, 16)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			line, ok := strings.CutPrefix(scanner.Text(), signalsPrefix)
			if !ok {
				continue
			}
			var signals struct {
				Message json.RawMessage `json:"message"`
			}
			if json.Unmarshal([]byte(line), &signals) != nil || signals.Message == nil {
				continue
			}
			if msg, err := protocol.DecodeMessage(signals.Message); err == nil {
				out <- msg
			}
		}
	}()
	return out
}

func next(t *testing.T, ch <-chan protocol.Message) protocol.Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "event stream ended")
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for host message")
		return nil
	}
}

func nextUpdate(t *testing.T, ch <-chan protocol.Message) protocol.UpdateData {
	t.Helper()
	msg := next(t, ch)
	u, ok := msg.(protocol.UpdateData)
	require.True(t, ok, "expected updateData, got %#v", msg)
	return u
}

func TestOpen_RejectsInvalidSignals(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"missing table", `{"connection":"local","database":"main"}`},
		{"missing connection", `{"database":"main","table":"people"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.post(t, "/api/views/open", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestOpen_PatchesViewAndSetsClientCookie(t *testing.T) {
	s := newTestServer(t)
	resp := s.open(t)

	body := new(strings.Builder)
	_, err := bufio.NewReader(resp.Body).WriteTo(body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), `"id":"local/main/people"`)
	assert.Contains(t, body.String(), `"events":"/api/views/local/main/people/events"`)

	var named bool
	for _, c := range resp.Cookies() {
		named = named || c.Name == sessionName
	}
	assert.True(t, named, "expected %s session cookie", sessionName)
}

func TestOpen_UnknownTableReportsError(t *testing.T) {
	s := newTestServer(t)
	resp := s.post(t, "/api/views/open", `{"connection":"nope","database":"main","table":"people"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := new(strings.Builder)
	_, err := bufio.NewReader(resp.Body).WriteTo(body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), `"error":"failed to resolve connection nope`)
}

func TestEvents_StreamsPagesForCommands(t *testing.T) {
	s := newTestServer(t)
	s.open(t)
	events := s.stream(t)

	first := nextUpdate(t, events)
	assert.Equal(t, 1, first.Page)
	assert.Equal(t, int64(25), first.Data.RowCount)
	assert.Len(t, first.Data.Rows, 10)

	resp := s.post(t, "/api/views/local/main/people/commands", `{"command":"navigate","page":3,"view":{"id":"ignored"}}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	third := nextUpdate(t, events)
	assert.Equal(t, 3, third.Page)
	assert.Len(t, third.Data.Rows, 5)

	resp = s.post(t, "/api/views/local/main/people/commands",
		`{"command":"filter","filters":[{"column":"age","operator":">=","value":"40"}],"sortColumn":"age","sortDirection":"desc"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	filtered := nextUpdate(t, events)
	assert.Equal(t, 1, filtered.Page)
	assert.Equal(t, int64(6), filtered.Data.RowCount)
	assert.EqualValues(t, 45, filtered.Data.Rows[0]["age"])
}

func TestEvents_ErrorMessageForBadQuery(t *testing.T) {
	s := newTestServer(t)
	s.open(t)
	events := s.stream(t)
	nextUpdate(t, events)

	resp := s.post(t, "/api/views/local/main/people/commands", `{"command":"executeQuery","query":"SELECT nope FROM missing"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	msg := next(t, events)
	e, ok := msg.(protocol.Error)
	require.True(t, ok, "expected error, got %#v", msg)
	assert.Equal(t, protocol.CmdExecuteQuery, e.Command)
	assert.NotEmpty(t, e.Message)
}

func TestEvents_SecondStreamConflicts(t *testing.T) {
	s := newTestServer(t)
	s.open(t)
	events := s.stream(t)
	nextUpdate(t, events)

	resp, err := http.Get(s.URL + "/api/views/local/main/people/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestEvents_BroadcastResyncsPage(t *testing.T) {
	s := newTestServer(t)
	s.open(t)
	events := s.stream(t)
	nextUpdate(t, events)

	s.post(t, "/api/views/local/main/people/commands", `{"command":"navigate","page":2}`)
	assert.Equal(t, 2, nextUpdate(t, events).Page)

	// Subscription happens after the stream starts; keep pinging until the
	// resync arrives.
	done := make(chan struct{})
	defer close(done)
	go func() {
		tick := time.NewTicker(50 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-done:
				return
			case <-tick.C:
				s.fixture.Notifier.Broadcast()
			}
		}
	}()
	resynced := nextUpdate(t, events)
	assert.Equal(t, 2, resynced.Page)
}

func TestCommand_Rejections(t *testing.T) {
	s := newTestServer(t)
	s.open(t)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"unknown command", "/api/views/local/main/people/commands", `{"command":"explode"}`, http.StatusBadRequest},
		{"invalid page", "/api/views/local/main/people/commands", `{"command":"navigate","page":0}`, http.StatusBadRequest},
		{"malformed", "/api/views/local/main/people/commands", `{"command":`, http.StatusBadRequest},
		{"unknown view", "/api/views/local/main/nope/commands", `{"command":"refresh"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.post(t, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestClose_RemovesView(t *testing.T) {
	s := newTestServer(t)
	s.open(t)

	var listed []ViewInfo
	getJSON(t, s.URL+"/api/views/", &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, "local/main/people", listed[0].ID)
	assert.NotEmpty(t, listed[0].Owner)

	del := func() int {
		req, err := http.NewRequest(http.MethodDelete, s.URL+"/api/views/local/main/people/", nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		return resp.StatusCode
	}
	assert.Equal(t, http.StatusNoContent, del())
	assert.Equal(t, http.StatusNotFound, del())

	getJSON(t, s.URL+"/api/views/", &listed)
	assert.Empty(t, listed)
	assert.Empty(t, s.fixture.Dispatcher.Views())
}

func TestConnectionsAndTables(t *testing.T) {
	s := newTestServer(t)

	var conns []ConnectionInfo
	getJSON(t, s.URL+"/api/connections/", &conns)
	assert.Equal(t, []ConnectionInfo{{Name: "local", Type: "sqlite"}}, conns)

	var tables []string
	getJSON(t, s.URL+"/api/connections/local/tables", &tables)
	assert.Equal(t, []string{"people"}, tables)

	resp, err := http.Get(s.URL + "/api/connections/nope/tables")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMessageSignals(t *testing.T) {
	got := messageSignals([]byte(`{"command":"notice","message":"hi"}`))
	assert.JSONEq(t, `{"message":{"command":"notice","message":"hi"}}`, string(got))
}

func getJSON(t *testing.T, url string, v any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}
