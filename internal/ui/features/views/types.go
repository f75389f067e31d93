package views

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/leapstack-labs/leapview/internal/protocol"
	"github.com/leapstack-labs/leapview/pkg/core"
)

// OpenSignals is sent by the browser to open a table view.
type OpenSignals struct {
	Connection string `json:"connection" validate:"required"`
	Database   string `json:"database" validate:"required"`
	Table      string `json:"table" validate:"required"`
}

// ViewID returns the id of the requested view.
func (s OpenSignals) ViewID() core.ViewID {
	return core.ViewID{Connection: s.Connection, Database: s.Database, Table: s.Table}
}

// ViewInfo describes an open view in listings and open responses.
type ViewInfo struct {
	ID       string `json:"id"`
	Events   string `json:"events"`
	Commands string `json:"commands"`
	Owner    string `json:"owner,omitempty"`
}

// ConnectionInfo describes a configured connection.
type ConnectionInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// remote is the browser end of one view channel.
type remote struct {
	id        core.ViewID
	conn      protocol.Conn
	owner     string
	streaming atomic.Bool
	served    atomic.Bool

	mu sync.Mutex
	// held is a message taken off conn by a stream that ended before
	// writing it. The next stream sends it first.
	held [][]byte
}

// pump moves host messages from conn to out until ctx is done or conn
// closes. A message received but not delivered is held for the next
// stream.
func (r *remote) pump(ctx context.Context, out chan<- []byte) {
	for {
		data, err := r.conn.Recv(ctx)
		if err != nil {
			return
		}
		select {
		case out <- data:
		case <-ctx.Done():
			r.hold(data)
			return
		}
	}
}

func (r *remote) hold(data ...[]byte) {
	r.mu.Lock()
	r.held = append(r.held, data...)
	r.mu.Unlock()
}

// takeHeld returns and forgets the held messages in arrival order.
func (r *remote) takeHeld() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	held := r.held
	r.held = nil
	return held
}

func (r *remote) info() ViewInfo {
	base := "/api/views/" + r.id.String()
	return ViewInfo{
		ID:       r.id.String(),
		Events:   base + "/events",
		Commands: base + "/commands",
		Owner:    r.owner,
	}
}

// remotes is the set of views opened through the UI.
type remotes struct {
	mu    sync.Mutex
	views map[core.ViewID]*remote
}

func newRemotes() *remotes {
	return &remotes{views: make(map[core.ViewID]*remote)}
}

// put registers r and returns the remote it replaced, if any.
func (rs *remotes) put(r *remote) *remote {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	prev := rs.views[r.id]
	rs.views[r.id] = r
	return prev
}

func (rs *remotes) get(id core.ViewID) (*remote, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	r, ok := rs.views[id]
	return r, ok
}

func (rs *remotes) remove(id core.ViewID) (*remote, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	r, ok := rs.views[id]
	delete(rs.views, id)
	return r, ok
}

func (rs *remotes) list() []*remote {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make([]*remote, 0, len(rs.views))
	for _, r := range rs.views {
		out = append(out, r)
	}
	return out
}
