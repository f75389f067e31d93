package protocol

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Send and Recv once the pipe is closed and, for
// Recv, drained.
var ErrClosed = errors.New("channel closed")

// Conn is one endpoint of a message channel. Messages travel as encoded
// bytes so neither side shares memory with the other.
type Conn interface {
	// Send queues msg for the peer. It never blocks.
	Send(msg []byte) error
	// Recv waits for the next message from the peer.
	Recv(ctx context.Context) ([]byte, error)
	// Close closes both directions. Queued messages remain readable.
	Close() error
}

// queue is an unbounded FIFO of byte messages.
type queue struct {
	mu     sync.Mutex
	items  [][]byte
	ready  chan struct{}
	closed bool
}

func newQueue() *queue {
	return &queue{ready: make(chan struct{}, 1)}
}

func (q *queue) push(msg []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	q.items = append(q.items, append([]byte(nil), msg...))
	q.signal()
	return nil
}

func (q *queue) pop(ctx context.Context) ([]byte, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			msg := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			if len(q.items) > 0 {
				q.signal()
			}
			q.mu.Unlock()
			return msg, nil
		}
		if q.closed {
			q.mu.Unlock()
			return nil, ErrClosed
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.ready:
		}
	}
}

func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		q.signal()
	}
}

// signal must be called with mu held.
func (q *queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

type pipeEnd struct {
	in, out *queue
	once    *sync.Once
}

func (p *pipeEnd) Send(msg []byte) error { return p.out.push(msg) }

func (p *pipeEnd) Recv(ctx context.Context) ([]byte, error) { return p.in.pop(ctx) }

func (p *pipeEnd) Close() error {
	p.once.Do(func() {
		p.in.close()
		p.out.close()
	})
	return nil
}

// Pipe returns two connected endpoints. What host sends, client receives,
// and the reverse, each direction in FIFO order.
func Pipe() (host, client Conn) {
	toClient, toHost := newQueue(), newQueue()
	once := &sync.Once{}
	return &pipeEnd{in: toHost, out: toClient, once: once},
		&pipeEnd{in: toClient, out: toHost, once: once}
}

// SendCommand encodes c and sends it on conn.
func SendCommand(conn Conn, c Command) error {
	data, err := EncodeCommand(c)
	if err != nil {
		return err
	}
	return conn.Send(data)
}

// SendMessage encodes m and sends it on conn.
func SendMessage(conn Conn, m Message) error {
	data, err := EncodeMessage(m)
	if err != nil {
		return err
	}
	return conn.Send(data)
}
