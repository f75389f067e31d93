// Package notifier fans out reload pings to open view event streams.
package notifier

import "sync"

// Notifier pings every subscribed event stream when the connection set
// changes. A ping carries no payload; streams react by asking the host to
// push their current page again.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan struct{}]struct{}
}

// New creates a new Notifier.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan struct{}]struct{}),
	}
}

// Subscribe registers a listener. Callers must Unsubscribe when their
// stream ends.
func (n *Notifier) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener and closes its channel.
func (n *Notifier) Unsubscribe(ch chan struct{}) {
	n.mu.Lock()
	_, ok := n.listeners[ch]
	delete(n.listeners, ch)
	n.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Len returns the number of subscribed listeners.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}

// Broadcast pings all listeners without blocking and returns how many
// received a new ping. A listener with a pending ping is skipped; one
// resync covers both.
func (n *Notifier) Broadcast() int {
	n.mu.RLock()
	defer n.mu.RUnlock()

	sent := 0
	for ch := range n.listeners {
		select {
		case ch <- struct{}{}:
			sent++
		default:
		}
	}
	return sent
}
