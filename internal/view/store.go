// Package view holds the authoritative state of every open table view.
package view

import (
	"sync"

	"github.com/leapstack-labs/leapview/pkg/core"
)

// Store maps view ids to their state. All methods are safe for concurrent
// use and return value snapshots, never references into the store.
type Store struct {
	mu              sync.RWMutex
	views           map[core.ViewID]core.TableViewState
	defaultPageSize int
}

// NewStore creates an empty store.
func NewStore(defaultPageSize int) *Store {
	if defaultPageSize <= 0 {
		defaultPageSize = core.DefaultPageSize
	}
	return &Store{
		views:           make(map[core.ViewID]core.TableViewState),
		defaultPageSize: defaultPageSize,
	}
}

// Open seeds a fresh state for id, replacing any existing one. A pageSize
// of zero uses the store default.
func (s *Store) Open(id core.ViewID, pageSize int) core.TableViewState {
	if pageSize <= 0 {
		pageSize = s.defaultPageSize
	}
	state := core.NewTableViewState(pageSize)
	s.mu.Lock()
	s.views[id] = state
	s.mu.Unlock()
	return state.Clone()
}

// Close forgets id. Closing an unknown view is a no-op.
func (s *Store) Close(id core.ViewID) {
	s.mu.Lock()
	delete(s.views, id)
	s.mu.Unlock()
}

// Get returns a snapshot of id's state.
func (s *Store) Get(id core.ViewID) (core.TableViewState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.views[id]
	if !ok {
		return core.TableViewState{}, core.ErrNoActiveView
	}
	return state.Clone(), nil
}

// IDs returns the ids of all open views.
func (s *Store) IDs() []core.ViewID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]core.ViewID, 0, len(s.views))
	for id := range s.views {
		ids = append(ids, id)
	}
	return ids
}

// Update applies fn to id's state atomically and stores the result.
func (s *Store) Update(id core.ViewID, fn func(core.TableViewState) core.TableViewState) (core.TableViewState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.views[id]
	if !ok {
		return core.TableViewState{}, core.ErrNoActiveView
	}
	next := fn(state.Clone())
	s.views[id] = next
	return next.Clone(), nil
}

// Navigate moves id to page, changing the page size when pageSize > 0.
func (s *Store) Navigate(id core.ViewID, page, pageSize int) (core.TableViewState, error) {
	return s.Update(id, func(st core.TableViewState) core.TableViewState {
		return st.WithPage(page, pageSize)
	})
}

// Sort replaces id's ordering. A non-nil filters slice is applied in the
// same transition and resets the page.
func (s *Store) Sort(id core.ViewID, spec core.SortSpec, filters []core.Filter) (core.TableViewState, error) {
	return s.Update(id, func(st core.TableViewState) core.TableViewState {
		next := st.WithSort(spec)
		if filters != nil {
			next = next.WithFilters(filters, core.SortSpec{})
		}
		return next
	})
}

// ApplyFilters replaces id's filters, resets to page 1 and applies a
// non-empty sort in the same transition.
func (s *Store) ApplyFilters(id core.ViewID, filters []core.Filter, sort core.SortSpec) (core.TableViewState, error) {
	return s.Update(id, func(st core.TableViewState) core.TableViewState {
		return st.WithFilters(filters, sort)
	})
}

// Clear drops id's filters and returns it to page 1.
func (s *Store) Clear(id core.ViewID) (core.TableViewState, error) {
	return s.Update(id, core.TableViewState.Cleared)
}

// UseCustomQuery switches id to a raw query source.
func (s *Store) UseCustomQuery(id core.ViewID, query string) (core.TableViewState, error) {
	return s.Update(id, func(st core.TableViewState) core.TableViewState {
		return st.WithCustomQuery(query)
	})
}

// Refresh returns id to its table source without changing page, sort or filters.
func (s *Store) Refresh(id core.ViewID) (core.TableViewState, error) {
	return s.Update(id, func(st core.TableViewState) core.TableViewState {
		return st.WithPage(st.Page, 0)
	})
}
