// Package store holds per-view task state.
//
// A view owns one store. Data enters a store only through a fetch the view
// started (Begin/Apply) or through a mutation the backend confirmed. Every
// fetch is tagged with a Ticket; a result whose ticket was superseded by a
// later fetch, or whose view was closed, is dropped on arrival.
package store

import (
	"context"
	"errors"
	"sync"
)

// ErrStale is returned by Load when the result arrived after the fetch was
// superseded or the view was closed. The result was not applied.
var ErrStale = errors.New("stale result dropped")

// ErrClosed is returned by mutations on a closed view.
var ErrClosed = errors.New("view closed")

// Ticket identifies one fetch.
type Ticket struct {
	gen uint64
}

// ViewState is the rendering state of a view.
type ViewState int

const (
	Unauthenticated ViewState = iota
	Loading
	Ready
	Failed
)

func (s ViewState) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	}
	return "error"
}

// Snapshot is a consistent copy of a store's state.
type Snapshot[T any] struct {
	Value   T
	Loaded  bool
	Loading bool
	Err     error
}

// Store holds the last successfully fetched value of a view.
type Store[T any] struct {
	mu      sync.Mutex
	value   T
	loaded  bool
	loading bool
	err     error
	gen     uint64
	closed  bool
}

// Begin starts a fetch. Previously loaded data stays visible while it runs.
func (s *Store[T]) Begin() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if !s.closed {
		s.loading = true
	}
	return Ticket{gen: s.gen}
}

// Apply records the outcome of the fetch identified by t. On success the
// held value is replaced wholesale; on failure it is kept and err recorded.
// It reports false, changing nothing, when t is stale or the view closed.
func (s *Store[T]) Apply(t Ticket, v T, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || t.gen != s.gen {
		return false
	}
	s.loading = false
	if err != nil {
		s.err = err
		return true
	}
	s.value = v
	s.loaded = true
	s.err = nil
	return true
}

// Load runs fetch under a fresh ticket and applies its result. It returns
// ErrStale when the result was dropped, otherwise fetch's error.
func (s *Store[T]) Load(ctx context.Context, fetch func(context.Context) (T, error)) error {
	t := s.Begin()
	v, err := fetch(ctx)
	if !s.Apply(t, v, err) {
		return ErrStale
	}
	return err
}

// Close detaches the view. Outstanding fetches are ignored when they land
// and later mutations are refused.
func (s *Store[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.loading = false
	s.gen++
}

// Closed reports whether Close was called.
func (s *Store[T]) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Snapshot returns the current state.
func (s *Store[T]) Snapshot() Snapshot[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot[T]{Value: s.value, Loaded: s.loaded, Loading: s.loading, Err: s.err}
}

// ViewState derives the rendering state. Held data keeps the view ready
// through refreshes and refresh failures.
func (s *Store[T]) ViewState(authenticated bool) ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case !authenticated:
		return Unauthenticated
	case s.loaded:
		return Ready
	case s.err != nil && !s.loading:
		return Failed
	}
	return Loading
}

// update applies a confirmed mutation to the held value.
func (s *Store[T]) update(fn func(T) (T, bool)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	if !s.loaded {
		return false, nil
	}
	v, changed := fn(s.value)
	if changed {
		s.value = v
	}
	return changed, nil
}
