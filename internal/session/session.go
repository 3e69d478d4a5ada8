// Package session holds the client's view of who is logged in.
//
// A Store is created by the application root and handed to every component
// that reads or changes the identity. It starts in the loading state and
// settles after a single profile fetch.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/fieldops/fieldops/internal/dto"
)

// State is a snapshot of the store.
type State struct {
	User    *dto.User
	Loading bool
}

// Authenticated reports whether the state carries a settled identity.
func (s State) Authenticated() bool {
	return !s.Loading && s.User != nil
}

// FetchProfile returns the current user or an error when there is none.
type FetchProfile func(ctx context.Context) (dto.User, error)

// Listener receives every state change.
type Listener func(State)

// Option configures a Store.
type Option func(*Store)

// WithMinLoading keeps the store loading for at least d after Init starts.
func WithMinLoading(d time.Duration) Option {
	return func(s *Store) { s.minLoading = d }
}

// WithProfileTimeout bounds the profile fetch made by Init.
func WithProfileTimeout(d time.Duration) Option {
	return func(s *Store) { s.profileTimeout = d }
}

// Store is safe for concurrent use.
type Store struct {
	minLoading     time.Duration
	profileTimeout time.Duration

	mu        sync.Mutex
	state     State
	initDone  bool
	userSet   bool
	listeners map[int]Listener
	nextID    int
}

// New returns a store that is loading with no identity.
func New(opts ...Option) *Store {
	s := &Store{
		state:     State{Loading: true},
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init performs the startup profile fetch. Any failure settles the store
// with no identity; there is no retry. Only the first call fetches.
//
// An identity set with SetUser while the fetch is pending wins over the
// fetch result.
func (s *Store) Init(ctx context.Context, fetch FetchProfile) {
	s.mu.Lock()
	if s.initDone {
		s.mu.Unlock()
		return
	}
	s.initDone = true
	s.mu.Unlock()

	started := time.Now()
	fetchCtx := ctx
	if s.profileTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.profileTimeout)
		defer cancel()
	}

	var user *dto.User
	if u, err := fetch(fetchCtx); err == nil {
		user = &u
	}

	if wait := s.minLoading - time.Since(started); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}

	s.update(func(st *State) {
		if !s.userSet {
			st.User = user
		}
		st.Loading = false
	})
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// User returns the current identity, or nil.
func (s *Store) User() *dto.User {
	return s.Snapshot().User
}

// SetUser overwrites the identity. Nil clears it.
func (s *Store) SetUser(u *dto.User) {
	var cp *dto.User
	if u != nil {
		v := *u
		cp = &v
	}
	s.update(func(st *State) {
		s.userSet = true
		st.User = cp
	})
}

// Logout clears the identity before call runs, so readers never see the
// old identity once Logout has been entered. The error of call is returned
// but the identity stays cleared.
func (s *Store) Logout(ctx context.Context, call func(ctx context.Context) error) error {
	s.SetUser(nil)
	if call == nil {
		return nil
	}
	return call(ctx)
}

// Subscribe registers fn for state changes and returns a func that removes
// it. fn is called synchronously by the goroutine that changed the state.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) update(mutate func(*State)) {
	s.mu.Lock()
	prev := s.state
	mutate(&s.state)
	next := s.state
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	if prev == next {
		return
	}
	for _, fn := range listeners {
		fn(next)
	}
}
