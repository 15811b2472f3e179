package store

import (
	"sync"
	"sync/atomic"
)

// Listener observes a state transition. Listeners run on the dispatching
// goroutine and must not call Dispatch themselves.
type Listener func(prev, next State)

type subscription struct {
	fn     Listener
	active atomic.Bool
}

// Store is the single writer of State.
type Store struct {
	dispatchMu sync.Mutex

	mu    sync.RWMutex
	state State
	subs  []*subscription
}

// New returns a store in the Idle phase.
func New() *Store {
	return &Store{state: State{Phase: PhaseIdle}}
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers fn for every subsequent transition and returns the
// function that removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	sub := &subscription{fn: fn}
	sub.active.Store(true)

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	return func() {
		if !sub.active.Swap(false) {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, other := range s.subs {
			if other == sub {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				break
			}
		}
	}
}

// Dispatch applies a and delivers the transition to every subscriber
// before returning. Concurrent dispatches are serialized, so subscribers
// see transitions in the order they were applied.
func (s *Store) Dispatch(a Action) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	prev := s.state
	s.state = a.apply(prev)
	next := s.state
	subs := append([]*subscription(nil), s.subs...)
	s.mu.Unlock()

	for _, sub := range subs {
		if sub.active.Load() {
			sub.fn(prev, next)
		}
	}
}
