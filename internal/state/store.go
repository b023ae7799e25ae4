package state

import "sync"

// Store owns the chat state. Timers and callers are goroutines, so Dispatch
// serializes reductions behind a mutex. Only the sync engine dispatches.
type Store struct {
	mu    sync.Mutex
	state State
	subs  []func(State)
}

func NewStore() *Store {
	return &Store{state: NewState()}
}

// Dispatch applies the action and notifies subscribers with the resulting
// snapshot. Subscribers run outside the lock and must not call Dispatch
// synchronously from the callback.
func (s *Store) Dispatch(action Action) {
	s.mu.Lock()
	s.state = Reduce(s.state, action)
	next := s.state
	subs := s.subs
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
}

// State returns the current snapshot. Slices share backing arrays with the
// store; treat the snapshot as read-only.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers a callback invoked after every dispatch.
func (s *Store) Subscribe(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}
