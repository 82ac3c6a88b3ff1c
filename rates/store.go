package rates

import (
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

// Store holds the current snapshot for concurrent readers.
// It has a single writer (the refresh monitor), and every write replaces
// the whole snapshot
type Store struct {
	current atomic.Pointer[Snapshot]

	subscribers map[xid.ID]func(Snapshot)
	subMux      sync.Mutex
}

// NewStore creates a new store seeded with the given snapshot
func NewStore(initial Snapshot) *Store {
	s := &Store{
		subscribers: make(map[xid.ID]func(Snapshot)),
	}

	s.current.Store(&initial)

	return s
}

// Get returns the current snapshot
func (s *Store) Get() Snapshot {
	return *s.current.Load()
}

// Set publishes a new snapshot and notifies the subscribers
func (s *Store) Set(snapshot Snapshot) {
	s.current.Store(&snapshot)

	s.subMux.Lock()

	callbacks := make([]func(Snapshot), 0, len(s.subscribers))
	for _, cb := range s.subscribers {
		callbacks = append(callbacks, cb)
	}

	s.subMux.Unlock()

	for _, cb := range callbacks {
		cb(snapshot)
	}
}

// Subscribe registers a callback invoked on every Set.
// The returned function removes the subscription
func (s *Store) Subscribe(cb func(Snapshot)) func() {
	id := xid.New()

	s.subMux.Lock()
	s.subscribers[id] = cb
	s.subMux.Unlock()

	return func() {
		s.subMux.Lock()
		delete(s.subscribers, id)
		s.subMux.Unlock()
	}
}
