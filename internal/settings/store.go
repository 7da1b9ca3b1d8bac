package settings

import "sync/atomic"

// Store publishes Settings snapshots to concurrent readers.
type Store struct {
	cur atomic.Pointer[Settings]
}

// NewStore returns a Store holding initial.
func NewStore(initial Settings) *Store {
	s := &Store{}
	s.Replace(initial)
	return s
}

// Load returns the current snapshot. Callers read it for the duration of one
// request and never modify it.
func (s *Store) Load() *Settings {
	return s.cur.Load()
}

// Replace swaps in next. In-flight requests keep the snapshot they loaded.
func (s *Store) Replace(next Settings) {
	s.cur.Store(&next)
}
