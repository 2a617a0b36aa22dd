package report

import (
	"sync"
)

// Filter selects taxis of a snapshot.
type Filter struct {
	State string
}

// Store publishes the latest snapshot to concurrent readers.
type Store struct {
	mu     sync.RWMutex
	latest Snapshot
	ok     bool
}

// NewStore returns an empty Store.
func NewStore() *Store { return &Store{} }

// Set replaces the latest snapshot.
func (s *Store) Set(snap Snapshot) {
	s.mu.Lock()
	s.latest = snap
	s.ok = true
	s.mu.Unlock()
}

// Latest returns the last snapshot and whether one was published yet.
func (s *Store) Latest() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.ok
}

// Taxis lists taxis of the latest snapshot matching f, ascending by id.
func (s *Store) Taxis(f Filter) []TaxiStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]TaxiStatus, 0, len(s.latest.TaxiStatus))
	for _, t := range s.latest.TaxiStatus {
		if f.State != "" && t.State != f.State {
			continue
		}
		res = append(res, t)
	}
	return res
}
