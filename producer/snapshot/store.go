package snapshot

import (
	"sync"

	"github.com/portwatch/portwatch/models"
)

// Store holds the current snapshot for one device. Exactly one snapshot is
// current at a time; Publish replaces it wholesale. During sustained failure
// the last-known snapshot stays available (stale-but-present) and the
// consecutive-failure counter lets the consumer decide when to mark the
// device unavailable.
type Store struct {
	mu       sync.RWMutex
	current  *models.Snapshot
	failures int
}

// NewStore creates an empty store: no snapshot, zero failures.
func NewStore() *Store {
	return &Store{}
}

// Publish atomically installs snap as the current snapshot and resets the
// consecutive-failure counter.
func (s *Store) Publish(snap models.Snapshot) {
	s.mu.Lock()
	s.current = &snap
	s.failures = 0
	s.mu.Unlock()
}

// RecordFailure increments the consecutive-failure counter, leaving the
// current snapshot untouched.
func (s *Store) RecordFailure() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures++
	return s.failures
}

// Current returns the most recently published snapshot, or ok=false when no
// cycle has succeeded yet. The returned value is a copy of the immutable
// snapshot; callers must treat nested maps as read-only.
func (s *Store) Current() (models.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return models.Snapshot{}, false
	}
	return *s.current, true
}

// ConsecutiveFailures reports how many cycles have failed since the last
// successful publish.
func (s *Store) ConsecutiveFailures() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failures
}
