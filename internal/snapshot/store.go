// Package snapshot provides the per-collector latest-value cache.
//
// Each collector owns exactly one Store. Writers apply the fields of one
// inbound message as a single atomic update; readers always get a copy, so
// a snapshot never mixes fields from two non-overlapping updates.
package snapshot

import (
	"maps"
	"sync"
	"time"
)

// Store is a lock-guarded latest-value cache with copy-on-read semantics.
// The zero value is not usable; call New.
type Store struct {
	mu        sync.Mutex
	fields    map[string]float64
	updatedAt time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{fields: make(map[string]float64)}
}

// Replace swaps the entire field set for the given one. Used when a message
// carries the collector's complete state.
func (s *Store) Replace(fields map[string]float64) {
	next := make(map[string]float64, len(fields))
	maps.Copy(next, fields)

	s.mu.Lock()
	s.fields = next
	s.updatedAt = time.Now()
	s.mu.Unlock()
}

// Merge applies the fields of one message on top of the current state as a
// single atomic update. Fields not named by the message keep their values.
func (s *Store) Merge(fields map[string]float64) {
	if len(fields) == 0 {
		return
	}

	s.mu.Lock()
	next := make(map[string]float64, len(s.fields)+len(fields))
	maps.Copy(next, s.fields)
	maps.Copy(next, fields)
	s.fields = next
	s.updatedAt = time.Now()
	s.mu.Unlock()
}

// Snapshot returns a consistent copy of the current field values. Safe to
// call concurrently with Replace/Merge.
func (s *Store) Snapshot() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]float64, len(s.fields))
	maps.Copy(out, s.fields)
	return out
}

// UpdatedAt reports when the store last accepted an update.
func (s *Store) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}
