// Package store provides the in-memory, time-bounded security event log.
// The log is append-only; events fall out of it only through retention
// eviction, which runs opportunistically on every append.
package store

import (
	"sync"
	"sync/atomic"
	"time"

	"adaplio-sentinel/internal/event"
)

// DefaultRetention bounds how long events are kept.
const DefaultRetention = 24 * time.Hour

// Store is a thread-safe FIFO of security events. It favors a
// lock-light append path over random access; range reads scan the
// current window, which stays bounded by the retention period.
type Store struct {
	mu        sync.RWMutex
	events    []*event.Event
	retention time.Duration

	// Counters (accessed atomically)
	totalAppended uint64
	totalEvicted  uint64
}

// New creates a Store with the given retention period.
func New(retention time.Duration) *Store {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Store{retention: retention}
}

// Append records an event and opportunistically evicts entries older
// than the retention window. It never fails.
func (s *Store) Append(ev *event.Event) {
	cutoff := time.Now().Add(-s.retention)

	s.mu.Lock()
	s.events = append(s.events, ev)
	evicted := s.evictLocked(cutoff)
	s.mu.Unlock()

	atomic.AddUint64(&s.totalAppended, 1)
	if evicted > 0 {
		atomic.AddUint64(&s.totalEvicted, uint64(evicted))
	}
}

// QueryAfter returns a snapshot of all events with a timestamp at or
// after cutoff, in insertion order. Each call re-scans current state;
// no cursor is retained.
func (s *Store) QueryAfter(cutoff time.Time) []*event.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*event.Event, 0, len(s.events))
	for _, ev := range s.events {
		if !ev.Timestamp.Before(cutoff) {
			out = append(out, ev)
		}
	}
	return out
}

// Evict drops all events strictly older than now minus retention and
// returns how many were removed.
func (s *Store) Evict(retention time.Duration) int {
	cutoff := time.Now().Add(-retention)

	s.mu.Lock()
	evicted := s.evictLocked(cutoff)
	s.mu.Unlock()

	if evicted > 0 {
		atomic.AddUint64(&s.totalEvicted, uint64(evicted))
	}
	return evicted
}

// evictLocked drops the prefix of events older than cutoff. Timestamps
// are non-decreasing in practice, so a head scan is sufficient.
// Caller must hold s.mu.
func (s *Store) evictLocked(cutoff time.Time) int {
	i := 0
	for i < len(s.events) && s.events[i].Timestamp.Before(cutoff) {
		i++
	}
	if i == 0 {
		return 0
	}

	// Copy the remainder so evicted entries can be collected.
	remaining := make([]*event.Event, len(s.events)-i)
	copy(remaining, s.events[i:])
	s.events = remaining
	return i
}

// Len returns the number of events currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Stats holds store counters for health reporting.
type Stats struct {
	Current  int    `json:"current"`
	Appended uint64 `json:"appended"`
	Evicted  uint64 `json:"evicted"`
}

// Stats returns current store counters.
func (s *Store) Stats() Stats {
	return Stats{
		Current:  s.Len(),
		Appended: atomic.LoadUint64(&s.totalAppended),
		Evicted:  atomic.LoadUint64(&s.totalEvicted),
	}
}
