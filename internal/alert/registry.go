// Package alert provides the deduplicated, severity-ranked registry of
// active security alerts.
package alert

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long an alert stays active after first detection.
// Re-detection does not extend it.
const DefaultTTL = 24 * time.Hour

// Severity ranks alerts. Higher values sort first in the active feed.
type Severity int

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	}
	return "unknown"
}

// MarshalJSON renders the severity name rather than its ordinal.
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Alert is a derived signal produced by a detection heuristic matching
// a pattern across multiple events.
type Alert struct {
	ID        uuid.UUID      `json:"id"`
	Type      string         `json:"alert_type"`
	Severity  Severity       `json:"severity"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	ExpiresAt time.Time      `json:"expires_at"`
	Evidence  map[string]any `json:"evidence,omitempty"`
	Resolved  bool           `json:"resolved"`
}

// Registry holds the set of currently active alerts keyed by dedup
// string. Upserts are atomic per key; unrelated keys never contend on
// a shared lock.
type Registry struct {
	entries sync.Map // dedup key -> *entry
	ttl     time.Duration
}

type entry struct {
	mu    sync.Mutex
	alert Alert
}

// NewRegistry creates a Registry with the default alert TTL.
func NewRegistry() *Registry {
	return NewRegistryWithTTL(DefaultTTL)
}

// NewRegistryWithTTL creates a Registry with the given alert TTL.
func NewRegistryWithTTL(ttl time.Duration) *Registry {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &Registry{ttl: ttl}
}

// Upsert inserts a new alert under key or refreshes the existing one in
// place. On update the message, timestamp, severity and evidence are
// overwritten; the expiry set at first detection is kept, so an alert
// ages out on its original schedule even when re-triggered. A resolved
// alert stays resolved. Returns the resulting alert state.
func (r *Registry) Upsert(key, alertType string, severity Severity, message string, evidence map[string]any) Alert {
	now := time.Now().UTC()
	fresh := &entry{alert: Alert{
		ID:        uuid.New(),
		Type:      alertType,
		Severity:  severity,
		Message:   message,
		Timestamp: now,
		ExpiresAt: now.Add(r.ttl),
		Evidence:  evidence,
	}}

	actual, loaded := r.entries.LoadOrStore(key, fresh)
	if !loaded {
		return fresh.alert
	}

	e := actual.(*entry)
	e.mu.Lock()
	e.alert.Severity = severity
	e.alert.Message = message
	e.alert.Timestamp = now
	e.alert.Evidence = evidence
	out := e.alert
	e.mu.Unlock()
	return out
}

// ListActive evicts expired alerts and returns the remainder ordered by
// severity descending. Ties are left in map iteration order.
func (r *Registry) ListActive() []Alert {
	now := time.Now().UTC()
	var out []Alert

	r.entries.Range(func(key, value any) bool {
		e := value.(*entry)
		e.mu.Lock()
		a := e.alert
		e.mu.Unlock()

		if a.ExpiresAt.Before(now) {
			r.entries.Delete(key)
			return true
		}
		out = append(out, a)
		return true
	})

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity > out[j].Severity
	})
	return out
}

// Resolve marks the alert with the given ID resolved. Detection logic
// never reads or clears the flag; a resolved alert stays resolved
// until natural expiry.
func (r *Registry) Resolve(id uuid.UUID) bool {
	found := false
	r.entries.Range(func(_, value any) bool {
		e := value.(*entry)
		e.mu.Lock()
		if e.alert.ID == id {
			e.alert.Resolved = true
			found = true
		}
		e.mu.Unlock()
		return !found
	})
	return found
}

// Len returns the number of entries currently held, expired or not.
func (r *Registry) Len() int {
	n := 0
	r.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
