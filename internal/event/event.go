// Package event defines the security event model for Adaplio Sentinel.
// Events carry a free-form type string so callers can introduce new
// types without code changes; the heuristic-relevant categories are
// derived at evaluation time by substring matching.
package event

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is a single observed security occurrence. Immutable once
// created; removed only by retention eviction.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"event_type"`
	UserID    string    `json:"user_id,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// Data holds the serialized additional payload, if any. It is
	// inspected only for content matching, never schema-validated.
	Data string `json:"additional_data,omitempty"`
}

// Category is the heuristic-relevant classification of an event type.
type Category int

const (
	CategoryGeneral Category = iota
	CategoryAuthFailure
	CategoryRateLimit
	CategorySuspicious
	CategoryAccessDenied
)

var categoryNames = map[Category]string{
	CategoryGeneral:      "general",
	CategoryAuthFailure:  "auth_failure",
	CategoryRateLimit:    "rate_limit",
	CategorySuspicious:   "suspicious",
	CategoryAccessDenied: "access_denied",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "general"
}

// categoryPatterns maps known substrings to categories, checked in
// order. First match wins.
var categoryPatterns = []struct {
	category Category
	patterns []string
}{
	{CategoryAuthFailure, []string{"auth_failed", "login_failed"}},
	{CategoryAccessDenied, []string{"unauthorized", "forbidden"}},
	{CategoryRateLimit, []string{"rate_limit"}},
	{CategorySuspicious, []string{"suspicious"}},
}

// Classify maps a free-form event type to its heuristic category.
// Unrecognized types classify as CategoryGeneral.
func Classify(eventType string) Category {
	for _, cp := range categoryPatterns {
		for _, p := range cp.patterns {
			if strings.Contains(eventType, p) {
				return cp.category
			}
		}
	}
	return CategoryGeneral
}

// Category returns the heuristic category of the event's type.
func (e *Event) Category() Category {
	return Classify(e.Type)
}
