package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"adaplio-sentinel/internal/event"
	"adaplio-sentinel/internal/store"
)

func newEvent(eventType, userID, ip string, ts time.Time) *event.Event {
	return &event.Event{
		ID:        uuid.New(),
		Type:      eventType,
		UserID:    userID,
		IPAddress: ip,
		Timestamp: ts,
	}
}

func TestCompute_Rollup(t *testing.T) {
	now := time.Now().UTC()
	events := []*event.Event{
		newEvent("auth_failed", "u1", "10.0.0.1", now),
		newEvent("auth_failed", "u1", "10.0.0.1", now),
		newEvent("auth_failed", "u2", "10.0.0.2", now),
		newEvent("rate_limit_exceeded", "", "10.0.0.1", now),
		newEvent("rate_limit_exceeded", "", "10.0.0.2", now),
	}

	sum := Compute(events, time.Hour)

	if sum.TotalEvents != 5 {
		t.Errorf("TotalEvents = %d, want 5", sum.TotalEvents)
	}
	if sum.FailedAuthAttempts != 3 {
		t.Errorf("FailedAuthAttempts = %d, want 3", sum.FailedAuthAttempts)
	}
	if sum.RateLimitViolations != 2 {
		t.Errorf("RateLimitViolations = %d, want 2", sum.RateLimitViolations)
	}
	if sum.SuspiciousActivities != 0 {
		t.Errorf("SuspiciousActivities = %d, want 0", sum.SuspiciousActivities)
	}
	if sum.UniqueIPAddresses != 2 {
		t.Errorf("UniqueIPAddresses = %d, want 2", sum.UniqueIPAddresses)
	}
	if sum.UniqueUsers != 2 {
		t.Errorf("UniqueUsers = %d, want 2", sum.UniqueUsers)
	}
	if sum.EventsByType["auth_failed"] != 3 || sum.EventsByType["rate_limit_exceeded"] != 2 {
		t.Errorf("EventsByType = %v", sum.EventsByType)
	}
}

func TestCompute_SubstringMatching(t *testing.T) {
	// Counts match on substring, so derived types still count.
	now := time.Now().UTC()
	events := []*event.Event{
		newEvent("api_auth_failed_mfa", "", "", now),
		newEvent("suspicious_payload", "", "", now),
		newEvent("login_failed", "", "", now),
	}

	sum := Compute(events, time.Hour)
	if sum.FailedAuthAttempts != 1 {
		t.Errorf("FailedAuthAttempts = %d, want 1; login_failed is not an auth_failed substring match", sum.FailedAuthAttempts)
	}
	if sum.SuspiciousActivities != 1 {
		t.Errorf("SuspiciousActivities = %d, want 1", sum.SuspiciousActivities)
	}
}

func TestCompute_EmptyAndMissingFields(t *testing.T) {
	now := time.Now().UTC()

	sum := Compute(nil, time.Hour)
	if sum.TotalEvents != 0 || sum.UniqueIPAddresses != 0 || len(sum.TopIPAddresses) != 0 {
		t.Errorf("empty snapshot should produce a zero summary: %+v", sum)
	}

	// Events without user or IP must not count toward uniques
	events := []*event.Event{
		newEvent("auth_failed", "", "", now),
		newEvent("auth_failed", "", "", now),
	}
	sum = Compute(events, time.Hour)
	if sum.UniqueIPAddresses != 0 || sum.UniqueUsers != 0 {
		t.Errorf("blank identities counted as unique: %+v", sum)
	}
}

func TestRankIPs_TopTenWithTieBreak(t *testing.T) {
	now := time.Now().UTC()
	var events []*event.Event

	// 12 IPs: ip-0 gets 13 events, ip-1 gets 12, ... ip-11 gets 2
	for i := 0; i < 12; i++ {
		ip := fmt.Sprintf("10.0.0.%d", i)
		for j := 0; j < 13-i; j++ {
			events = append(events, newEvent("request", "", ip, now))
		}
	}
	// Two tied IPs appended afterward; first-seen order breaks the tie
	events = append(events, newEvent("request", "", "10.1.0.1", now))
	events = append(events, newEvent("request", "", "10.1.0.2", now))

	sum := Compute(events, time.Hour)

	if len(sum.TopIPAddresses) != 10 {
		t.Fatalf("TopIPAddresses length = %d, want 10", len(sum.TopIPAddresses))
	}
	if sum.TopIPAddresses[0].IPAddress != "10.0.0.0" || sum.TopIPAddresses[0].Count != 13 {
		t.Errorf("top entry = %+v, want 10.0.0.0 with 13", sum.TopIPAddresses[0])
	}
	for i := 1; i < len(sum.TopIPAddresses); i++ {
		if sum.TopIPAddresses[i].Count > sum.TopIPAddresses[i-1].Count {
			t.Errorf("TopIPAddresses not sorted descending at %d: %+v", i, sum.TopIPAddresses)
		}
	}
}

func TestAggregator_SummarizeWindow(t *testing.T) {
	s := store.New(24 * time.Hour)
	now := time.Now().UTC()

	s.Append(newEvent("auth_failed", "u1", "10.0.0.1", now.Add(-2*time.Hour)))
	s.Append(newEvent("auth_failed", "u1", "10.0.0.1", now))

	agg := NewAggregator(s)
	sum := agg.Summarize(time.Hour)

	if sum.TotalEvents != 1 {
		t.Errorf("TotalEvents = %d, want 1; events outside the period must be excluded", sum.TotalEvents)
	}
	if sum.Period != time.Hour {
		t.Errorf("Period = %v, want 1h", sum.Period)
	}
}
