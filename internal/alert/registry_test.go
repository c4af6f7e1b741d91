package alert

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSeverityString(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityLow, "low"},
		{SeverityMedium, "medium"},
		{SeverityHigh, "high"},
		{SeverityCritical, "critical"},
		{Severity(0), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.severity.String(); got != tt.want {
			t.Errorf("Severity(%d).String() = %q, want %q", tt.severity, got, tt.want)
		}
	}
}

func TestSeverityMarshalJSON(t *testing.T) {
	data, err := json.Marshal(SeverityCritical)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(data) != `"critical"` {
		t.Errorf("Marshal = %s, want %q", data, "critical")
	}
}

func TestRegistry_UpsertInsert(t *testing.T) {
	r := NewRegistry()

	a := r.Upsert("brute_force_2026082910", "brute_force_attack", SeverityHigh, "attack from 1.2.3.4", map[string]any{"ip_address": "1.2.3.4"})

	if a.ID == uuid.Nil {
		t.Error("inserted alert has nil ID")
	}
	if a.Type != "brute_force_attack" || a.Severity != SeverityHigh {
		t.Errorf("alert = %+v, wrong type or severity", a)
	}
	if !a.ExpiresAt.After(a.Timestamp) {
		t.Error("ExpiresAt should be after Timestamp")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistry_UpsertRefreshesInPlace(t *testing.T) {
	r := NewRegistry()

	first := r.Upsert("key", "brute_force_attack", SeverityHigh, "5 attempts", nil)
	second := r.Upsert("key", "brute_force_attack", SeverityCritical, "20 attempts", map[string]any{"attempt_count": 20})

	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1; same key must update in place", r.Len())
	}
	if second.ID != first.ID {
		t.Error("refresh must keep the original alert ID")
	}
	if !second.ExpiresAt.Equal(first.ExpiresAt) {
		t.Error("refresh must not extend the original expiry")
	}
	if second.Severity != SeverityCritical || second.Message != "20 attempts" {
		t.Errorf("refresh did not overwrite mutable fields: %+v", second)
	}

	active := r.ListActive()
	if len(active) != 1 || active[0].Message != "20 attempts" {
		t.Errorf("ListActive = %+v, want the refreshed alert", active)
	}
}

func TestRegistry_DistinctKeysDistinctAlerts(t *testing.T) {
	r := NewRegistry()

	r.Upsert("brute_force_2026082910", "brute_force_attack", SeverityHigh, "hour 10", nil)
	r.Upsert("brute_force_2026082911", "brute_force_attack", SeverityHigh, "hour 11", nil)

	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2; different hour buckets are separate alerts", r.Len())
	}
}

func TestRegistry_ListActiveSeverityOrder(t *testing.T) {
	r := NewRegistry()

	r.Upsert("k1", "rapid_requests", SeverityMedium, "medium", nil)
	r.Upsert("k2", "immediate_brute_force", SeverityCritical, "critical", nil)
	r.Upsert("k3", "brute_force_attack", SeverityHigh, "high", nil)

	active := r.ListActive()
	if len(active) != 3 {
		t.Fatalf("ListActive returned %d alerts, want 3", len(active))
	}

	want := []Severity{SeverityCritical, SeverityHigh, SeverityMedium}
	for i, a := range active {
		if a.Severity != want[i] {
			t.Errorf("active[%d].Severity = %v, want %v", i, a.Severity, want[i])
		}
	}
}

func TestRegistry_ExpiredAlertsEvicted(t *testing.T) {
	// Negative TTL makes every alert born expired.
	r := NewRegistryWithTTL(-time.Second)

	r.Upsert("k1", "brute_force_attack", SeverityHigh, "expired on arrival", nil)
	if r.Len() != 1 {
		t.Fatalf("Len() = %d before listing, want 1", r.Len())
	}

	if active := r.ListActive(); len(active) != 0 {
		t.Errorf("ListActive = %d alerts, want 0", len(active))
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d after listing, want 0; listing must evict expired entries", r.Len())
	}

	// Idempotent on an empty registry
	if active := r.ListActive(); len(active) != 0 {
		t.Errorf("second ListActive = %d alerts, want 0", len(active))
	}
}

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry()

	a := r.Upsert("k1", "brute_force_attack", SeverityHigh, "attack", nil)

	if !r.Resolve(a.ID) {
		t.Fatal("Resolve returned false for existing alert")
	}
	if r.Resolve(uuid.New()) {
		t.Error("Resolve returned true for unknown ID")
	}

	active := r.ListActive()
	if len(active) != 1 || !active[0].Resolved {
		t.Errorf("resolved alert should stay listed with Resolved set: %+v", active)
	}
}

func TestRegistry_ResolvedStaysResolvedAfterRetrigger(t *testing.T) {
	r := NewRegistry()

	a := r.Upsert("k1", "brute_force_attack", SeverityHigh, "attack", nil)
	r.Resolve(a.ID)

	refreshed := r.Upsert("k1", "brute_force_attack", SeverityHigh, "attack again", nil)
	if !refreshed.Resolved {
		t.Error("re-trigger must not clear the resolved flag")
	}
}

func TestRegistry_ConcurrentSameKeyUpserts(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Upsert("shared", "brute_force_attack", SeverityHigh, "attack", nil)
		}()
	}
	wg.Wait()

	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1; concurrent upserts of one key must collapse", r.Len())
	}
}
