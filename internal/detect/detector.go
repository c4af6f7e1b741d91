// Package detect implements the threat heuristics that turn event
// patterns into alerts. Heuristics run in two modes: a periodic or
// on-demand sweep over the recent window, and an immediate check
// evaluated synchronously on each ingested event.
package detect

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"adaplio-sentinel/internal/alert"
	"adaplio-sentinel/internal/event"
	"adaplio-sentinel/internal/store"
)

// Alert type vocabulary.
const (
	AlertBruteForce          = "brute_force_attack"
	AlertRapidRequests       = "rapid_requests"
	AlertAccountSharing      = "potential_account_sharing"
	AlertPrivilegeEscalation = "privilege_escalation_attempt"
	AlertImmediateBruteForce = "immediate_brute_force"
	AlertInjectionAttempt    = "injection_attempt"
)

// injectionPatterns mark a payload as a likely SQL injection or XSS
// probe. Matched against the case-folded serialized payload.
var injectionPatterns = []string{"select ", "union ", "drop ", "<script", "javascript:", "eval("}

// Config holds the heuristic windows and thresholds.
type Config struct {
	SweepWindow     time.Duration `yaml:"sweep_window"`
	RapidWindow     time.Duration `yaml:"rapid_window"`
	ImmediateWindow time.Duration `yaml:"immediate_window"`

	BruteForceThreshold     int `yaml:"brute_force_threshold"`
	RapidRequestThreshold   int `yaml:"rapid_request_threshold"`
	AccountSharingThreshold int `yaml:"account_sharing_threshold"`
	PrivilegeThreshold      int `yaml:"privilege_threshold"`
	ImmediateThreshold      int `yaml:"immediate_threshold"`
}

// DefaultConfig returns the default detection configuration.
func DefaultConfig() Config {
	return Config{
		SweepWindow:     time.Hour,
		RapidWindow:     time.Minute,
		ImmediateWindow: 5 * time.Minute,

		BruteForceThreshold:     10,
		RapidRequestThreshold:   100,
		AccountSharingThreshold: 50,
		PrivilegeThreshold:      5,
		ImmediateThreshold:      5,
	}
}

// Detector evaluates heuristics over the event log and upserts the
// resulting alerts into the registry.
type Detector struct {
	cfg      Config
	store    *store.Store
	registry *alert.Registry
	logger   *slog.Logger
}

// New creates a Detector. A zero config falls back to defaults.
func New(cfg Config, s *store.Store, r *alert.Registry, logger *slog.Logger) *Detector {
	if cfg.SweepWindow <= 0 {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{cfg: cfg, store: s, registry: r, logger: logger}
}

// Sweep runs every sweep heuristic over the recent window. The window
// is pulled once; each heuristic is evaluated independently, so one
// heuristic matching nothing never stops the others.
func (d *Detector) Sweep() {
	now := time.Now().UTC()
	events := d.store.QueryAfter(now.Add(-d.cfg.SweepWindow))

	d.checkBruteForce(events)
	d.checkRapidRequests(events, now)
	d.checkAccountSharing(events)
	d.checkPrivilegeEscalation(events)
}

// InspectEvent runs the latency-sensitive checks synchronously on a
// just-ingested event.
func (d *Detector) InspectEvent(ev *event.Event) {
	d.checkImmediateBruteForce(ev)
	d.checkInjection(ev)
}

func (d *Detector) checkBruteForce(events []*event.Event) {
	failures := make(map[string]int)
	for _, ev := range events {
		if ev.IPAddress == "" {
			continue
		}
		if ev.Category() == event.CategoryAuthFailure {
			failures[ev.IPAddress]++
		}
	}

	for ip, n := range failures {
		if n < d.cfg.BruteForceThreshold {
			continue
		}
		d.raise(AlertBruteForce, alert.SeverityHigh,
			fmt.Sprintf("Potential brute force attack from IP %s: %d failed auth attempts in %s", ip, n, d.cfg.SweepWindow),
			map[string]any{"ip_address": ip, "attempt_count": n})
	}
}

func (d *Detector) checkRapidRequests(events []*event.Event, now time.Time) {
	cutoff := now.Add(-d.cfg.RapidWindow)
	requests := make(map[string]int)
	for _, ev := range events {
		if ev.IPAddress == "" || ev.Timestamp.Before(cutoff) {
			continue
		}
		requests[ev.IPAddress]++
	}

	for ip, n := range requests {
		if n < d.cfg.RapidRequestThreshold {
			continue
		}
		d.raise(AlertRapidRequests, alert.SeverityMedium,
			fmt.Sprintf("Rapid requests from IP %s: %d requests in %s", ip, n, d.cfg.RapidWindow),
			map[string]any{"ip_address": ip, "request_count": n})
	}
}

func (d *Detector) checkAccountSharing(events []*event.Event) {
	usersByIP := make(map[string]map[string]struct{})
	for _, ev := range events {
		if ev.IPAddress == "" || ev.UserID == "" {
			continue
		}
		set := usersByIP[ev.IPAddress]
		if set == nil {
			set = make(map[string]struct{})
			usersByIP[ev.IPAddress] = set
		}
		set[ev.UserID] = struct{}{}
	}

	for ip, set := range usersByIP {
		if len(set) < d.cfg.AccountSharingThreshold {
			continue
		}
		d.raise(AlertAccountSharing, alert.SeverityMedium,
			fmt.Sprintf("Multiple users from IP %s: %d unique users in %s", ip, len(set), d.cfg.SweepWindow),
			map[string]any{"ip_address": ip, "unique_user_count": len(set)})
	}
}

func (d *Detector) checkPrivilegeEscalation(events []*event.Event) {
	denied := make(map[string]int)
	for _, ev := range events {
		if ev.UserID == "" {
			continue
		}
		if ev.Category() == event.CategoryAccessDenied {
			denied[ev.UserID]++
		}
	}

	for user, n := range denied {
		if n < d.cfg.PrivilegeThreshold {
			continue
		}
		d.raise(AlertPrivilegeEscalation, alert.SeverityHigh,
			fmt.Sprintf("Multiple unauthorized access attempts by user %s: %d attempts", user, n),
			map[string]any{"user_id": user, "attempt_count": n})
	}
}

// checkImmediateBruteForce exists to catch an in-progress attack before
// the hourly sweep would surface it: a lower threshold over a shorter
// window bounds detection latency. It uses a distinct alert type, so it
// never collides with the sweep's brute force alert in the dedup key.
func (d *Detector) checkImmediateBruteForce(ev *event.Event) {
	if ev.IPAddress == "" || !strings.Contains(ev.Type, "auth_failed") {
		return
	}

	cutoff := time.Now().UTC().Add(-d.cfg.ImmediateWindow)
	count := 0
	for _, prior := range d.store.QueryAfter(cutoff) {
		if prior.IPAddress == ev.IPAddress && strings.Contains(prior.Type, "auth_failed") {
			count++
		}
	}

	if count < d.cfg.ImmediateThreshold {
		return
	}
	d.raise(AlertImmediateBruteForce, alert.SeverityCritical,
		fmt.Sprintf("Immediate brute force threat from IP %s: %d failures in %s", ev.IPAddress, count, d.cfg.ImmediateWindow),
		map[string]any{"ip_address": ev.IPAddress, "failure_count": count})
}

func (d *Detector) checkInjection(ev *event.Event) {
	if ev.Data == "" {
		return
	}

	payload := strings.ToLower(ev.Data)
	for _, pattern := range injectionPatterns {
		if strings.Contains(payload, pattern) {
			d.raise(AlertInjectionAttempt, alert.SeverityHigh,
				fmt.Sprintf("Potential injection attempt detected from %s", ev.IPAddress),
				map[string]any{"ip_address": ev.IPAddress, "event_type": ev.Type})
			return
		}
	}
}

// dedupKey yields at most one active alert per type per clock hour.
func dedupKey(alertType string, now time.Time) string {
	return alertType + "_" + now.UTC().Format("2006010215")
}

func (d *Detector) raise(alertType string, severity alert.Severity, message string, evidence map[string]any) {
	a := d.registry.Upsert(dedupKey(alertType, time.Now()), alertType, severity, message, evidence)
	d.logger.Warn("security alert raised",
		"alert_type", alertType,
		"severity", severity.String(),
		"alert_id", a.ID,
		"message", message,
	)
}
