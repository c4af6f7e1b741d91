// Package metrics computes read-only rollups over the security event
// log for operator dashboards. Every call recomputes from the source of
// truth; nothing is cached.
package metrics

import (
	"sort"
	"strings"
	"time"

	"adaplio-sentinel/internal/event"
	"adaplio-sentinel/internal/store"
)

// topIPLimit caps the ranked IP list in a summary.
const topIPLimit = 10

// Summary is the operator-facing rollup for a look-back period.
type Summary struct {
	Period               time.Duration  `json:"period"`
	TotalEvents          int            `json:"total_events"`
	FailedAuthAttempts   int            `json:"failed_auth_attempts"`
	RateLimitViolations  int            `json:"rate_limit_violations"`
	SuspiciousActivities int            `json:"suspicious_activities"`
	UniqueIPAddresses    int            `json:"unique_ip_addresses"`
	UniqueUsers          int            `json:"unique_users"`
	TopIPAddresses       []IPCount      `json:"top_ip_addresses"`
	EventsByType         map[string]int `json:"events_by_type"`
}

// IPCount pairs an IP address with its event count.
type IPCount struct {
	IPAddress string `json:"ip_address"`
	Count     int    `json:"count"`
}

// Aggregator computes summaries from the event store.
type Aggregator struct {
	store *store.Store
}

// NewAggregator creates an Aggregator reading from the given store.
func NewAggregator(s *store.Store) *Aggregator {
	return &Aggregator{store: s}
}

// Summarize rolls up all events in the last period with a single scan.
func (a *Aggregator) Summarize(period time.Duration) Summary {
	events := a.store.QueryAfter(time.Now().Add(-period))
	return Compute(events, period)
}

// Compute builds a Summary from an event snapshot.
func Compute(events []*event.Event, period time.Duration) Summary {
	sum := Summary{
		Period:       period,
		TotalEvents:  len(events),
		EventsByType: make(map[string]int),
	}

	ipCounts := make(map[string]int)
	ipOrder := make(map[string]int) // first-seen rank, breaks top-N ties
	users := make(map[string]struct{})

	for _, ev := range events {
		sum.EventsByType[ev.Type]++

		if strings.Contains(ev.Type, "auth_failed") {
			sum.FailedAuthAttempts++
		}
		if strings.Contains(ev.Type, "rate_limit") {
			sum.RateLimitViolations++
		}
		if strings.Contains(ev.Type, "suspicious") {
			sum.SuspiciousActivities++
		}

		if ev.IPAddress != "" {
			if _, seen := ipCounts[ev.IPAddress]; !seen {
				ipOrder[ev.IPAddress] = len(ipOrder)
			}
			ipCounts[ev.IPAddress]++
		}
		if ev.UserID != "" {
			users[ev.UserID] = struct{}{}
		}
	}

	sum.UniqueIPAddresses = len(ipCounts)
	sum.UniqueUsers = len(users)
	sum.TopIPAddresses = rankIPs(ipCounts, ipOrder)

	return sum
}

// rankIPs orders IPs by count descending, ties by first-seen order, and
// keeps the top entries.
func rankIPs(counts map[string]int, order map[string]int) []IPCount {
	ranked := make([]IPCount, 0, len(counts))
	for ip, n := range counts {
		ranked = append(ranked, IPCount{IPAddress: ip, Count: n})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return order[ranked[i].IPAddress] < order[ranked[j].IPAddress]
	})

	if len(ranked) > topIPLimit {
		ranked = ranked[:topIPLimit]
	}
	return ranked
}
