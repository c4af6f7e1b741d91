package middleware

import (
	"net/http"
	"strings"
	"time"
)

// statusRecorder captures the response status for audit events.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

// Audit returns middleware that emits an audit event for every request
// under an audited prefix: audit_success for 2xx/3xx responses,
// audit_failed otherwise. Evidence carries path, method, status and
// latency. Requests outside the audited prefixes pass through
// untouched to keep the hot path cheap.
func Audit(sink EventSink, trustProxy bool, auditPrefixes []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sink == nil || !auditable(r.URL.Path, auditPrefixes) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			eventType := "audit_success"
			if rec.status >= 400 {
				eventType = "audit_failed"
			}

			sink.LogSecurityEvent(eventType, actorID(r), ClientIP(r, trustProxy), map[string]any{
				"path":        r.URL.Path,
				"method":      r.Method,
				"status_code": rec.status,
				"elapsed_ms":  time.Since(start).Milliseconds(),
			})
		})
	}
}

func auditable(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// actorID returns the caller identity asserted by an upstream auth
// layer, if any. The sentinel itself authenticates with API keys, not
// user identities, so this header is the only identity source here.
func actorID(r *http.Request) string {
	return r.Header.Get("X-Actor-ID")
}
