package middleware

import (
	"crypto/subtle"
	"net/http"

	"adaplio-sentinel/internal/config"
)

// APIKey returns middleware that requires a configured API key on
// every request except /health. A missing or unknown key is rejected
// with 401 and reported to the sink as an unauthorized_api_access
// event, which feeds the privilege escalation heuristic when the
// caller asserts an identity.
func APIKey(cfg config.AuthConfig, trustProxy bool, sink EventSink) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(cfg.APIKeyHeader)
			if keyMatches(key, cfg.APIKeys) {
				next.ServeHTTP(w, r)
				return
			}

			if sink != nil {
				sink.LogSecurityEvent("unauthorized_api_access", actorID(r), ClientIP(r, trustProxy), map[string]any{
					"path":   r.URL.Path,
					"method": r.Method,
				})
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"code":"UNAUTHORIZED","message":"Valid API key required"}`))
		})
	}
}

func keyMatches(key string, keys []string) bool {
	if key == "" {
		return false
	}
	for _, candidate := range keys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(candidate)) == 1 {
			return true
		}
	}
	return false
}
