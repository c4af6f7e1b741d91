package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"adaplio-sentinel/internal/config"
)

// fakeSink captures emitted security events for assertions.
type fakeSink struct {
	mu     sync.Mutex
	events []sinkEvent
}

type sinkEvent struct {
	eventType string
	userID    string
	ipAddress string
	data      any
}

func (f *fakeSink) LogSecurityEvent(eventType, userID, ipAddress string, additionalData any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, sinkEvent{eventType, userID, ipAddress, additionalData})
}

func (f *fakeSink) byType(eventType string) []sinkEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sinkEvent
	for _, e := range f.events {
		if e.eventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		trustProxy bool
		want       string
	}{
		{"direct", "203.0.113.7:4312", "", "", false, "203.0.113.7"},
		{"proxy headers ignored when untrusted", "203.0.113.7:4312", "10.0.0.1", "", false, "203.0.113.7"},
		{"xff single", "127.0.0.1:80", "198.51.100.2", "", true, "198.51.100.2"},
		{"xff rightmost wins", "127.0.0.1:80", "1.1.1.1, 198.51.100.2", "", true, "198.51.100.2"},
		{"x-real-ip fallback", "127.0.0.1:80", "", "198.51.100.9", true, "198.51.100.9"},
		{"no port", "203.0.113.7", "", "", false, "203.0.113.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := ClientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(okHandler(), mw("outer"), mw("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Errorf("chain order = %v, want [outer inner]", order)
	}
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders()(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("missing Content-Security-Policy header")
	}
}

func TestCORS(t *testing.T) {
	cfg := config.CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"https://app.example.com"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         600,
	}
	h := CORS(cfg)(okHandler())

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
			t.Errorf("Allow-Origin = %q", got)
		}
	})

	t.Run("disallowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Allow-Origin = %q, want empty", got)
		}
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("preflight status = %d, want 204", rec.Code)
		}
		if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST" {
			t.Errorf("Allow-Methods = %q", got)
		}
	})
}

func TestAPIKey(t *testing.T) {
	cfg := config.AuthConfig{
		Enabled:      true,
		APIKeyHeader: "X-API-Key",
		APIKeys:      []string{"secret-key"},
	}

	t.Run("valid key passes", func(t *testing.T) {
		sink := &fakeSink{}
		h := APIKey(cfg, false, sink)(okHandler())

		req := httptest.NewRequest(http.MethodGet, "/v1/security/alerts", nil)
		req.Header.Set("X-API-Key", "secret-key")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
		if len(sink.events) != 0 {
			t.Errorf("valid key emitted events: %v", sink.events)
		}
	})

	t.Run("missing key rejected and reported", func(t *testing.T) {
		sink := &fakeSink{}
		h := APIKey(cfg, false, sink)(okHandler())

		req := httptest.NewRequest(http.MethodGet, "/v1/security/alerts", nil)
		req.RemoteAddr = "203.0.113.9:1000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		emitted := sink.byType("unauthorized_api_access")
		if len(emitted) != 1 {
			t.Fatalf("unauthorized events = %d, want 1", len(emitted))
		}
		if emitted[0].ipAddress != "203.0.113.9" {
			t.Errorf("event IP = %q, want client IP", emitted[0].ipAddress)
		}
	})

	t.Run("health exempt", func(t *testing.T) {
		sink := &fakeSink{}
		h := APIKey(cfg, false, sink)(okHandler())

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("health status = %d, want 200 without a key", rec.Code)
		}
	})

	t.Run("disabled auth passes everything", func(t *testing.T) {
		h := APIKey(config.AuthConfig{Enabled: false}, false, nil)(okHandler())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/security/alerts", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}

func TestAudit(t *testing.T) {
	t.Run("success event", func(t *testing.T) {
		sink := &fakeSink{}
		h := Audit(sink, false, []string{"/v1/"})(okHandler())

		req := httptest.NewRequest(http.MethodGet, "/v1/security/metrics", nil)
		req.Header.Set("X-Actor-ID", "operator-1")
		h.ServeHTTP(httptest.NewRecorder(), req)

		emitted := sink.byType("audit_success")
		if len(emitted) != 1 {
			t.Fatalf("audit_success events = %d, want 1", len(emitted))
		}
		if emitted[0].userID != "operator-1" {
			t.Errorf("event userID = %q, want actor header", emitted[0].userID)
		}
	})

	t.Run("failure event", func(t *testing.T) {
		sink := &fakeSink{}
		failing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		h := Audit(sink, false, []string{"/v1/"})(failing)

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/x", nil))

		if len(sink.byType("audit_failed")) != 1 {
			t.Error("4xx response must emit audit_failed")
		}
	})

	t.Run("unaudited path", func(t *testing.T) {
		sink := &fakeSink{}
		h := Audit(sink, false, []string{"/v1/"})(okHandler())

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

		if len(sink.events) != 0 {
			t.Errorf("unaudited path emitted events: %v", sink.events)
		}
	})
}
