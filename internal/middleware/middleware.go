// Package middleware provides HTTP middleware for the sentinel service.
// Several middlewares double as security event emitters: rejected or
// suspicious requests are fed back into the monitoring engine.
package middleware

import (
	"net"
	"net/http"
	"strings"
)

// EventSink receives security events emitted by middleware. The
// monitoring engine satisfies this interface.
type EventSink interface {
	LogSecurityEvent(eventType, userID, ipAddress string, additionalData any)
}

// Chain applies middlewares to a handler, outermost first.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// ClientIP extracts the client IP from the HTTP request. If trustProxy
// is true, proxy headers are consulted first; the rightmost entry of
// X-Forwarded-For is used because it was set by the trusted proxy
// closest to us and cannot be spoofed by the client.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			for i := len(parts) - 1; i >= 0; i-- {
				if ip := strings.TrimSpace(parts[i]); ip != "" {
					return ip
				}
			}
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return xri
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
