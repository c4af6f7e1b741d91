// Package api provides the operator-facing HTTP API: metrics rollups,
// the active alert feed, on-demand threat sweeps and remote event
// ingestion.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"adaplio-sentinel/internal/alert"
	"adaplio-sentinel/internal/event"
	"adaplio-sentinel/internal/middleware"
	"adaplio-sentinel/internal/monitor"
)

// maxLogEventPayload bounds the log-event request body.
const maxLogEventPayload = 64 * 1024

// APIError represents a structured API error response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// envelope is the response wrapper the operator dashboard expects.
type envelope struct {
	Success     bool      `json:"success"`
	Data        any       `json:"data,omitempty"`
	Message     string    `json:"message,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Handler serves the operator API backed by the monitoring engine.
type Handler struct {
	monitor    *monitor.Service
	validator  *event.Validator
	trustProxy bool
	startTime  time.Time
}

// NewHandler creates a Handler.
func NewHandler(m *monitor.Service) *Handler {
	return &Handler{
		monitor:   m,
		validator: event.NewValidator(),
		startTime: time.Now(),
	}
}

// WithTrustProxy controls whether client IPs are taken from proxy headers.
func (h *Handler) WithTrustProxy(trust bool) *Handler {
	h.trustProxy = trust
	return h
}

// Register attaches all routes to the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/security/metrics", h.HandleMetrics)
	mux.HandleFunc("GET /v1/security/alerts", h.HandleAlerts)
	mux.HandleFunc("POST /v1/security/alerts/{id}/resolve", h.HandleResolveAlert)
	mux.HandleFunc("POST /v1/security/check-threats", h.HandleCheckThreats)
	mux.HandleFunc("POST /v1/security/log-event", h.HandleLogEvent)
	mux.HandleFunc("GET /health", h.HandleHealth)
}

// HandleMetrics handles GET /v1/security/metrics?hours=N.
func (h *Handler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if raw := r.URL.Query().Get("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeJSONError(w, http.StatusBadRequest, "INVALID_PERIOD",
				"hours must be a positive integer", "")
			return
		}
		hours = parsed
	}

	summary := h.monitor.GetMetrics(time.Duration(hours) * time.Hour)
	writeJSON(w, http.StatusOK, envelope{
		Success:     true,
		Data:        summary,
		GeneratedAt: time.Now().UTC(),
	})
}

// alertsData is the payload for the alert feed, including the derived
// counts the dashboard displays.
type alertsData struct {
	Alerts        []alert.Alert `json:"alerts"`
	Count         int           `json:"count"`
	CriticalCount int           `json:"critical_count"`
	HighCount     int           `json:"high_count"`
}

// HandleAlerts handles GET /v1/security/alerts.
func (h *Handler) HandleAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := h.monitor.GetActiveAlerts()

	data := alertsData{
		Alerts: alerts,
		Count:  len(alerts),
	}
	for _, a := range alerts {
		switch a.Severity {
		case alert.SeverityCritical:
			data.CriticalCount++
		case alert.SeverityHigh:
			data.HighCount++
		}
	}

	writeJSON(w, http.StatusOK, envelope{
		Success:     true,
		Data:        data,
		GeneratedAt: time.Now().UTC(),
	})
}

// HandleResolveAlert handles POST /v1/security/alerts/{id}/resolve.
func (h *Handler) HandleResolveAlert(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_ID", "alert id must be a UUID", "")
		return
	}

	if !h.monitor.ResolveAlert(id) {
		writeJSONError(w, http.StatusNotFound, "NOT_FOUND", "no active alert with that id", "")
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Success:     true,
		Message:     "Alert resolved",
		GeneratedAt: time.Now().UTC(),
	})
}

// HandleCheckThreats handles POST /v1/security/check-threats.
func (h *Handler) HandleCheckThreats(w http.ResponseWriter, r *http.Request) {
	h.monitor.RunThreatSweep()

	writeJSON(w, http.StatusOK, envelope{
		Success:     true,
		Message:     "Threat detection completed",
		GeneratedAt: time.Now().UTC(),
	})
}

// logEventRequest is the body for POST /v1/security/log-event. The
// client IP is taken from the connection, not the body.
type logEventRequest struct {
	EventType      string         `json:"event_type"`
	UserID         string         `json:"user_id,omitempty"`
	AdditionalData map[string]any `json:"additional_data,omitempty"`
}

// HandleLogEvent handles POST /v1/security/log-event.
func (h *Handler) HandleLogEvent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxLogEventPayload)

	var req logEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON", err.Error())
		return
	}

	in := &event.Input{
		Type:      req.EventType,
		UserID:    req.UserID,
		IPAddress: middleware.ClientIP(r, h.trustProxy),
		Data:      req.AdditionalData,
	}
	if err := h.validator.Validate(in); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_EVENT", "event failed validation", err.Error())
		return
	}

	h.monitor.LogSecurityEvent(in.Type, in.UserID, in.IPAddress, in.Data)

	writeJSON(w, http.StatusOK, envelope{
		Success:     true,
		Message:     "Security event logged",
		GeneratedAt: time.Now().UTC(),
	})
}

// healthResponse reports liveness and engine counters.
type healthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int    `json:"uptime_seconds"`
	EventsCurrent int    `json:"events_current"`
	EventsTotal   uint64 `json:"events_total"`
	ActiveAlerts  int    `json:"active_alerts"`
}

// HandleHealth handles GET /health.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	stats := h.monitor.StoreStats()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		UptimeSeconds: int(time.Since(h.startTime).Seconds()),
		EventsCurrent: stats.Current,
		EventsTotal:   stats.Appended,
		ActiveAlerts:  len(h.monitor.GetActiveAlerts()),
	})
}

// writeJSON writes a JSON response with proper error handling.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

// writeJSONError writes a structured JSON error response.
func writeJSONError(w http.ResponseWriter, status int, code, message, details string) {
	writeJSON(w, status, APIError{Code: code, Message: message, Details: details})
}
