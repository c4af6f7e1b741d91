// Package api provides the HTTP client the TUI uses to talk to the
// sentinel service.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client handles API communication with the sentinel backend.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new API client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Alert mirrors the service's alert JSON.
type Alert struct {
	ID        string         `json:"id"`
	Type      string         `json:"alert_type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	ExpiresAt time.Time      `json:"expires_at"`
	Evidence  map[string]any `json:"evidence,omitempty"`
	Resolved  bool           `json:"resolved"`
}

// AlertsData is the alert feed payload.
type AlertsData struct {
	Alerts        []Alert `json:"alerts"`
	Count         int     `json:"count"`
	CriticalCount int     `json:"critical_count"`
	HighCount     int     `json:"high_count"`
}

// IPCount pairs an IP address with its event count.
type IPCount struct {
	IPAddress string `json:"ip_address"`
	Count     int    `json:"count"`
}

// Metrics mirrors the service's metrics summary JSON.
type Metrics struct {
	TotalEvents          int            `json:"total_events"`
	FailedAuthAttempts   int            `json:"failed_auth_attempts"`
	RateLimitViolations  int            `json:"rate_limit_violations"`
	SuspiciousActivities int            `json:"suspicious_activities"`
	UniqueIPAddresses    int            `json:"unique_ip_addresses"`
	UniqueUsers          int            `json:"unique_users"`
	TopIPAddresses       []IPCount      `json:"top_ip_addresses"`
	EventsByType         map[string]int `json:"events_by_type"`
}

// Health is the health check response.
type Health struct {
	Status        string `json:"status"`
	UptimeSeconds int    `json:"uptime_seconds"`
	EventsCurrent int    `json:"events_current"`
	EventsTotal   uint64 `json:"events_total"`
	ActiveAlerts  int    `json:"active_alerts"`
}

// envelope is the service's response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
}

// GetAlerts fetches the active alert feed.
func (c *Client) GetAlerts() (*AlertsData, error) {
	var data AlertsData
	if err := c.getEnveloped("/v1/security/alerts", &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetMetrics fetches the metrics rollup for the last hours.
func (c *Client) GetMetrics(hours int) (*Metrics, error) {
	var data Metrics
	path := fmt.Sprintf("/v1/security/metrics?hours=%d", hours)
	if err := c.getEnveloped(path, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetHealth fetches health status.
func (c *Client) GetHealth() (*Health, error) {
	resp, err := c.do(http.MethodGet, "/health")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var health Health
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &health, nil
}

// RunSweep triggers an on-demand threat sweep.
func (c *Client) RunSweep() error {
	resp, err := c.do(http.MethodPost, "/v1/security/check-threats")
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sweep failed: %s", resp.Status)
	}
	return nil
}

func (c *Client) getEnveloped(path string, out any) error {
	resp, err := c.do(http.MethodGet, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !env.Success {
		return fmt.Errorf("request failed: %s", env.Message)
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	return nil
}

func (c *Client) do(method, path string) (*http.Response, error) {
	req, err := http.NewRequest(method, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connection failed: %w", err)
	}
	return resp, nil
}
