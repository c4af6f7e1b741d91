// Package monitor wires the event store, metrics aggregator, threat
// detector and alert registry into the security monitoring engine. The
// engine is an explicitly constructed instance owned by the host
// process; there is no package-level state.
package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"adaplio-sentinel/internal/alert"
	"adaplio-sentinel/internal/detect"
	"adaplio-sentinel/internal/event"
	"adaplio-sentinel/internal/metrics"
	"adaplio-sentinel/internal/store"
)

// Config configures the monitoring engine.
type Config struct {
	Retention     time.Duration
	SweepInterval time.Duration
	Detection     detect.Config
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Retention:     store.DefaultRetention,
		SweepInterval: time.Minute,
		Detection:     detect.DefaultConfig(),
	}
}

// Service is the security monitoring engine. All state is in-memory
// and process-lifetime only.
type Service struct {
	cfg        Config
	store      *store.Store
	registry   *alert.Registry
	detector   *detect.Detector
	aggregator *metrics.Aggregator
	logger     *slog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a Service. A zero config falls back to defaults.
func New(cfg Config, logger *slog.Logger) *Service {
	if cfg.Retention <= 0 {
		cfg.Retention = store.DefaultRetention
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.Detection.SweepWindow <= 0 {
		cfg.Detection = detect.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := store.New(cfg.Retention)
	r := alert.NewRegistry()

	return &Service{
		cfg:        cfg,
		store:      s,
		registry:   r,
		detector:   detect.New(cfg.Detection, s, r, logger),
		aggregator: metrics.NewAggregator(s),
		logger:     logger,
		stopCh:     make(chan struct{}),
	}
}

// LogSecurityEvent records a security event and runs the immediate
// threat checks before returning. It never fails back to the caller: a
// payload that cannot be serialized is recorded without evidence, and
// the fault is logged for operator visibility.
func (s *Service) LogSecurityEvent(eventType, userID, ipAddress string, additionalData any) {
	ev := &event.Event{
		ID:        uuid.New(),
		Type:      eventType,
		UserID:    userID,
		IPAddress: ipAddress,
		Timestamp: time.Now().UTC(),
		Data:      serializePayload(additionalData, s.logger, eventType),
	}

	s.store.Append(ev)

	s.logger.Info("security event",
		"event_type", eventType,
		"ip_address", ipAddress,
		"user_id", userID,
		"event_id", ev.ID,
	)

	s.detector.InspectEvent(ev)
}

// serializePayload marshals the additional payload without HTML
// escaping, so the injection heuristic sees patterns like "<script"
// verbatim. A payload that cannot be marshaled yields an empty string.
func serializePayload(payload any, logger *slog.Logger, eventType string) string {
	if payload == nil {
		return ""
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		logger.Warn("dropping unserializable event payload",
			"event_type", eventType, "error", err)
		return ""
	}
	return strings.TrimRight(buf.String(), "\n")
}

// GetMetrics returns a rollup of the events in the last period.
func (s *Service) GetMetrics(period time.Duration) metrics.Summary {
	return s.aggregator.Summarize(period)
}

// GetActiveAlerts returns the active alerts ordered by severity
// descending, evicting expired ones first.
func (s *Service) GetActiveAlerts() []alert.Alert {
	return s.registry.ListActive()
}

// RunThreatSweep runs every sweep heuristic immediately.
func (s *Service) RunThreatSweep() {
	s.detector.Sweep()
}

// ResolveAlert marks an alert resolved. Resolution is advisory
// metadata for the consumer: detection never reads it, never clears
// it, and the alert still ages out on its original expiry.
func (s *Service) ResolveAlert(id uuid.UUID) bool {
	return s.registry.Resolve(id)
}

// StoreStats exposes event log counters for health reporting.
func (s *Service) StoreStats() store.Stats {
	return s.store.Stats()
}

// Start launches the periodic sweep loop.
func (s *Service) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.sweepLoop(ctx)

	s.logger.Info("security monitor started",
		"sweep_interval", s.cfg.SweepInterval,
		"retention", s.cfg.Retention,
	)
}

// Stop stops the sweep loop and waits for it to exit.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	s.logger.Info("security monitor stopped")
}

func (s *Service) sweepLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.detector.Sweep()
		}
	}
}
