// Package main is the entry point for the sentinel monitoring service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"adaplio-sentinel/internal/api"
	"adaplio-sentinel/internal/config"
	"adaplio-sentinel/internal/middleware"
	"adaplio-sentinel/internal/monitor"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	slog.Info("configuration loaded",
		"http_port", cfg.Server.HTTPPort,
		"retention", cfg.Monitor.Retention,
		"sweep_interval", cfg.Monitor.SweepInterval,
		"auth_enabled", cfg.Auth.Enabled,
		"rate_limit_enabled", cfg.RateLimit.Enabled,
	)

	// Initialize the monitoring engine
	svc := monitor.New(monitor.Config{
		Retention:     cfg.Monitor.Retention,
		SweepInterval: cfg.Monitor.SweepInterval,
		Detection:     cfg.Detection,
	}, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc.Start(ctx)

	// Setup HTTP routes
	mux := http.NewServeMux()
	handler := api.NewHandler(svc).WithTrustProxy(cfg.Server.TrustProxy)
	handler.Register(mux)

	// Apply middleware. Auth runs innermost so rejected requests are
	// still rate limited and audited.
	wrapped := middleware.Chain(mux,
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.CORS),
		middleware.RateLimit(cfg.RateLimit, cfg.Server.TrustProxy, svc, logger),
		middleware.Audit(svc, cfg.Server.TrustProxy, []string{"/v1/"}),
		middleware.APIKey(cfg.Auth, cfg.Server.TrustProxy, svc),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      wrapped,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		slog.Info("starting sentinel server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	svc.Stop()

	stats := svc.StoreStats()
	slog.Info("shutdown complete",
		"events_current", stats.Current,
		"events_appended", stats.Appended,
		"events_evicted", stats.Evicted,
	)
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
