// Package config handles configuration loading for Adaplio Sentinel.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"adaplio-sentinel/internal/detect"
)

// Config holds the complete application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Detection detect.Config   `yaml:"detection"`
	Auth      AuthConfig      `yaml:"auth"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	HTTPPort     int           `yaml:"http_port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	TrustProxy   bool          `yaml:"trust_proxy"` // Trust X-Forwarded-For header
}

// MonitorConfig holds monitoring engine settings.
type MonitorConfig struct {
	Retention     time.Duration `yaml:"retention"`      // Event retention window
	SweepInterval time.Duration `yaml:"sweep_interval"` // How often the sweep heuristics run
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeyHeader string   `yaml:"api_key_header"`
	APIKeys      []string `yaml:"api_keys"`
	Enabled      bool     `yaml:"enabled"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAge         int      `yaml:"max_age"` // Preflight cache duration in seconds
}

// RateLimitConfig holds rate limiting settings.
type RateLimitConfig struct {
	Enabled       bool          `yaml:"enabled"`
	RequestsPerIP int           `yaml:"requests_per_ip"` // Max requests per IP per window
	WindowSize    time.Duration `yaml:"window_size"`     // Time window for rate limiting
	BurstSize     int           `yaml:"burst_size"`      // Allow burst above limit temporarily
	CleanupPeriod time.Duration `yaml:"cleanup_period"`  // How often to clean old entries
	ExemptPaths   []string      `yaml:"exempt_paths"`    // Paths exempt from rate limiting
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:     8090,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			TrustProxy:   false,
		},
		Monitor: MonitorConfig{
			Retention:     24 * time.Hour,
			SweepInterval: time.Minute,
		},
		Detection: detect.DefaultConfig(),
		Auth: AuthConfig{
			APIKeyHeader: "X-API-Key",
			Enabled:      false, // Disabled by default for development
		},
		CORS: CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-API-Key"},
			MaxAge:         86400,
		},
		RateLimit: RateLimitConfig{
			Enabled:       true,
			RequestsPerIP: 300,
			WindowSize:    time.Minute,
			BurstSize:     50,
			CleanupPeriod: 5 * time.Minute,
			ExemptPaths:   []string{"/health"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a file or returns defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := os.Getenv("SENTINEL_CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, use defaults
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if port := os.Getenv("SENTINEL_HTTP_PORT"); port != "" {
		fmt.Sscanf(port, "%d", &c.Server.HTTPPort)
	}

	if level := os.Getenv("SENTINEL_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}

	if apiKey := os.Getenv("SENTINEL_API_KEY"); apiKey != "" {
		c.Auth.APIKeys = append(c.Auth.APIKeys, apiKey)
		c.Auth.Enabled = true
	}

	if interval := os.Getenv("SENTINEL_SWEEP_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			c.Monitor.SweepInterval = d
		}
	}

	if enabled := os.Getenv("SENTINEL_RATELIMIT_ENABLED"); enabled == "false" {
		c.RateLimit.Enabled = false
	}

	if rps := os.Getenv("SENTINEL_RATELIMIT_RPS"); rps != "" {
		fmt.Sscanf(rps, "%d", &c.RateLimit.RequestsPerIP)
	}

	if origins := os.Getenv("SENTINEL_CORS_ORIGINS"); origins != "" {
		parts := make([]string, 0)
		for _, p := range strings.Split(origins, ",") {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		c.CORS.AllowedOrigins = parts
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.HTTPPort < 1 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.Server.HTTPPort)
	}

	if c.Monitor.Retention <= 0 {
		return fmt.Errorf("monitor.retention must be positive")
	}
	if c.Monitor.SweepInterval <= 0 {
		return fmt.Errorf("monitor.sweep_interval must be positive")
	}
	if c.Monitor.Retention < c.Detection.SweepWindow {
		return fmt.Errorf("monitor.retention %s is shorter than detection.sweep_window %s",
			c.Monitor.Retention, c.Detection.SweepWindow)
	}

	if c.Detection.SweepWindow <= 0 {
		return fmt.Errorf("detection.sweep_window must be positive")
	}
	if c.Detection.RapidWindow <= 0 || c.Detection.RapidWindow > c.Detection.SweepWindow {
		return fmt.Errorf("detection.rapid_window must be positive and within the sweep window")
	}
	if c.Detection.ImmediateWindow <= 0 {
		return fmt.Errorf("detection.immediate_window must be positive")
	}
	for name, threshold := range map[string]int{
		"brute_force_threshold":     c.Detection.BruteForceThreshold,
		"rapid_request_threshold":   c.Detection.RapidRequestThreshold,
		"account_sharing_threshold": c.Detection.AccountSharingThreshold,
		"privilege_threshold":       c.Detection.PrivilegeThreshold,
		"immediate_threshold":       c.Detection.ImmediateThreshold,
	} {
		if threshold < 1 {
			return fmt.Errorf("detection.%s must be at least 1", name)
		}
	}

	if c.Auth.Enabled && len(c.Auth.APIKeys) == 0 {
		return fmt.Errorf("auth enabled but no api_keys configured")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerIP < 1 {
			return fmt.Errorf("rate_limit.requests_per_ip must be at least 1")
		}
		if c.RateLimit.WindowSize <= 0 {
			return fmt.Errorf("rate_limit.window_size must be positive")
		}
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid logging.format: %q", c.Logging.Format)
	}

	return nil
}
