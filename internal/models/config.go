// Package models - service configuration and operational settings.
// This file defines the configuration tree for all service components:
// HTTP server, rate limit policies, webhook verification, event storage,
// logging, metrics, and tracing. Defaults work out of the box for local
// development; validation catches misconfigurations before startup.
package models

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypePostgres = "postgres"
	StorageTypeSQLite   = "sqlite"
)

// Config is the root configuration structure containing all service settings.
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`               // HTTP server configuration
	Limits        LimitsConfig        `yaml:"limits" json:"limits"`               // Rate limit policies per route class
	Webhook       WebhookConfig       `yaml:"webhook" json:"webhook"`             // Webhook signature verification
	Storage       StorageConfig       `yaml:"storage" json:"storage"`             // Webhook event intake storage
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`             // Structured logging
	Metrics       MetricsConfig       `yaml:"metrics" json:"metrics"`             // Prometheus metrics endpoint
	Observability ObservabilityConfig `yaml:"observability" json:"observability"` // Tracing and service identity
}

type ServerConfig struct {
	Port         int           `yaml:"port" json:"port"`
	Host         string        `yaml:"host" json:"host"`
	UpstreamURL  string        `yaml:"upstream_url" json:"upstream_url"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	TLSEnabled   bool          `yaml:"tls_enabled" json:"tls_enabled"`
	TLSCertFile  string        `yaml:"tls_cert_file" json:"tls_cert_file"`
	TLSKeyFile   string        `yaml:"tls_key_file" json:"tls_key_file"`
}

// PolicyConfig is one fixed-window rate limit policy: how long the window
// lasts and how many requests it admits.
type PolicyConfig struct {
	Window      time.Duration `yaml:"window" json:"window"`
	MaxRequests int           `yaml:"max_requests" json:"max_requests"`
}

// LimitsConfig holds the rate limit policy table, one policy per route
// class. AI generation is the strictest; authentication is always keyed by
// client address rather than account.
type LimitsConfig struct {
	Enabled       bool          `yaml:"enabled" json:"enabled"`
	SweepInterval time.Duration `yaml:"sweep_interval" json:"sweep_interval"`
	AIGeneration  PolicyConfig  `yaml:"ai_generation" json:"ai_generation"`
	Notes         PolicyConfig  `yaml:"notes" json:"notes"`
	GeneralAPI    PolicyConfig  `yaml:"general_api" json:"general_api"`
	Auth          PolicyConfig  `yaml:"auth" json:"auth"`
}

// WebhookConfig configures inbound webhook verification. Secret is the
// shared HMAC key; an empty secret causes every webhook to be rejected
// (fail closed) until configuration is fixed. MinAPIVersion, when set,
// is only used to warn about deliveries from older API versions.
type WebhookConfig struct {
	Secret        string        `yaml:"secret" json:"-"`
	Tolerance     time.Duration `yaml:"tolerance" json:"tolerance"`
	MinAPIVersion string        `yaml:"min_api_version" json:"min_api_version"`
}

type StorageConfig struct {
	Type     string         `yaml:"type" json:"type"`
	Database DatabaseConfig `yaml:"database" json:"database"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver" json:"driver"`
	DSN             string        `yaml:"dsn" json:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
}

type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Port    int    `yaml:"port" json:"port"`
}

type ObservabilityConfig struct {
	ServiceName string        `yaml:"service_name" json:"service_name"`
	Tracing     TracingConfig `yaml:"tracing" json:"tracing"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Exporter     string  `yaml:"exporter" json:"exporter"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate" json:"sample_rate"`
}

// NewDefaultConfig creates a configuration with production-ready defaults.
// The limit table ships the values the note-taking API launched with:
// AI generation 5/min, notes CRUD 50/min, general API 100/min, auth 10/min.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			TLSEnabled:   false,
		},
		Limits: LimitsConfig{
			Enabled:       true,
			SweepInterval: 5 * time.Minute,
			AIGeneration:  PolicyConfig{Window: time.Minute, MaxRequests: 5},
			Notes:         PolicyConfig{Window: time.Minute, MaxRequests: 50},
			GeneralAPI:    PolicyConfig{Window: time.Minute, MaxRequests: 100},
			Auth:          PolicyConfig{Window: time.Minute, MaxRequests: 10},
		},
		Webhook: WebhookConfig{
			Tolerance: 5 * time.Minute,
		},
		Storage: StorageConfig{
			Type: StorageTypeMemory,
			Database: DatabaseConfig{
				Driver:          "sqlite",
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
			Port:    9090,
		},
		Observability: ObservabilityConfig{
			ServiceName: "noteguard",
			Tracing: TracingConfig{
				Enabled:    false,
				Exporter:   "stdout",
				SampleRate: 1.0,
			},
		},
	}
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	if err := c.Limits.Validate(); err != nil {
		return fmt.Errorf("invalid limits config: %w", err)
	}

	if err := c.Webhook.Validate(); err != nil {
		return fmt.Errorf("invalid webhook config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("invalid storage config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("invalid metrics config: %w", err)
	}

	return nil
}

func (sc *ServerConfig) Validate() error {
	if sc.Port <= 0 || sc.Port > 65535 {
		return errors.New("server port must be between 1 and 65535")
	}

	if sc.TLSEnabled {
		if sc.TLSCertFile == "" || sc.TLSKeyFile == "" {
			return errors.New("TLS cert and key files are required when TLS is enabled")
		}
	}

	if sc.UpstreamURL != "" {
		u, err := url.Parse(sc.UpstreamURL)
		if err != nil {
			return fmt.Errorf("invalid upstream URL: %w", err)
		}
		if u.Scheme == "" || u.Host == "" {
			return errors.New("upstream URL must include scheme and host")
		}
	}

	return nil
}

func (lc *LimitsConfig) Validate() error {
	if !lc.Enabled {
		return nil
	}

	if lc.SweepInterval <= 0 {
		return errors.New("sweep interval must be positive")
	}

	for name, p := range map[string]PolicyConfig{
		"ai_generation": lc.AIGeneration,
		"notes":         lc.Notes,
		"general_api":   lc.GeneralAPI,
		"auth":          lc.Auth,
	} {
		if p.Window <= 0 {
			return fmt.Errorf("%s window must be positive", name)
		}
		if p.MaxRequests <= 0 {
			return fmt.Errorf("%s max_requests must be positive", name)
		}
	}

	return nil
}

func (wc *WebhookConfig) Validate() error {
	if wc.Tolerance <= 0 {
		return errors.New("webhook tolerance must be positive")
	}
	// An empty secret is a valid (if degraded) configuration: every webhook
	// is rejected until the secret is supplied.
	return nil
}

func (sc *StorageConfig) Validate() error {
	switch sc.Type {
	case StorageTypeMemory:
	case StorageTypePostgres, StorageTypeSQLite:
		if sc.Database.DSN == "" {
			return fmt.Errorf("database DSN is required for %s storage", sc.Type)
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", sc.Type)
	}
	return nil
}

func (lc *LoggingConfig) Validate() error {
	switch lc.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log level: %s", lc.Level)
	}

	switch lc.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unsupported log format: %s", lc.Format)
	}

	if lc.Output == "file" && lc.FilePath == "" {
		return errors.New("file path is required when log output is file")
	}

	return nil
}

func (mc *MetricsConfig) Validate() error {
	if !mc.Enabled {
		return nil
	}

	if mc.Path == "" {
		return errors.New("metrics path cannot be empty")
	}

	if mc.Port <= 0 || mc.Port > 65535 {
		return errors.New("metrics port must be between 1 and 65535")
	}

	return nil
}
