// Package config loads service configuration from a YAML file and
// NOTEGUARD_* environment variables, with env taking precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"noteguard/internal/models"
)

// Load loads configuration from file and environment variables.
func Load(configPath string) (*models.Config, error) {
	config := models.NewDefaultConfig()

	if configPath != "" {
		if err := loadFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	loadFromEnvironment(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(config *models.Config, filePath string) error {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", filePath)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

// loadFromEnvironment overrides configuration from environment variables.
func loadFromEnvironment(config *models.Config) {
	// Server configuration
	if port := os.Getenv("NOTEGUARD_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if host := os.Getenv("NOTEGUARD_HOST"); host != "" {
		config.Server.Host = host
	}

	if upstream := os.Getenv("NOTEGUARD_UPSTREAM_URL"); upstream != "" {
		config.Server.UpstreamURL = upstream
	}

	if timeout := os.Getenv("NOTEGUARD_READ_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.ReadTimeout = d
		}
	}

	if timeout := os.Getenv("NOTEGUARD_WRITE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.WriteTimeout = d
		}
	}

	if timeout := os.Getenv("NOTEGUARD_IDLE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.IdleTimeout = d
		}
	}

	// Rate limit configuration
	if enabled := os.Getenv("NOTEGUARD_LIMITS_ENABLED"); enabled != "" {
		config.Limits.Enabled = strings.ToLower(enabled) == "true"
	}

	if interval := os.Getenv("NOTEGUARD_LIMITS_SWEEP_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			config.Limits.SweepInterval = d
		}
	}

	overridePolicy("NOTEGUARD_LIMITS_AI", &config.Limits.AIGeneration)
	overridePolicy("NOTEGUARD_LIMITS_NOTES", &config.Limits.Notes)
	overridePolicy("NOTEGUARD_LIMITS_API", &config.Limits.GeneralAPI)
	overridePolicy("NOTEGUARD_LIMITS_AUTH", &config.Limits.Auth)

	// Webhook configuration. The secret is env-only by convention so it
	// stays out of config files checked into version control.
	if secret := os.Getenv("NOTEGUARD_WEBHOOK_SECRET"); secret != "" {
		config.Webhook.Secret = secret
	}

	if tolerance := os.Getenv("NOTEGUARD_WEBHOOK_TOLERANCE"); tolerance != "" {
		if d, err := time.ParseDuration(tolerance); err == nil {
			config.Webhook.Tolerance = d
		}
	}

	if minVersion := os.Getenv("NOTEGUARD_WEBHOOK_MIN_API_VERSION"); minVersion != "" {
		config.Webhook.MinAPIVersion = minVersion
	}

	// Storage configuration
	if storageType := os.Getenv("NOTEGUARD_STORAGE_TYPE"); storageType != "" {
		config.Storage.Type = storageType
	}

	if dsn := os.Getenv("NOTEGUARD_DATABASE_DSN"); dsn != "" {
		config.Storage.Database.DSN = dsn
	}

	if maxOpen := os.Getenv("NOTEGUARD_DATABASE_MAX_OPEN_CONNS"); maxOpen != "" {
		if conns, err := strconv.Atoi(maxOpen); err == nil {
			config.Storage.Database.MaxOpenConns = conns
		}
	}

	// Logging configuration
	if level := os.Getenv("NOTEGUARD_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if format := os.Getenv("NOTEGUARD_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}

	if output := os.Getenv("NOTEGUARD_LOG_OUTPUT"); output != "" {
		config.Logging.Output = output
	}

	if filePath := os.Getenv("NOTEGUARD_LOG_FILE_PATH"); filePath != "" {
		config.Logging.FilePath = filePath
	}

	// Metrics configuration
	if metrics := os.Getenv("NOTEGUARD_METRICS_ENABLED"); metrics != "" {
		config.Metrics.Enabled = strings.ToLower(metrics) == "true"
	}

	if path := os.Getenv("NOTEGUARD_METRICS_PATH"); path != "" {
		config.Metrics.Path = path
	}

	if port := os.Getenv("NOTEGUARD_METRICS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Metrics.Port = p
		}
	}

	// Observability configuration
	if name := os.Getenv("NOTEGUARD_SERVICE_NAME"); name != "" {
		config.Observability.ServiceName = name
	}

	if tracing := os.Getenv("NOTEGUARD_TRACING_ENABLED"); tracing != "" {
		config.Observability.Tracing.Enabled = strings.ToLower(tracing) == "true"
	}

	if exporter := os.Getenv("NOTEGUARD_TRACING_EXPORTER"); exporter != "" {
		config.Observability.Tracing.Exporter = exporter
	}

	if endpoint := os.Getenv("NOTEGUARD_TRACING_OTLP_ENDPOINT"); endpoint != "" {
		config.Observability.Tracing.OTLPEndpoint = endpoint
	}
}

// overridePolicy applies <prefix>_WINDOW and <prefix>_MAX_REQUESTS
// environment overrides to one policy.
func overridePolicy(prefix string, policy *models.PolicyConfig) {
	if window := os.Getenv(prefix + "_WINDOW"); window != "" {
		if d, err := time.ParseDuration(window); err == nil {
			policy.Window = d
		}
	}
	if maxReq := os.Getenv(prefix + "_MAX_REQUESTS"); maxReq != "" {
		if n, err := strconv.Atoi(maxReq); err == nil {
			policy.MaxRequests = n
		}
	}
}

// SaveExample writes an example configuration file with default values.
func SaveExample(filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	config := models.NewDefaultConfig()
	config.Webhook.Secret = "whsec_your-webhook-secret-here"

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
