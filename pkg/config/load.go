package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a YAML file at the specified path,
// applies defaults, applies EMBER_* environment overrides, and validates
// the result. Environment variables always take precedence over the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault behaves like Load but falls back to the default
// configuration (plus environment overrides) when the file does not exist.
// This lets the proxy start with zero configuration.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		applyEnvOverrides(cfg)
		if err := Validate(cfg); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
		return cfg, nil
	}
	return Load(path)
}

// applyEnvOverrides applies environment variable overrides.
// Variables use the format EMBER_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Server.ListenAddress, "EMBER_SERVER_LISTEN_ADDRESS")
	setDuration(&cfg.Server.ReadTimeout, "EMBER_SERVER_READ_TIMEOUT")
	setDuration(&cfg.Server.IdleTimeout, "EMBER_SERVER_IDLE_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "EMBER_SERVER_SHUTDOWN_TIMEOUT")

	setString(&cfg.Engine.BaseURL, "EMBER_ENGINE_BASE_URL")
	setString(&cfg.Engine.Model, "EMBER_ENGINE_MODEL")
	setDuration(&cfg.Engine.ConnectTimeout, "EMBER_ENGINE_CONNECT_TIMEOUT")

	setString(&cfg.Store.Backend, "EMBER_STORE_BACKEND")
	setString(&cfg.Store.Driver, "EMBER_STORE_DRIVER")
	setString(&cfg.Store.DataDir, "EMBER_STORE_DATA_DIR")

	setDuration(&cfg.Cache.TTL, "EMBER_CACHE_TTL")

	setInt(&cfg.Limits.RequestsPerWindow, "EMBER_LIMITS_REQUESTS_PER_WINDOW")
	setDuration(&cfg.Limits.Window, "EMBER_LIMITS_WINDOW")

	setString(&cfg.Logging.Level, "EMBER_LOGGING_LEVEL")
	setString(&cfg.Logging.Format, "EMBER_LOGGING_FORMAT")

	if val := os.Getenv("EMBER_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Metrics.Enabled = b
		}
	}

	setString(&cfg.Retention.PruneSchedule, "EMBER_RETENTION_PRUNE_SCHEDULE")
}

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setDuration(dst *time.Duration, key string) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func setInt(dst *int, key string) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}
