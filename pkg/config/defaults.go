package config

import "time"

// Default values applied to any field left zero after YAML parsing.
const (
	DefaultListenAddress   = ":8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultMaxHeaderBytes  = 1 << 20 // 1MB

	DefaultEngineBaseURL        = "http://127.0.0.1:11434"
	DefaultEngineModel          = "llama3"
	DefaultEngineConnectTimeout = 10 * time.Second

	DefaultStoreBackend     = "sqlite"
	DefaultStoreDriver      = "sqlite3"
	DefaultStoreDataDir     = "data"
	DefaultStoreBusyTimeout = 5 * time.Second

	DefaultCacheTTL = time.Hour

	DefaultRequestsPerWindow = 60
	DefaultLimitWindow       = time.Minute

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "ember"

	DefaultRetentionStaleMultiple = 4
)

// ApplyDefaults fills in default values for any unset configuration fields.
// It is called after YAML parsing and before validation.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	if cfg.Engine.BaseURL == "" {
		cfg.Engine.BaseURL = DefaultEngineBaseURL
	}
	if cfg.Engine.Model == "" {
		cfg.Engine.Model = DefaultEngineModel
	}
	if cfg.Engine.ConnectTimeout == 0 {
		cfg.Engine.ConnectTimeout = DefaultEngineConnectTimeout
	}

	if cfg.Store.Backend == "" {
		cfg.Store.Backend = DefaultStoreBackend
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = DefaultStoreDriver
	}
	if cfg.Store.DataDir == "" {
		cfg.Store.DataDir = DefaultStoreDataDir
	}
	if cfg.Store.BusyTimeout == 0 {
		cfg.Store.BusyTimeout = DefaultStoreBusyTimeout
	}

	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}

	if cfg.Limits.RequestsPerWindow == 0 {
		cfg.Limits.RequestsPerWindow = DefaultRequestsPerWindow
	}
	if cfg.Limits.Window == 0 {
		cfg.Limits.Window = DefaultLimitWindow
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	if cfg.Retention.StaleMultiple == 0 {
		cfg.Retention.StaleMultiple = DefaultRetentionStaleMultiple
	}
}

// Default returns a configuration with every field set to its default.
func Default() *Config {
	cfg := &Config{Metrics: MetricsConfig{Enabled: true}}
	ApplyDefaults(cfg)
	return cfg
}
