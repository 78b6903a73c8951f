package config

import "time"

// Config is the root configuration for the Ember proxy.
// It is loaded from a YAML file, overlaid with EMBER_* environment
// variables, and validated before the server starts.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Engine    EngineConfig    `yaml:"engine"`
	Store     StoreConfig     `yaml:"store"`
	Cache     CacheConfig     `yaml:"cache"`
	Limits    LimitsConfig    `yaml:"limits"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Retention RetentionConfig `yaml:"retention"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// ListenAddress is the address the proxy listens on (e.g., ":8080").
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout bounds reading the request headers and body.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// IdleTimeout bounds keep-alive connections between requests.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown drain time.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// EngineConfig contains settings for the inference engine backend.
type EngineConfig struct {
	// BaseURL is the engine API base URL (e.g., "http://127.0.0.1:11434").
	BaseURL string `yaml:"base_url"`

	// Model is the model identifier sent with every generation request.
	Model string `yaml:"model"`

	// ConnectTimeout bounds dialing the engine. Generation itself is
	// never timed out by the proxy; long generations must survive.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// StoreConfig contains durable store settings.
type StoreConfig struct {
	// Backend selects the storage backend ("sqlite" or "memory").
	Backend string `yaml:"backend"`

	// Driver selects the SQLite driver: "sqlite3" (cgo, mattn) or
	// "sqlite" (pure Go, modernc). Only used when Backend is "sqlite".
	Driver string `yaml:"driver"`

	// DataDir is the directory holding the database file.
	DataDir string `yaml:"data_dir"`

	// BusyTimeout is how long SQLite waits on a locked database.
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// CacheConfig contains response cache settings.
type CacheConfig struct {
	// TTL is how long a cache entry is considered fresh. Stale entries
	// are treated as absent; they are not actively deleted.
	TTL time.Duration `yaml:"ttl"`
}

// LimitsConfig contains admission control settings.
type LimitsConfig struct {
	// RequestsPerWindow is the per-identity request quota.
	RequestsPerWindow int `yaml:"requests_per_window"`

	// Window is the rolling window duration the quota applies to.
	Window time.Duration `yaml:"window"`
}

// LoggingConfig contains structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the output format ("json" or "text").
	Format string `yaml:"format"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled toggles metric collection and the /metrics endpoint.
	Enabled bool `yaml:"enabled"`

	// Namespace is the Prometheus metric namespace prefix.
	Namespace string `yaml:"namespace"`
}

// RetentionConfig contains settings for the optional cache retention
// pruner. Pruning is disabled unless PruneSchedule is set; the cache's
// lazy-expiration semantics do not depend on it.
type RetentionConfig struct {
	// PruneSchedule is a cron expression (e.g., "0 3 * * *").
	// Empty disables scheduled pruning.
	PruneSchedule string `yaml:"prune_schedule"`

	// StaleMultiple prunes entries older than StaleMultiple * cache TTL.
	// Minimum effective value is 1.
	StaleMultiple int `yaml:"stale_multiple"`
}
