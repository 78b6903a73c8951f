package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("Expected default listen address, got %s", cfg.Server.ListenAddress)
	}
	if cfg.Engine.BaseURL != DefaultEngineBaseURL {
		t.Errorf("Expected default engine URL, got %s", cfg.Engine.BaseURL)
	}
	if cfg.Cache.TTL != DefaultCacheTTL {
		t.Errorf("Expected default cache TTL, got %v", cfg.Cache.TTL)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Expected metrics enabled by default")
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected default config to validate, got %v", err)
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_address: ":9090"
engine:
  model: mistral
cache:
  ttl: 30m
limits:
  requests_per_window: 10
  window: 30s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.ListenAddress != ":9090" {
		t.Errorf("Expected :9090, got %s", cfg.Server.ListenAddress)
	}
	if cfg.Engine.Model != "mistral" {
		t.Errorf("Expected mistral, got %s", cfg.Engine.Model)
	}
	if cfg.Cache.TTL != 30*time.Minute {
		t.Errorf("Expected 30m TTL, got %v", cfg.Cache.TTL)
	}
	if cfg.Limits.RequestsPerWindow != 10 || cfg.Limits.Window != 30*time.Second {
		t.Errorf("Unexpected limits: %+v", cfg.Limits)
	}

	// Unset fields keep their defaults.
	if cfg.Engine.BaseURL != DefaultEngineBaseURL {
		t.Errorf("Expected default engine URL, got %s", cfg.Engine.BaseURL)
	}
	if cfg.Logging.Level != DefaultLogLevel {
		t.Errorf("Expected default log level, got %s", cfg.Logging.Level)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
engine:
  model: from-file
`)

	t.Setenv("EMBER_ENGINE_MODEL", "from-env")
	t.Setenv("EMBER_CACHE_TTL", "2h")
	t.Setenv("EMBER_LIMITS_REQUESTS_PER_WINDOW", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Engine.Model != "from-env" {
		t.Errorf("Expected env to win, got %s", cfg.Engine.Model)
	}
	if cfg.Cache.TTL != 2*time.Hour {
		t.Errorf("Expected 2h TTL from env, got %v", cfg.Cache.TTL)
	}
	if cfg.Limits.RequestsPerWindow != 7 {
		t.Errorf("Expected 7 from env, got %d", cfg.Limits.RequestsPerWindow)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadOrDefault_MissingFileFallsBack(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault failed: %v", err)
	}
	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("Expected defaults, got %s", cfg.Server.ListenAddress)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map")
	if _, err := Load(path); err == nil {
		t.Error("Expected parse error for malformed YAML")
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Server.ListenAddress = ""
	cfg.Engine.BaseURL = "not a url"
	cfg.Store.Backend = "cassandra"
	cfg.Logging.Level = "loud"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation failure")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %T", err)
	}
	if len(verr.Errors) != 4 {
		t.Errorf("Expected 4 field errors, got %d: %v", len(verr.Errors), verr)
	}

	fields := make(map[string]bool)
	for _, fe := range verr.Errors {
		fields[fe.Field] = true
	}
	for _, field := range []string{"server.listen_address", "engine.base_url", "store.backend", "logging.level"} {
		if !fields[field] {
			t.Errorf("Expected error for field %s", field)
		}
	}
}

func TestValidate_RejectsNegativeValues(t *testing.T) {
	cfg := Default()
	cfg.Cache.TTL = -time.Hour
	cfg.Limits.RequestsPerWindow = -1
	cfg.Limits.Window = 0

	if err := Validate(cfg); err == nil {
		t.Error("Expected validation failure for negative values")
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, `
cache:
  ttl: 1h
`)

	watcher, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer watcher.Stop()

	reloaded := make(chan *Config, 1)
	go func() {
		_ = watcher.Watch(t.Context(), func(cfg *Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		})
	}()

	// Give the watcher time to register before the write.
	time.Sleep(200 * time.Millisecond)

	if err := os.WriteFile(path, []byte("cache:\n  ttl: 5m\n"), 0o644); err != nil {
		t.Fatalf("Failed to rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Cache.TTL != 5*time.Minute {
			t.Errorf("Expected reloaded TTL 5m, got %v", cfg.Cache.TTL)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for reload")
	}
}

func TestWatcher_IgnoresInvalidReload(t *testing.T) {
	path := writeConfig(t, `
cache:
  ttl: 1h
`)

	watcher, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer watcher.Stop()

	reloaded := make(chan *Config, 1)
	go func() {
		_ = watcher.Watch(t.Context(), func(cfg *Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		})
	}()

	time.Sleep(200 * time.Millisecond)

	// A broken rewrite must not invoke the callback.
	if err := os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0o644); err != nil {
		t.Fatalf("Failed to rewrite config: %v", err)
	}

	select {
	case <-reloaded:
		t.Error("Expected invalid config to be rejected, not applied")
	case <-time.After(1500 * time.Millisecond):
	}
}
