package config

import (
	"fmt"
	"net/url"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects all validation errors found in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration. All errors are collected
// and returned together as a ValidationError; nil means valid.
func Validate(cfg *Config) error {
	var errs []FieldError

	if cfg.Server.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}

	if cfg.Engine.BaseURL == "" {
		errs = append(errs, FieldError{
			Field:   "engine.base_url",
			Message: "engine base URL is required",
		})
	} else if u, err := url.Parse(cfg.Engine.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, FieldError{
			Field:   "engine.base_url",
			Message: fmt.Sprintf("invalid URL %q", cfg.Engine.BaseURL),
		})
	}

	if cfg.Engine.Model == "" {
		errs = append(errs, FieldError{
			Field:   "engine.model",
			Message: "model identifier is required",
		})
	}

	switch cfg.Store.Backend {
	case "sqlite", "memory":
	default:
		errs = append(errs, FieldError{
			Field:   "store.backend",
			Message: fmt.Sprintf("unknown backend %q (expected sqlite or memory)", cfg.Store.Backend),
		})
	}

	switch cfg.Store.Driver {
	case "sqlite3", "sqlite":
	default:
		errs = append(errs, FieldError{
			Field:   "store.driver",
			Message: fmt.Sprintf("unknown driver %q (expected sqlite3 or sqlite)", cfg.Store.Driver),
		})
	}

	if cfg.Cache.TTL < 0 {
		errs = append(errs, FieldError{
			Field:   "cache.ttl",
			Message: "TTL must not be negative",
		})
	}

	if cfg.Limits.RequestsPerWindow < 0 {
		errs = append(errs, FieldError{
			Field:   "limits.requests_per_window",
			Message: "requests per window must not be negative",
		})
	}
	if cfg.Limits.Window <= 0 {
		errs = append(errs, FieldError{
			Field:   "limits.window",
			Message: "window must be positive",
		})
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "logging.level",
			Message: fmt.Sprintf("unknown level %q", cfg.Logging.Level),
		})
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "logging.format",
			Message: fmt.Sprintf("unknown format %q", cfg.Logging.Format),
		})
	}

	if cfg.Retention.StaleMultiple < 1 {
		errs = append(errs, FieldError{
			Field:   "retention.stale_multiple",
			Message: "stale multiple must be at least 1",
		})
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}
