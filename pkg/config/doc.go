// Package config provides configuration loading for the Ember proxy.
//
// Configuration is read from a YAML file, overlaid with EMBER_* environment
// variables, and validated before use. A file watcher supports hot reload
// of runtime tunables (cache TTL, rate limits, log level) without restart.
package config
