// Package store provides durable persistence for Ember's two collections:
// chat sessions (append-only transcripts) and cached completions.
//
// # Backends
//
//   - SQLite: embedded database for single-node deployments. Two drivers
//     are supported: mattn/go-sqlite3 (cgo, default) and modernc.org/sqlite
//     (pure Go, for CGO-less builds), selected via store.driver.
//   - Memory: map-backed store for tests and throwaway deployments.
//
// # Consistency
//
// Writes within a collection are serialized (per-collection mutex plus
// SQLite's single writer in WAL mode). Cross-key lost updates are accepted;
// the deployment model is a single process and the cache is last-writer-wins.
package store
