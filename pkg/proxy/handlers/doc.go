// Package handlers contains the HTTP handlers for Ember's client-facing
// API: the streaming chat-completion pipeline, session CRUD, cache admin,
// health probes, and the metrics snapshot.
package handlers
