// Package proxy contains the client-facing HTTP surface: request parsing,
// JSON and server-sent-event response writing, and the handlers and
// middleware in its subpackages.
package proxy
