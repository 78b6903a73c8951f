// Ember is a streaming chat-completion proxy for local LLM inference
// engines.
//
// It sits between chat clients and an Ollama-compatible engine,
// providing:
//   - Server-sent-event token streaming
//   - Content-addressed response caching with TTL freshness
//   - Durable session transcripts
//   - Per-identity sliding-window admission control
//   - Operational counters and Prometheus metrics
//
// Usage:
//
//	# Start the proxy with default configuration
//	ember run
//
//	# Start with a custom configuration file
//	ember run --config /path/to/config.yaml
//
//	# Show version information
//	ember version
package main

func main() {
	Execute()
}
