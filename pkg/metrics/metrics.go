// Package metrics implements Ember's process-wide counters.
//
// Counters are kept twice: as atomic integers backing the JSON admin
// snapshot (reset on restart, monotonic within a process lifetime), and as
// Prometheus counters exposed on /metrics for scraping. Counters never
// influence control flow.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"emberhq/ember/pkg/config"
)

// Metrics holds every counter the proxy components update.
type Metrics struct {
	registry *prometheus.Registry

	requests           atomic.Int64
	cacheHits          atomic.Int64
	cacheMisses        atomic.Int64
	tokensStreamed     atomic.Int64
	errors             atomic.Int64
	rateLimited        atomic.Int64
	malformedFragments atomic.Int64

	requestsTotal           prometheus.Counter
	cacheHitsTotal          prometheus.Counter
	cacheMissesTotal        prometheus.Counter
	tokensStreamedTotal     prometheus.Counter
	errorsTotal             prometheus.Counter
	rateLimitedTotal        prometheus.Counter
	malformedFragmentsTotal prometheus.Counter
}

// Snapshot is a point-in-time copy of the counters, served as JSON by the
// admin endpoint.
type Snapshot struct {
	Requests           int64 `json:"requests"`
	CacheHits          int64 `json:"cacheHits"`
	CacheMisses        int64 `json:"cacheMisses"`
	TokensStreamed     int64 `json:"tokensStreamed"`
	Errors             int64 `json:"errors"`
	RateLimited        int64 `json:"rateLimited"`
	MalformedFragments int64 `json:"malformedFragments"`
}

// New creates a Metrics instance and registers its Prometheus counters
// with a fresh registry.
func New(cfg config.MetricsConfig) *Metrics {
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "ember"
	}

	registry := prometheus.NewRegistry()

	counter := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		})
		registry.MustRegister(c)
		return c
	}

	return &Metrics{
		registry:                registry,
		requestsTotal:           counter("requests_total", "Total chat requests accepted past admission control"),
		cacheHitsTotal:          counter("cache_hits_total", "Total chat requests served from the response cache"),
		cacheMissesTotal:        counter("cache_misses_total", "Total chat requests forwarded to the inference engine"),
		tokensStreamedTotal:     counter("tokens_streamed_total", "Total tokens streamed from the engine (miss path)"),
		errorsTotal:             counter("errors_total", "Total request failures, streaming and pre-stream"),
		rateLimitedTotal:        counter("rate_limited_total", "Total requests rejected by admission control"),
		malformedFragmentsTotal: counter("engine_malformed_fragments_total", "Total engine stream fragments skipped as unparseable"),
	}
}

// IncRequests records an accepted request.
func (m *Metrics) IncRequests() {
	m.requests.Add(1)
	m.requestsTotal.Inc()
}

// IncCacheHits records a cache hit.
func (m *Metrics) IncCacheHits() {
	m.cacheHits.Add(1)
	m.cacheHitsTotal.Inc()
}

// IncCacheMisses records a cache miss.
func (m *Metrics) IncCacheMisses() {
	m.cacheMisses.Add(1)
	m.cacheMissesTotal.Inc()
}

// AddTokensStreamed records tokens streamed from the engine.
func (m *Metrics) AddTokensStreamed(n int64) {
	m.tokensStreamed.Add(n)
	m.tokensStreamedTotal.Add(float64(n))
}

// IncErrors records a request failure.
func (m *Metrics) IncErrors() {
	m.errors.Add(1)
	m.errorsTotal.Inc()
}

// IncRateLimited records an admission rejection.
func (m *Metrics) IncRateLimited() {
	m.rateLimited.Add(1)
	m.rateLimitedTotal.Inc()
}

// IncMalformedFragments records a skipped engine stream fragment.
func (m *Metrics) IncMalformedFragments() {
	m.malformedFragments.Add(1)
	m.malformedFragmentsTotal.Inc()
}

// Snapshot returns a point-in-time copy of all counters.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Requests:           m.requests.Load(),
		CacheHits:          m.cacheHits.Load(),
		CacheMisses:        m.cacheMisses.Load(),
		TokensStreamed:     m.tokensStreamed.Load(),
		Errors:             m.errors.Load(),
		RateLimited:        m.rateLimited.Load(),
		MalformedFragments: m.malformedFragments.Load(),
	}
}
