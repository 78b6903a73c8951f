package metrics

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"emberhq/ember/pkg/config"
)

func TestMetrics_SnapshotCounts(t *testing.T) {
	m := New(config.MetricsConfig{Enabled: true})

	m.IncRequests()
	m.IncRequests()
	m.IncCacheHits()
	m.IncCacheMisses()
	m.AddTokensStreamed(5)
	m.IncErrors()
	m.IncRateLimited()
	m.IncMalformedFragments()

	snap := m.Snapshot()
	if snap.Requests != 2 {
		t.Errorf("Expected 2 requests, got %d", snap.Requests)
	}
	if snap.CacheHits != 1 || snap.CacheMisses != 1 {
		t.Errorf("Unexpected cache counters: %+v", snap)
	}
	if snap.TokensStreamed != 5 {
		t.Errorf("Expected 5 tokens streamed, got %d", snap.TokensStreamed)
	}
	if snap.Errors != 1 || snap.RateLimited != 1 || snap.MalformedFragments != 1 {
		t.Errorf("Unexpected counters: %+v", snap)
	}
}

func TestMetrics_SnapshotJSONFieldNames(t *testing.T) {
	m := New(config.MetricsConfig{Enabled: true})
	m.IncRequests()

	data, err := json.Marshal(m.Snapshot())
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]int64
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	for _, field := range []string{
		"requests", "cacheHits", "cacheMisses", "tokensStreamed",
		"errors", "rateLimited", "malformedFragments",
	} {
		if _, ok := decoded[field]; !ok {
			t.Errorf("Expected JSON field %q", field)
		}
	}
	if decoded["requests"] != 1 {
		t.Errorf("Expected 1 request, got %d", decoded["requests"])
	}
}

func TestMetrics_ConcurrentUpdates(t *testing.T) {
	m := New(config.MetricsConfig{Enabled: true})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.IncRequests()
			m.AddTokensStreamed(2)
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	if snap.Requests != 100 {
		t.Errorf("Expected 100 requests, got %d", snap.Requests)
	}
	if snap.TokensStreamed != 200 {
		t.Errorf("Expected 200 tokens, got %d", snap.TokensStreamed)
	}
}

func TestMetrics_PrometheusExposition(t *testing.T) {
	m := New(config.MetricsConfig{Enabled: true, Namespace: "ember"})

	m.IncRequests()
	m.IncCacheHits()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	for _, metric := range []string{
		"ember_requests_total 1",
		"ember_cache_hits_total 1",
		"ember_cache_misses_total 0",
	} {
		if !strings.Contains(body, metric) {
			t.Errorf("Expected %q in exposition:\n%s", metric, body)
		}
	}
}

func TestMetrics_CustomNamespace(t *testing.T) {
	m := New(config.MetricsConfig{Enabled: true, Namespace: "proxy"})
	m.IncRequests()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if !strings.Contains(rec.Body.String(), "proxy_requests_total") {
		t.Error("Expected custom namespace prefix")
	}
}
