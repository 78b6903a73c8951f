package middleware

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"emberhq/ember/pkg/metrics"
	"emberhq/ember/pkg/proxy"
	"emberhq/ember/pkg/ratelimit"
)

// APIKeyHeader carries the caller-supplied rate-limit key.
const APIKeyHeader = "X-API-Key"

// RateLimit applies admission control before the wrapped handler runs.
// Identity is the caller-supplied API key (or "anonymous") combined with
// the caller's network address. A rejected request touches no cache,
// session, or inference state; the only side effect is the rejection
// counter.
func RateLimit(limiter *ratelimit.Limiter, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := identityFor(r)

			result := limiter.Allow(identity)
			if !result.Allowed {
				m.IncRateLimited()

				slog.WarnContext(r.Context(), "request rejected by admission control",
					"identity", identity,
					"request_id", GetRequestID(r.Context()),
				)

				w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
				w.Header().Set("X-RateLimit-Remaining", "0")
				if result.RetryAfter > 0 {
					w.Header().Set("Retry-After", fmt.Sprintf("%d", int(result.RetryAfter.Seconds())+1))
				}

				_ = proxy.WriteError(w, http.StatusTooManyRequests, "Rate limit exceeded", "")
				return
			}

			m.IncRequests()

			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))

			next.ServeHTTP(w, r)
		})
	}
}

// identityFor builds the rate-limit identity: caller key plus remote host.
func identityFor(r *http.Request) string {
	key := r.Header.Get(APIKeyHeader)
	if key == "" {
		key = "anonymous"
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	return key + "@" + host
}
