// Package ratelimit implements per-identity admission control on a
// sliding window counter.
package ratelimit

import (
	"sync"
	"time"
)

// idleTTL is how long an identity's window survives without traffic before
// it is dropped from the map.
const idleTTL = 10 * time.Minute

// CheckResult is the outcome of an admission check.
type CheckResult struct {
	// Allowed indicates whether the request may proceed.
	Allowed bool

	// Limit is the configured per-window quota.
	Limit int64

	// Remaining is how many requests remain in the current window.
	Remaining int64

	// RetryAfter suggests how long a rejected caller should wait.
	RetryAfter time.Duration
}

// Limiter admits at most N requests per identity per rolling window.
// Admission happens before any other component touches cache, session, or
// inference state, so a rejected request has no side effects beyond the
// rejection itself.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*identityWindow
	limit    int64
	window   time.Duration
	lastSeen time.Time
}

type identityWindow struct {
	window   *SlidingWindow
	lastSeen time.Time
}

// NewLimiter creates a limiter admitting requestsPerWindow requests per
// identity per rolling window.
func NewLimiter(requestsPerWindow int, window time.Duration) *Limiter {
	return &Limiter{
		windows: make(map[string]*identityWindow),
		limit:   int64(requestsPerWindow),
		window:  window,
	}
}

// Allow checks and records one request for the identity. A zero or
// negative limit disables admission control entirely.
func (l *Limiter) Allow(identity string) *CheckResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.limit <= 0 {
		return &CheckResult{Allowed: true, Limit: l.limit}
	}

	now := time.Now()
	l.sweepLocked(now)

	iw, ok := l.windows[identity]
	if !ok {
		iw = &identityWindow{window: l.newWindowLocked()}
		l.windows[identity] = iw
	}
	iw.lastSeen = now

	used := iw.window.Sum()
	if used >= l.limit {
		retryAfter := l.window
		if oldest := iw.window.Oldest(); !oldest.IsZero() {
			retryAfter = oldest.Add(l.window).Sub(now)
			if retryAfter < 0 {
				retryAfter = 0
			}
		}
		return &CheckResult{
			Allowed:    false,
			Limit:      l.limit,
			Remaining:  0,
			RetryAfter: retryAfter,
		}
	}

	iw.window.Add(1)
	return &CheckResult{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: l.limit - used - 1,
	}
}

// SetPolicy retunes the quota at runtime (config hot reload). Changing the
// window duration resets all identity windows; changing only the limit
// keeps current usage intact.
func (l *Limiter) SetPolicy(requestsPerWindow int, window time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.limit = int64(requestsPerWindow)
	if window != l.window && window > 0 {
		l.window = window
		l.windows = make(map[string]*identityWindow)
	}
}

// newWindowLocked builds a sliding window with roughly 60 buckets.
func (l *Limiter) newWindowLocked() *SlidingWindow {
	bucketSize := l.window / 60
	if bucketSize < time.Second {
		bucketSize = time.Second
	}
	if bucketSize > l.window {
		bucketSize = l.window
	}
	return NewSlidingWindow(l.window, bucketSize)
}

// sweepLocked drops identities idle longer than idleTTL. Runs at most once
// per idleTTL so hot paths stay cheap. Caller holds the lock.
func (l *Limiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSeen) < idleTTL {
		return
	}
	l.lastSeen = now

	for identity, iw := range l.windows {
		if now.Sub(iw.lastSeen) > idleTTL {
			delete(l.windows, identity)
		}
	}
}
