package ratelimit

import (
	"sync"
	"time"
)

// SlidingWindow is a bucketized counter over a rolling time window.
//
// Events land in the bucket for their timestamp; buckets older than the
// window are pruned on every operation, so the sum always reflects the
// trailing window without the reset spike of a fixed window.
type SlidingWindow struct {
	window     time.Duration // window duration
	bucketSize time.Duration // granularity of each bucket
	buckets    []bucket
	head       int
	mu         sync.Mutex
}

// bucket is a single time-stamped counter.
type bucket struct {
	timestamp time.Time
	value     int64
}

// NewSlidingWindow creates a sliding window counter. The number of buckets
// is window/bucketSize; smaller buckets give finer accuracy at the cost of
// memory.
func NewSlidingWindow(window, bucketSize time.Duration) *SlidingWindow {
	numBuckets := int(window / bucketSize)
	if numBuckets == 0 {
		numBuckets = 1
	}

	return &SlidingWindow{
		window:     window,
		bucketSize: bucketSize,
		buckets:    make([]bucket, numBuckets),
	}
}

// Add increments the counter by value in the current time bucket.
func (sw *SlidingWindow) Add(value int64) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	sw.pruneLocked(now)
	sw.findOrCreateBucketLocked(now).value += value
}

// Sum returns the total count across the window.
func (sw *SlidingWindow) Sum() int64 {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.pruneLocked(time.Now())

	var sum int64
	for i := range sw.buckets {
		if !sw.buckets[i].timestamp.IsZero() {
			sum += sw.buckets[i].value
		}
	}
	return sum
}

// Oldest returns the timestamp of the oldest live bucket, or the zero time
// when the window is empty. Used to compute retry-after hints.
func (sw *SlidingWindow) Oldest() time.Time {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.pruneLocked(time.Now())

	var oldest time.Time
	for i := range sw.buckets {
		ts := sw.buckets[i].timestamp
		if ts.IsZero() {
			continue
		}
		if oldest.IsZero() || ts.Before(oldest) {
			oldest = ts
		}
	}
	return oldest
}

// Reset clears all buckets.
func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	for i := range sw.buckets {
		sw.buckets[i] = bucket{}
	}
	sw.head = 0
}

// pruneLocked clears buckets older than the window. Caller holds the lock.
func (sw *SlidingWindow) pruneLocked(now time.Time) {
	cutoff := now.Add(-sw.window)
	for i := range sw.buckets {
		if !sw.buckets[i].timestamp.IsZero() && sw.buckets[i].timestamp.Before(cutoff) {
			sw.buckets[i] = bucket{}
		}
	}
}

// findOrCreateBucketLocked returns the bucket for now, reusing an empty
// slot or evicting the oldest one. Caller holds the lock.
func (sw *SlidingWindow) findOrCreateBucketLocked(now time.Time) *bucket {
	bucketTime := now.Truncate(sw.bucketSize)

	if sw.buckets[sw.head].timestamp.Equal(bucketTime) {
		return &sw.buckets[sw.head]
	}

	for i := range sw.buckets {
		if sw.buckets[i].timestamp.Equal(bucketTime) {
			return &sw.buckets[i]
		}
	}

	targetIdx := -1
	for i := range sw.buckets {
		if sw.buckets[i].timestamp.IsZero() {
			targetIdx = i
			break
		}
	}

	if targetIdx == -1 {
		oldestIdx := 0
		oldestTime := sw.buckets[0].timestamp
		for i := 1; i < len(sw.buckets); i++ {
			if sw.buckets[i].timestamp.Before(oldestTime) {
				oldestIdx = i
				oldestTime = sw.buckets[i].timestamp
			}
		}
		targetIdx = oldestIdx
	}

	sw.buckets[targetIdx] = bucket{timestamp: bucketTime}
	sw.head = targetIdx

	return &sw.buckets[targetIdx]
}
