package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestLimiter_AdmitsUpToQuota(t *testing.T) {
	l := NewLimiter(5, time.Minute)

	for i := 0; i < 5; i++ {
		result := l.Allow("client-1")
		if !result.Allowed {
			t.Fatalf("Request %d: expected admission", i+1)
		}
		if want := int64(5 - i - 1); result.Remaining != want {
			t.Errorf("Request %d: expected %d remaining, got %d", i+1, want, result.Remaining)
		}
	}

	result := l.Allow("client-1")
	if result.Allowed {
		t.Error("Expected rejection past the quota")
	}
	if result.Remaining != 0 {
		t.Errorf("Expected 0 remaining, got %d", result.Remaining)
	}
	if result.RetryAfter <= 0 || result.RetryAfter > time.Minute {
		t.Errorf("Expected retry-after within the window, got %v", result.RetryAfter)
	}
}

func TestLimiter_IdentitiesAreIndependent(t *testing.T) {
	l := NewLimiter(1, time.Minute)

	if !l.Allow("client-1").Allowed {
		t.Fatal("Expected first client admitted")
	}
	if l.Allow("client-1").Allowed {
		t.Fatal("Expected first client rejected on second request")
	}
	if !l.Allow("client-2").Allowed {
		t.Error("Expected second client unaffected by first client's quota")
	}
}

func TestLimiter_WindowElapses(t *testing.T) {
	l := NewLimiter(2, time.Second)

	l.Allow("client-1")
	l.Allow("client-1")
	if l.Allow("client-1").Allowed {
		t.Fatal("Expected rejection at quota")
	}

	time.Sleep(1100 * time.Millisecond)

	if !l.Allow("client-1").Allowed {
		t.Error("Expected admission after the window elapsed")
	}
}

func TestLimiter_ZeroLimitDisables(t *testing.T) {
	l := NewLimiter(0, time.Minute)

	for i := 0; i < 100; i++ {
		if !l.Allow("client-1").Allowed {
			t.Fatal("Expected disabled limiter to admit everything")
		}
	}
}

func TestLimiter_SetPolicyRaisesQuota(t *testing.T) {
	l := NewLimiter(1, time.Minute)

	l.Allow("client-1")
	if l.Allow("client-1").Allowed {
		t.Fatal("Expected rejection at quota 1")
	}

	l.SetPolicy(3, time.Minute)

	// Usage carries over; one request is already counted.
	if !l.Allow("client-1").Allowed {
		t.Error("Expected admission after quota raise")
	}
	if !l.Allow("client-1").Allowed {
		t.Error("Expected admission up to the new quota")
	}
	if l.Allow("client-1").Allowed {
		t.Error("Expected rejection at the new quota")
	}
}

func TestLimiter_SetPolicyNewWindowResetsUsage(t *testing.T) {
	l := NewLimiter(1, time.Minute)

	l.Allow("client-1")
	l.SetPolicy(1, 30*time.Second)

	if !l.Allow("client-1").Allowed {
		t.Error("Expected window change to reset usage")
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	l := NewLimiter(50, time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("client-1").Allowed {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != 50 {
		t.Errorf("Expected exactly 50 admitted, got %d", admitted)
	}
}

func TestSlidingWindow_SumAndPrune(t *testing.T) {
	sw := NewSlidingWindow(200*time.Millisecond, 50*time.Millisecond)

	sw.Add(3)
	sw.Add(2)
	if got := sw.Sum(); got != 5 {
		t.Errorf("Expected sum 5, got %d", got)
	}

	time.Sleep(300 * time.Millisecond)

	if got := sw.Sum(); got != 0 {
		t.Errorf("Expected expired window to sum to 0, got %d", got)
	}
}

func TestSlidingWindow_Oldest(t *testing.T) {
	sw := NewSlidingWindow(time.Minute, time.Second)

	if !sw.Oldest().IsZero() {
		t.Error("Expected zero time for empty window")
	}

	before := time.Now()
	sw.Add(1)

	oldest := sw.Oldest()
	if oldest.IsZero() {
		t.Fatal("Expected a live bucket")
	}
	if oldest.After(before) && oldest.Sub(before) > time.Second {
		t.Errorf("Unexpected oldest bucket time %v", oldest)
	}
}

func TestSlidingWindow_Reset(t *testing.T) {
	sw := NewSlidingWindow(time.Minute, time.Second)

	sw.Add(10)
	sw.Reset()

	if got := sw.Sum(); got != 0 {
		t.Errorf("Expected 0 after reset, got %d", got)
	}
}

func TestSlidingWindow_ManyIdentitiesStress(t *testing.T) {
	l := NewLimiter(10, time.Minute)

	for i := 0; i < 200; i++ {
		identity := fmt.Sprintf("client-%d", i)
		if !l.Allow(identity).Allowed {
			t.Fatalf("Expected fresh identity %s admitted", identity)
		}
	}
}
