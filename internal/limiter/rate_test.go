package limiter

import (
	"context"
	"testing"
	"time"
)

func TestAllowBoundsRequestsPerSecond(t *testing.T) {
	r := NewRateLimiter(2)

	if !r.Allow() {
		t.Fatal("first request should be allowed")
	}
	if !r.Allow() {
		t.Fatal("second request should be allowed")
	}
	if r.Allow() {
		t.Fatal("third request within the same second should be denied")
	}
}

func TestNewRateLimiterCoercesZero(t *testing.T) {
	r := NewRateLimiter(0)
	if !r.Allow() {
		t.Fatal("limiter with coerced capacity should allow one request")
	}
	if r.Allow() {
		t.Fatal("second request should be denied at capacity 1")
	}
}

func TestAllowRecoversAfterWindow(t *testing.T) {
	r := NewRateLimiter(1)
	if !r.Allow() {
		t.Fatal("first request should be allowed")
	}

	// Backdate the recorded request so the window has passed.
	r.mu.Lock()
	r.requestTimes[0] = time.Now().Add(-2 * time.Second)
	r.mu.Unlock()

	if !r.Allow() {
		t.Fatal("request after the window should be allowed")
	}
}

func TestWaitImmediateWhenSlotFree(t *testing.T) {
	r := NewRateLimiter(1)
	if err := r.Wait(context.Background()); err != nil {
		t.Fatalf("Wait with free slot: %v", err)
	}
}

func TestWaitHonorsContext(t *testing.T) {
	r := NewRateLimiter(1)
	if !r.Allow() {
		t.Fatal("setup: first request should be allowed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Wait(ctx); err != context.Canceled {
		t.Fatalf("Wait on cancelled context = %v, want context.Canceled", err)
	}
}
