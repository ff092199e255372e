package limiter

import (
	"context"
	"sync"
	"time"
)

// RateLimiter bounds how many requests may start within any one second
// window. Used in front of the GitHub API caller.
type RateLimiter struct {
	requestTimes []time.Time
	maxRequests  int
	mu           sync.Mutex
}

func NewRateLimiter(maxRequests int) *RateLimiter {
	if maxRequests < 1 {
		maxRequests = 1
	}
	return &RateLimiter{
		requestTimes: make([]time.Time, 0, maxRequests),
		maxRequests:  maxRequests,
	}
}

// Allow reports whether a request may start now and, when it may, records it.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	oneSecondAgo := now.Add(-1 * time.Second)

	validTimes := make([]time.Time, 0, len(r.requestTimes))
	for _, t := range r.requestTimes {
		if t.After(oneSecondAgo) {
			validTimes = append(validTimes, t)
		}
	}
	r.requestTimes = validTimes

	if len(r.requestTimes) < r.maxRequests {
		r.requestTimes = append(r.requestTimes, now)
		return true
	}

	return false
}

// Wait blocks until a slot opens or the context ends.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		if r.Allow() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}
