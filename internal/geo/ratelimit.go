package geo

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket shared by every call to one provider.
type RateLimiter struct {
	tokens         int
	maxTokens      int
	refillInterval time.Duration
	lastRefill     time.Time
	mu             sync.Mutex
}

// NewRateLimiter allows requestsPerSecond calls per second, with bursts of
// the same size.
func NewRateLimiter(requestsPerSecond int) *RateLimiter {
	if requestsPerSecond < 1 {
		requestsPerSecond = 1
	}
	return &RateLimiter{
		tokens:         requestsPerSecond,
		maxTokens:      requestsPerSecond,
		refillInterval: time.Second / time.Duration(requestsPerSecond),
		lastRefill:     time.Now(),
	}
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	for rl.tokens <= 0 {
		rl.mu.Unlock()
		select {
		case <-ctx.Done():
			rl.mu.Lock() // re-lock so the deferred unlock stays balanced
			return ctx.Err()
		case <-time.After(rl.refillInterval):
		}
		rl.mu.Lock()
		rl.refill()
	}

	rl.tokens--
	return nil
}

func (rl *RateLimiter) refill() {
	now := time.Now()
	add := int(now.Sub(rl.lastRefill) / rl.refillInterval)
	if add > 0 {
		rl.tokens = min(rl.maxTokens, rl.tokens+add)
		rl.lastRefill = now
	}
}
