package infra

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTokenWaitTimeout is returned when no token became available within
// the caller's wait budget.
var ErrTokenWaitTimeout = errors.New("rate limiter: token wait timed out")

// RateLimiter implements a token bucket rate limiter.
// Thread-safe and suitable for concurrent order dispatch.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time

	now func() time.Time // Injected for tests.
}

// NewRateLimiter creates a new rate limiter.
// burst: maximum burst size
// perSecond: refill rate (tokens per second)
func NewRateLimiter(burst int, perSecond float64) *RateLimiter {
	r := &RateLimiter{
		tokens:     float64(burst),
		maxTokens:  float64(burst),
		refillRate: perSecond,
		now:        time.Now,
	}
	r.lastRefill = r.now()
	return r
}

// TryAcquire attempts to acquire a token without blocking.
// Returns true if a token was acquired, false otherwise.
func (r *RateLimiter) TryAcquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()

	if r.tokens >= 1 {
		r.tokens--
		return true
	}
	return false
}

// Acquire blocks until a token is available, ctx is done, or maxWait
// elapses. The wait is cooperative: a cancellation aborts the pending
// sleep instead of running it out.
func (r *RateLimiter) Acquire(ctx context.Context, maxWait time.Duration) error {
	deadline := r.now().Add(maxWait)

	for {
		r.mu.Lock()
		r.refill()
		if r.tokens >= 1 {
			r.tokens--
			r.mu.Unlock()
			return nil
		}
		// Time until the next whole token.
		wait := time.Duration((1 - r.tokens) / r.refillRate * float64(time.Second))
		r.mu.Unlock()

		if r.now().Add(wait).After(deadline) {
			return ErrTokenWaitTimeout
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// refill adds tokens based on elapsed time.
// Must be called with mutex held.
func (r *RateLimiter) refill() {
	now := r.now()
	elapsed := now.Sub(r.lastRefill).Seconds()
	r.tokens += elapsed * r.refillRate

	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}

	r.lastRefill = now
}
