package infra

import (
	"math/rand"
	"time"
)

// RetryPolicy bounds the dispatch retry loop: attempt budget, exponential
// delay growth, and a jitter fraction applied on top of each delay.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	JitterFrac  float64 // Extra random delay in [0, JitterFrac*delay).
}

// DefaultRetryPolicy returns the standard dispatch retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		JitterFrac:  0.2,
	}
}

// Delay returns the backoff duration before retry number retryCount.
// Logic: BaseDelay * 2^retryCount, capped at MaxDelay, plus jitter.
// If retryCount is negative, it returns BaseDelay.
func (p RetryPolicy) Delay(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}

	// 2^30 seconds already dwarfs any sane MaxDelay; cap early to
	// prevent shift overflow.
	backoff := p.MaxDelay
	if retryCount <= 30 {
		backoff = p.BaseDelay * time.Duration(1<<retryCount)
		if backoff > p.MaxDelay || backoff < 0 {
			backoff = p.MaxDelay
		}
	}

	if p.JitterFrac > 0 {
		backoff += time.Duration(rand.Float64() * p.JitterFrac * float64(backoff))
	}
	return backoff
}
