package router

import (
	"errors"
	"fmt"
)

// ErrCircuitOpen is returned when the breaker rejects a dispatch before
// any network activity took place.
var ErrCircuitOpen = errors.New("router: circuit breaker open")

// ErrRateLimitTimeout is returned when no dispatch token became
// available within the configured wait budget.
var ErrRateLimitTimeout = errors.New("router: rate limit wait timed out")

// SlippageExceededError rejects an order whose estimated execution cost
// exceeds the configured ceiling. Local, side-effect free, never retried.
type SlippageExceededError struct {
	EstimatedBps float64
	LimitBps     float64
}

func (e *SlippageExceededError) Error() string {
	return fmt.Sprintf("router: estimated slippage %.2f bps exceeds limit %.2f bps", e.EstimatedBps, e.LimitBps)
}

// IsSlippageExceeded reports whether err is a slippage rejection.
func IsSlippageExceeded(err error) bool {
	var se *SlippageExceededError
	return errors.As(err, &se)
}

// RoutingFailedError is returned after the retry budget is exhausted.
// It carries the attempt count and the last underlying cause.
type RoutingFailedError struct {
	Attempts int
	LastErr  error
}

func (e *RoutingFailedError) Error() string {
	return fmt.Sprintf("router: dispatch failed after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *RoutingFailedError) Unwrap() error {
	return e.LastErr
}
