package infra

import (
	"log/slog"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Failing, reject requests
	StateHalfOpen              // Testing recovery
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreakerConfig holds configuration for creating a circuit breaker.
type CircuitBreakerConfig struct {
	Name             string
	FailureThreshold int           // Consecutive failures before opening
	CoolDown         time.Duration // Time in Open before a half-open trial
}

// DefaultCircuitBreakerConfig returns sensible defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		CoolDown:         30 * time.Second,
	}
}

// CircuitBreaker isolates a failing dependency. Consulted on every route
// call, so the critical section is a handful of field reads.
//
// Closed counts consecutive failures and opens at the threshold. Open
// rejects everything until the cool-down deadline passes, then admits a
// single half-open trial. The trial's outcome decides Closed vs Open.
type CircuitBreaker struct {
	name string
	mu   sync.Mutex

	state         State
	failureCount  int
	lastFailure   time.Time
	trialInFlight bool

	failureThreshold int
	coolDown         time.Duration

	now func() time.Time // Injected for tests.
}

// NewCircuitBreaker creates a new circuit breaker in the Closed state.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		name:             cfg.Name,
		state:            StateClosed,
		failureThreshold: cfg.FailureThreshold,
		coolDown:         cfg.CoolDown,
		now:              time.Now,
	}
}

// Allow checks if a call should proceed. In HalfOpen only one trial call
// is admitted at a time.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true

	case StateOpen:
		if cb.now().Sub(cb.lastFailure) > cb.coolDown {
			cb.state = StateHalfOpen
			cb.trialInFlight = true
			slog.Info("Circuit breaker transitioning to HALF_OPEN",
				slog.String("name", cb.name))
			return true
		}
		return false

	case StateHalfOpen:
		if cb.trialInFlight {
			return false
		}
		cb.trialInFlight = true
		return true

	default:
		return false
	}
}

// RecordSuccess records a successful operation. A successful half-open
// trial closes the breaker.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failureCount = 0

	case StateHalfOpen:
		cb.state = StateClosed
		cb.failureCount = 0
		cb.trialInFlight = false
		slog.Info("Circuit breaker CLOSED (recovered)",
			slog.String("name", cb.name))
	}
}

// RecordFailure records a failed operation.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailure = cb.now()

	switch cb.state {
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.failureThreshold {
			cb.state = StateOpen
			slog.Warn("Circuit breaker OPEN (failures exceeded threshold)",
				slog.String("name", cb.name),
				slog.Int("failures", cb.failureCount))
		}

	case StateHalfOpen:
		// A failed trial restarts the cool-down.
		cb.state = StateOpen
		cb.trialInFlight = false
		slog.Warn("Circuit breaker OPEN (half-open trial failed)",
			slog.String("name", cb.name))
	}
}

// ReleaseTrial un-claims the half-open trial without recording an
// outcome, for callers that abort before the dependency answers.
// Without it an abandoned trial wedges the breaker in HalfOpen.
func (cb *CircuitBreaker) ReleaseTrial() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		cb.trialInFlight = false
	}
}

// State returns the current state (for monitoring).
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forces the circuit breaker to closed state (for testing/admin).
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failureCount = 0
	cb.trialInFlight = false
	slog.Info("Circuit breaker RESET", slog.String("name", cb.name))
}
