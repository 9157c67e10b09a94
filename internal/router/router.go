package router

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"exec_go/internal/book"
	"exec_go/internal/domain"
	"exec_go/internal/execution"
	"exec_go/internal/infra"
	"exec_go/internal/slippage"
)

// Config holds the static routing parameters, supplied pre-validated.
type Config struct {
	MaxSlippageBps float64
	SnapshotDepth  int
	MaxTokenWait   time.Duration
	Retry          infra.RetryPolicy
}

// ConfigFromApp maps the loaded yaml sections onto routing parameters.
func ConfigFromApp(cfg *infra.Config) Config {
	return Config{
		MaxSlippageBps: cfg.Risk.MaxSlippageBps,
		SnapshotDepth:  cfg.Book.SnapshotDepth,
		MaxTokenWait:   time.Duration(cfg.RateLimit.MaxWaitMS) * time.Millisecond,
		Retry:          cfg.RetryPolicy(),
	}
}

// Router drives an order through the dispatch pipeline: slippage gate,
// rate limiter, transport security check, circuit breaker gate, then
// the exchange call under a bounded retry loop.
//
// The limiter and breaker are shared across all callers; Route is safe
// for concurrent use.
type Router struct {
	cfg       Config
	transport execution.Transport
	books     *book.Set
	estimator *slippage.Estimator
	limiter   *infra.RateLimiter
	breaker   *infra.CircuitBreaker
	log       *slog.Logger

	// sleep is the backoff suspension point, injected for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRouter wires the pipeline. The transport's security invariants are
// verified once here; a violation is fatal and should prevent startup.
func NewRouter(cfg Config, transport execution.Transport, books *book.Set, estimator *slippage.Estimator, limiter *infra.RateLimiter, breaker *infra.CircuitBreaker, log *slog.Logger) (*Router, error) {
	if err := transport.ValidateSecurity(); err != nil {
		return nil, err
	}
	return &Router{
		cfg:       cfg,
		transport: transport,
		books:     books,
		estimator: estimator,
		limiter:   limiter,
		breaker:   breaker,
		log:       log,
		sleep:     sleepCtx,
	}, nil
}

// Route dispatches one order and reports how many transport attempts it
// took. Every failure is a typed error; rejections before the dispatch
// step make zero network calls and report zero attempts.
func (r *Router) Route(ctx context.Context, order domain.Order) (*domain.ExchangeResponse, int, error) {
	// 1. Slippage gate, limit orders only. Market orders accept the
	// walked cost by definition.
	if order.Type == domain.TypeLimit {
		if err := r.checkSlippage(order); err != nil {
			return nil, 0, err
		}
	}

	// 2. Rate limiting: non-blocking fast path, then a bounded wait.
	if !r.limiter.TryAcquire() {
		if err := r.limiter.Acquire(ctx, r.cfg.MaxTokenWait); err != nil {
			if errors.Is(err, infra.ErrTokenWaitTimeout) {
				return nil, 0, ErrRateLimitTimeout
			}
			return nil, 0, err
		}
	}

	// 3. Transport security, re-checked before every dispatch.
	if err := r.transport.ValidateSecurity(); err != nil {
		return nil, 0, err
	}

	// 4. Circuit breaker gate. In HalfOpen this claims the single trial.
	if !r.breaker.Allow() {
		return nil, 0, ErrCircuitOpen
	}

	return r.dispatch(ctx, order)
}

// checkSlippage estimates the order's execution cost against the latest
// book snapshot. No side effects.
func (r *Router) checkSlippage(order domain.Order) error {
	snap := r.books.Get(order.Symbol).Snapshot(r.cfg.SnapshotDepth)
	res, err := r.estimator.Estimate(order, snap)
	if err != nil {
		return err
	}
	if float64(res.Bps) > r.cfg.MaxSlippageBps {
		r.log.Warn("order rejected on slippage",
			"order_id", order.ID,
			"symbol", order.Symbol,
			"estimated_bps", float64(res.Bps),
			"limit_bps", r.cfg.MaxSlippageBps)
		return &SlippageExceededError{EstimatedBps: float64(res.Bps), LimitBps: r.cfg.MaxSlippageBps}
	}
	return nil
}

// dispatch runs the exchange call under the retry budget. Transient
// failures back off and retry, each one feeding the breaker's failure
// counter. Business rejections and configuration errors surface
// immediately; every exit path settles the breaker's half-open trial.
func (r *Router) dispatch(ctx context.Context, order domain.Order) (*domain.ExchangeResponse, int, error) {
	var lastErr error

	for attempt := 1; attempt <= r.cfg.Retry.MaxAttempts; attempt++ {
		resp, err := r.transport.SubmitOrder(ctx, order)
		if err == nil {
			r.breaker.RecordSuccess()
			r.log.Info("order routed",
				"order_id", order.ID,
				"symbol", order.Symbol,
				"status", resp.Status,
				"attempt", attempt)
			return resp, attempt, nil
		}

		if execution.IsBusinessRejection(err) {
			// The venue answered and declined: the dependency itself is
			// healthy, so a half-open trial counts as a successful probe.
			r.breaker.RecordSuccess()
			return nil, attempt, err
		}
		if execution.IsConfigError(err) {
			// Local misconfiguration says nothing about the venue.
			r.breaker.ReleaseTrial()
			return nil, attempt, err
		}
		if ctx.Err() != nil {
			r.breaker.ReleaseTrial()
			return nil, attempt, ctx.Err()
		}

		// Anything else is treated as transient: network faults and
		// server-side failures both count against the breaker.
		r.breaker.RecordFailure()
		lastErr = err
		r.log.Warn("dispatch attempt failed",
			"order_id", order.ID,
			"attempt", attempt,
			"error", err)

		if attempt < r.cfg.Retry.MaxAttempts {
			if err := r.sleep(ctx, r.cfg.Retry.Delay(attempt-1)); err != nil {
				return nil, attempt, err
			}
		}
	}

	return nil, r.cfg.Retry.MaxAttempts, &RoutingFailedError{Attempts: r.cfg.Retry.MaxAttempts, LastErr: lastErr}
}

// sleepCtx waits for d or until ctx is cancelled, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
