package slippage

import (
	"errors"

	"exec_go/internal/domain"
	"exec_go/pkg/quant"
	"exec_go/pkg/safe"
)

// ErrInsufficientLiquidity is returned when the walked depth cannot fill
// the order within the configured level budget.
var ErrInsufficientLiquidity = errors.New("slippage: insufficient liquidity within depth limit")

// DefaultMaxDepth bounds the book walk.
const DefaultMaxDepth = 10

// Result is a completed estimate.
type Result struct {
	Bps            quant.Bps         // |vwap - reference| / reference
	VWAPMicros     quant.PriceMicros // Volume-weighted average fill price.
	RefPriceMicros quant.PriceMicros // Best opposite price, or a tighter limit.
}

// Estimator walks a book snapshot to price the market impact of an order
// before it is routed. Read-only and side-effect free.
type Estimator struct {
	maxDepth int
}

// NewEstimator creates an estimator walking at most maxDepth levels.
// maxDepth <= 0 falls back to DefaultMaxDepth.
func NewEstimator(maxDepth int) *Estimator {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Estimator{maxDepth: maxDepth}
}

// Estimate walks the side opposite the order's direction from best to
// worst, accumulating notional until the quantity is satisfied.
// Zero-quantity orders cost zero by definition.
func (e *Estimator) Estimate(order domain.Order, snap *domain.OrderBookSnapshot) (Result, error) {
	if order.QtySats == 0 {
		return Result{}, nil
	}

	levels := snap.Asks // Buys consume asks.
	if order.Side == domain.SideSell {
		levels = snap.Bids
	}
	if len(levels) == 0 {
		return Result{}, ErrInsufficientLiquidity
	}

	ref := referencePrice(order, levels[0].PriceMicros)

	depth := e.maxDepth
	if depth > len(levels) {
		depth = len(levels)
	}

	var filled int64
	var notional int64 // Micros.
	remaining := int64(order.QtySats)

	for i := 0; i < depth && remaining > 0; i++ {
		take := int64(levels[i].QtySats)
		if take > remaining {
			take = remaining
		}
		filled = safe.Add(filled, take)
		notional = safe.Add(notional, safe.NotionalMicros(levels[i].PriceMicros, quant.QtySats(take)))
		remaining -= take
	}

	if remaining > 0 {
		return Result{}, ErrInsufficientLiquidity
	}

	vwap := quant.PriceMicros(safe.Div(safe.Mul(notional, quant.QtyScale), filled))
	return Result{
		Bps:            quant.RatioBps(vwap, ref),
		VWAPMicros:     vwap,
		RefPriceMicros: ref,
	}, nil
}

// referencePrice picks the best opposite-side price, or the order's own
// limit when one is specified and tighter.
func referencePrice(order domain.Order, bestOpposite quant.PriceMicros) quant.PriceMicros {
	if order.Type != domain.TypeLimit || order.PriceMicros <= 0 {
		return bestOpposite
	}
	if order.IsBuy() {
		if order.PriceMicros < bestOpposite {
			return order.PriceMicros
		}
	} else {
		if order.PriceMicros > bestOpposite {
			return order.PriceMicros
		}
	}
	return bestOpposite
}
