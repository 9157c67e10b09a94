package risk

import (
	"exec_go/internal/domain"
	"exec_go/internal/exposure"
	"exec_go/internal/infra"
	"exec_go/pkg/quant"
	"exec_go/pkg/safe"
)

// RejectReason identifies which limit an order tripped.
type RejectReason string

const (
	ReasonNone                  RejectReason = ""
	ReasonCircuitOpen           RejectReason = "CIRCUIT_OPEN"
	ReasonOpenPositionsExceeded RejectReason = "OPEN_POSITIONS_EXCEEDED"
	ReasonDailyLossExceeded     RejectReason = "DAILY_LOSS_EXCEEDED"
	ReasonTotalExposureExceeded RejectReason = "TOTAL_EXPOSURE_EXCEEDED"
	ReasonOrderTooLarge         RejectReason = "ORDER_TOO_LARGE"
	ReasonPositionLimitExceeded RejectReason = "POSITION_LIMIT_EXCEEDED"
)

// Decision is the outcome of a risk check.
type Decision struct {
	Approved bool
	Reason   RejectReason
}

func approve() Decision {
	return Decision{Approved: true}
}

func reject(reason RejectReason) Decision {
	return Decision{Reason: reason}
}

// Config holds the static risk limits. Supplied pre-validated; the gate
// never mutates it.
type Config struct {
	MaxOrderNotionalMicros    int64
	MaxPositionNotionalMicros int64
	MaxTotalNotionalMicros    int64
	MaxOpenPositions          int64
	MaxDailyLossMicros        int64
	MaxSlippageBps            float64
}

// ConfigFromApp maps the loaded yaml section onto the gate's limits.
func ConfigFromApp(cfg *infra.Config) Config {
	return Config{
		MaxOrderNotionalMicros:    cfg.Risk.MaxOrderNotionalMicros,
		MaxPositionNotionalMicros: cfg.Risk.MaxPositionNotionalMicros,
		MaxTotalNotionalMicros:    cfg.Risk.MaxTotalNotionalMicros,
		MaxOpenPositions:          cfg.Risk.MaxOpenPositions,
		MaxDailyLossMicros:        cfg.Risk.MaxDailyLossMicros,
		MaxSlippageBps:            cfg.Risk.MaxSlippageBps,
	}
}

// Gate validates candidate orders against exposure limits. Check never
// mutates the tracker; fills are the only mutation path.
//
// Checks run cheapest-first: the breaker flag and three aggregate reads
// resolve most rejections without touching the position-map lock. Only
// the final per-symbol projection acquires it.
type Gate struct {
	cfg     Config
	tracker *exposure.Tracker
	breaker *infra.CircuitBreaker
}

// NewGate wires the gate to its read-only collaborators.
func NewGate(cfg Config, tracker *exposure.Tracker, breaker *infra.CircuitBreaker) *Gate {
	return &Gate{cfg: cfg, tracker: tracker, breaker: breaker}
}

// Check evaluates an order. refPrice is the current reference price used
// to value market orders (typically the touch on the opposite side).
func (g *Gate) Check(order domain.Order, refPrice quant.PriceMicros) Decision {
	// 1. Circuit breaker: no point running limits if dispatch is cut off.
	if g.breaker != nil && g.breaker.State() == infra.StateOpen {
		return reject(ReasonCircuitOpen)
	}

	agg := g.tracker.Aggregate()

	// 2. Open position count (lock-free read).
	if agg.OpenPositions >= g.cfg.MaxOpenPositions {
		return reject(ReasonOpenPositionsExceeded)
	}

	// 3. Daily realized loss (lock-free read).
	if agg.DailyPnLMicros <= -g.cfg.MaxDailyLossMicros {
		return reject(ReasonDailyLossExceeded)
	}

	price := order.EffectivePriceMicros(refPrice)
	orderNotional := safe.Abs(safe.NotionalMicros(price, order.QtySats))

	// 4. Projected gross notional (lock-free read). Gross never nets, so
	// a hedged book still counts its full exposure here.
	projectedTotal := safe.Add(agg.GrossNotionalMicros, orderNotional)
	if projectedTotal > g.cfg.MaxTotalNotionalMicros {
		return reject(ReasonTotalExposureExceeded)
	}

	// 5. Order notional alone.
	if orderNotional > g.cfg.MaxOrderNotionalMicros {
		return reject(ReasonOrderTooLarge)
	}

	// 6. Projected per-symbol notional. The only check that takes the
	// position-map lock.
	projectedQty := int64(order.SignedQtySats())
	if pos, ok := g.tracker.Position(order.Symbol); ok {
		projectedQty = safe.Add(projectedQty, int64(pos.QtySats))
	}
	projectedPosNotional := safe.Abs(safe.NotionalMicros(price, quant.QtySats(projectedQty)))
	if projectedPosNotional > g.cfg.MaxPositionNotionalMicros {
		return reject(ReasonPositionLimitExceeded)
	}

	return approve()
}
