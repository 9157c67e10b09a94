package exposure

import (
	"sync"
	"sync/atomic"

	"exec_go/internal/domain"
	"exec_go/pkg/quant"
	"exec_go/pkg/safe"
)

// Aggregate is the lock-free view of total exposure.
type Aggregate struct {
	OpenPositions       int64 `json:"open_positions"`
	GrossNotionalMicros int64 `json:"gross_notional"` // Sum of |qty| x avg entry across positions.
	DailyPnLMicros      int64 `json:"daily_pnl"`      // Realized only.
}

// Tracker maintains exposure state on two tiers: three atomic aggregates
// readable without any lock, and a mutex-guarded per-symbol position map
// for checks that need per-symbol granularity.
//
// Gross notional and the open count are maintained as deltas inside the
// locked section of ApplyFill, so at quiescence they are exactly derivable
// from the position map. Gross is unsigned exposure: a long and a short on
// different symbols add up, they never net. A concurrent aggregate reader
// can still observe a fill mid-apply (daily P&L lands before the map);
// that microsecond-scale window is accepted because risk checks reading
// the aggregates only ever err toward rejecting.
type Tracker struct {
	openPositions atomic.Int64
	grossNotional atomic.Int64
	dailyPnL      atomic.Int64

	mu        sync.Mutex
	positions map[string]*domain.Position
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{positions: make(map[string]*domain.Position)}
}

// ApplyFill records an execution: signedQty is positive for buys, negative
// for sells; pnlDeltaMicros is the realized P&L of this fill (zero for
// position-increasing fills). The gross-notional delta is computed under
// the lock from the position's before/after exposure, then published with
// a single atomic add.
func (t *Tracker) ApplyFill(symbol string, signedQty quant.QtySats, price quant.PriceMicros, pnlDeltaMicros int64) {
	t.dailyPnL.Add(pnlDeltaMicros)

	t.mu.Lock()
	defer t.mu.Unlock()

	pos, ok := t.positions[symbol]
	if !ok {
		if signedQty == 0 {
			return
		}
		t.positions[symbol] = &domain.Position{
			Symbol:              symbol,
			QtySats:             signedQty,
			AvgEntryPriceMicros: price,
			RealizedPnLMicros:   pnlDeltaMicros,
		}
		t.openPositions.Add(1)
		t.grossNotional.Add(grossMicros(price, signedQty))
		return
	}

	before := grossMicros(pos.AvgEntryPriceMicros, pos.QtySats)
	oldQty := int64(pos.QtySats)
	newQty := safe.Add(oldQty, int64(signedQty))
	pos.RealizedPnLMicros = safe.Add(pos.RealizedPnLMicros, pnlDeltaMicros)

	switch {
	case newQty == 0:
		// Flattened: remove detail and decrement the open count.
		delete(t.positions, symbol)
		t.openPositions.Add(-1)
		t.grossNotional.Add(-before)
		return

	case sameSign(oldQty, newQty) && safe.Abs(newQty) > safe.Abs(oldQty):
		// Increasing: re-weight the average entry.
		oldNotional := safe.Mul(safe.Abs(oldQty), int64(pos.AvgEntryPriceMicros))
		addNotional := safe.Mul(safe.Abs(int64(signedQty)), int64(price))
		pos.AvgEntryPriceMicros = quant.PriceMicros(safe.Div(safe.Add(oldNotional, addNotional), safe.Abs(newQty)))
		pos.QtySats = quant.QtySats(newQty)

	case sameSign(oldQty, newQty):
		// Reducing: entry price unchanged.
		pos.QtySats = quant.QtySats(newQty)

	default:
		// Crossed through zero: remaining quantity opens at the fill price.
		pos.QtySats = quant.QtySats(newQty)
		pos.AvgEntryPriceMicros = price
	}

	t.grossNotional.Add(safe.Sub(grossMicros(pos.AvgEntryPriceMicros, pos.QtySats), before))
}

// grossMicros is a position's unsigned exposure at its entry price.
func grossMicros(price quant.PriceMicros, qty quant.QtySats) int64 {
	return safe.Abs(safe.NotionalMicros(price, qty))
}

// Aggregate returns the three aggregate values without taking any lock.
func (t *Tracker) Aggregate() Aggregate {
	return Aggregate{
		OpenPositions:       t.openPositions.Load(),
		GrossNotionalMicros: t.grossNotional.Load(),
		DailyPnLMicros:      t.dailyPnL.Load(),
	}
}

// Position returns a copy of the per-symbol detail. Requires the lock.
func (t *Tracker) Position(symbol string) (domain.Position, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	pos, ok := t.positions[symbol]
	if !ok {
		return domain.Position{}, false
	}
	return *pos, true
}

// Positions returns a deep copy of the detail map, for snapshotting.
func (t *Tracker) Positions() map[string]*domain.Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]*domain.Position, len(t.positions))
	for sym, pos := range t.positions {
		cp := *pos
		out[sym] = &cp
	}
	return out
}

// Restore replaces all state from a recovered snapshot.
func (t *Tracker) Restore(positions map[string]*domain.Position, agg Aggregate) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.positions = make(map[string]*domain.Position, len(positions))
	for sym, pos := range positions {
		cp := *pos
		t.positions[sym] = &cp
	}
	t.openPositions.Store(agg.OpenPositions)
	t.grossNotional.Store(agg.GrossNotionalMicros)
	t.dailyPnL.Store(agg.DailyPnLMicros)
}

// ResetDailyPnL zeroes the realized P&L counter at day rollover.
func (t *Tracker) ResetDailyPnL() {
	t.dailyPnL.Store(0)
}

func sameSign(a, b int64) bool {
	return (a > 0) == (b > 0)
}
