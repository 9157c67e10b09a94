package domain

import "exec_go/pkg/quant"

// Position represents an open trading position.
// Created on the first fill for a symbol, removed when flattened.
// All monetary values are strictly int64.
type Position struct {
	Symbol              string            `json:"symbol"`
	QtySats             quant.QtySats     `json:"qty"`       // Positive for Long, Negative for Short.
	AvgEntryPriceMicros quant.PriceMicros `json:"avg_entry"` // Weighted Average Entry Price.
	RealizedPnLMicros   int64             `json:"realized_pnl"`
}

// IsLong checks if the position is Long.
func (p *Position) IsLong() bool {
	return p.QtySats > 0
}

// IsShort checks if the position is Short.
func (p *Position) IsShort() bool {
	return p.QtySats < 0
}

// IsFlat reports whether the position has returned to zero quantity.
func (p *Position) IsFlat() bool {
	return p.QtySats == 0
}
