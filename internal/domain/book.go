package domain

import "exec_go/pkg/quant"

// PriceLevel is one rung of the aggregated ladder: all resting quantity
// at a distinct price. Levels with zero quantity are never retained.
type PriceLevel struct {
	PriceMicros quant.PriceMicros `json:"price,string"`
	QtySats     quant.QtySats     `json:"qty,string"`
}

// OrderBookSnapshot is an immutable point-in-time copy of one symbol's book.
// Bids are sorted by descending price, asks ascending; within one side
// prices are strictly distinct.
type OrderBookSnapshot struct {
	Symbol  string          `json:"symbol"`
	Bids    []PriceLevel    `json:"bids"`
	Asks    []PriceLevel    `json:"asks"`
	Seq     uint64          `json:"seq"` // Per-symbol logical clock.
	TsUnixM quant.TimeStamp `json:"ts"`
}

// BestBid returns the highest bid, if any.
func (s *OrderBookSnapshot) BestBid() (PriceLevel, bool) {
	if len(s.Bids) == 0 {
		return PriceLevel{}, false
	}
	return s.Bids[0], true
}

// BestAsk returns the lowest ask, if any.
func (s *OrderBookSnapshot) BestAsk() (PriceLevel, bool) {
	if len(s.Asks) == 0 {
		return PriceLevel{}, false
	}
	return s.Asks[0], true
}

// MidMicros returns the midpoint of the touch prices.
func (s *OrderBookSnapshot) MidMicros() (quant.PriceMicros, bool) {
	bid, okB := s.BestBid()
	ask, okA := s.BestAsk()
	if !okB || !okA {
		return 0, false
	}
	return (bid.PriceMicros + ask.PriceMicros) / 2, true
}
