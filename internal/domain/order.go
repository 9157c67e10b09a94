package domain

import (
	"time"

	"github.com/google/uuid"

	"exec_go/pkg/quant"
)

// Side is the direction of an order or fill.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Sign returns +1 for buys and -1 for sells.
func (s Side) Sign() int64 {
	if s == SideSell {
		return -1
	}
	return 1
}

// OrderType distinguishes market from limit orders.
type OrderType string

const (
	TypeMarket OrderType = "MARKET"
	TypeLimit  OrderType = "LIMIT"
)

// Order is a candidate order emitted by the strategy layer.
// Immutable once constructed; pass by value.
// All monetary values are strictly int64 fixed-point.
type Order struct {
	ID           string
	Symbol       string
	Side         Side
	Type         OrderType
	PriceMicros  quant.PriceMicros // Limit price. 0 for market orders.
	QtySats      quant.QtySats     // Always > 0; direction lives in Side.
	CreatedUnixM quant.TimeStamp
}

// NewOrder builds an order with a fresh client-assigned id.
func NewOrder(symbol string, side Side, typ OrderType, price quant.PriceMicros, qty quant.QtySats) Order {
	return Order{
		ID:           uuid.New().String(),
		Symbol:       symbol,
		Side:         side,
		Type:         typ,
		PriceMicros:  price,
		QtySats:      qty,
		CreatedUnixM: quant.TimeStamp(time.Now().UnixMicro()),
	}
}

// IsBuy reports whether the order adds to the long side.
func (o Order) IsBuy() bool {
	return o.Side == SideBuy
}

// SignedQtySats returns the quantity with the side's sign applied.
func (o Order) SignedQtySats() quant.QtySats {
	return quant.QtySats(o.Side.Sign() * int64(o.QtySats))
}

// EffectivePriceMicros returns the limit price when set, else the reference.
// Used for notional projections on market orders.
func (o Order) EffectivePriceMicros(ref quant.PriceMicros) quant.PriceMicros {
	if o.Type == TypeLimit && o.PriceMicros > 0 {
		return o.PriceMicros
	}
	return ref
}
