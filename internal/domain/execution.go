package domain

import "exec_go/pkg/quant"

// Exchange order lifecycle statuses as reported back over the transport.
const (
	StatusAccepted = "ACCEPTED"
	StatusFilled   = "FILLED"
	StatusRejected = "REJECTED"
)

// ExchangeResponse is the venue's answer to an accepted order submission.
type ExchangeResponse struct {
	OrderID         string            `json:"order_id"`          // Client-assigned id echoed back.
	ExchangeOrderID string            `json:"exchange_order_id"` // Venue-assigned id.
	Status          string            `json:"status"`
	FilledQtySats   quant.QtySats     `json:"filled_qty,string"`
	AvgPriceMicros  quant.PriceMicros `json:"avg_price,string"`
	TsUnixM         quant.TimeStamp   `json:"ts"`
}

// Fill is an execution event applied to exposure bookkeeping.
type Fill struct {
	OrderID           string
	Symbol            string
	Side              Side
	PriceMicros       quant.PriceMicros
	QtySats           quant.QtySats // Unsigned; direction in Side.
	RealizedPnLMicros int64         // Realized on this fill (reducing fills only).
	TsUnixM           quant.TimeStamp
}
