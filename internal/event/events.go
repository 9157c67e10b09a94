package event

import (
	"exec_go/pkg/quant"
)

// Type defines the type of event.
type Type uint16

const (
	EvBookUpdate Type = iota + 1
	EvFill
	EvOrderRouted
	EvSystemHalt
)

// Event is the interface for all journaled events.
type Event interface {
	GetSeq() uint64
	GetTs() quant.TimeStamp
	GetType() Type
}

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	Seq uint64          `json:"seq"`
	Ts  quant.TimeStamp `json:"ts"`
}

func (e BaseEvent) GetSeq() uint64         { return e.Seq }
func (e BaseEvent) GetTs() quant.TimeStamp { return e.Ts }

// BookUpdateEvent records one price-level mutation.
type BookUpdateEvent struct {
	BaseEvent
	Symbol      string            `json:"symbol"`
	Side        string            `json:"side"`
	PriceMicros quant.PriceMicros `json:"price"`
	QtySats     quant.QtySats     `json:"qty"` // Zero means the level was removed.
}

func (e BookUpdateEvent) GetType() Type { return EvBookUpdate }

// FillEvent records an execution applied to exposure bookkeeping.
type FillEvent struct {
	BaseEvent
	OrderID           string            `json:"order_id"`
	Symbol            string            `json:"symbol"`
	Side              string            `json:"side"`
	PriceMicros       quant.PriceMicros `json:"price"`
	QtySats           quant.QtySats     `json:"qty"`
	RealizedPnLMicros int64             `json:"realized_pnl"`
}

func (e FillEvent) GetType() Type { return EvFill }

// OrderRoutedEvent records a dispatch outcome, success or terminal failure.
type OrderRoutedEvent struct {
	BaseEvent
	OrderID         string `json:"order_id"`
	ExchangeOrderID string `json:"exchange_order_id,omitempty"`
	Symbol          string `json:"symbol"`
	Status          string `json:"status"`
	Attempts        int    `json:"attempts"`
	Error           string `json:"error,omitempty"`
}

func (e OrderRoutedEvent) GetType() Type { return EvOrderRouted }
