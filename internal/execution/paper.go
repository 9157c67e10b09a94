package execution

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"exec_go/internal/book"
	"exec_go/internal/domain"
	"exec_go/internal/exposure"
	"exec_go/internal/slippage"
	"exec_go/pkg/quant"
	"exec_go/pkg/safe"
)

// FillRecorder receives executed fills for journaling.
type FillRecorder interface {
	RecordFill(ctx context.Context, fill domain.Fill) error
}

// PaperExchange simulates a venue by filling orders against the live
// book. Market orders execute at the walked VWAP, limit orders at their
// limit price. Fills flow into the exposure tracker exactly as live
// fills would, which keeps the whole pipeline testable without a network.
type PaperExchange struct {
	books     *book.Set
	tracker   *exposure.Tracker
	estimator *slippage.Estimator
	recorder  FillRecorder // Optional.

	mu    sync.Mutex
	fills []domain.Fill
}

// NewPaperExchange creates a paper venue executing against books.
func NewPaperExchange(books *book.Set, tracker *exposure.Tracker, recorder FillRecorder) *PaperExchange {
	return &PaperExchange{
		books:     books,
		tracker:   tracker,
		estimator: slippage.NewEstimator(slippage.DefaultMaxDepth),
		recorder:  recorder,
	}
}

// SubmitOrder fills the order immediately. Unfillable market orders come
// back as a business rejection, the same way a real venue would decline.
func (p *PaperExchange) SubmitOrder(ctx context.Context, order domain.Order) (*domain.ExchangeResponse, error) {
	var execPrice quant.PriceMicros

	if order.Type == domain.TypeLimit && order.PriceMicros > 0 {
		execPrice = order.PriceMicros
	} else {
		snap := p.books.Get(order.Symbol).Snapshot(0)
		res, err := p.estimator.Estimate(order, snap)
		if err != nil {
			return nil, &BusinessRejection{Code: "NO_LIQUIDITY", Reason: err.Error()}
		}
		execPrice = res.VWAPMicros
	}

	// One lock spans the P&L read and the apply: two concurrent fills on
	// the same symbol must not realize against a stale entry price.
	p.mu.Lock()
	pnl := RealizedDelta(p.tracker, order, execPrice)
	p.tracker.ApplyFill(order.Symbol, order.SignedQtySats(), execPrice, pnl)

	fill := domain.Fill{
		OrderID:           order.ID,
		Symbol:            order.Symbol,
		Side:              order.Side,
		PriceMicros:       execPrice,
		QtySats:           order.QtySats,
		RealizedPnLMicros: pnl,
		TsUnixM:           quant.TimeStamp(time.Now().UnixMicro()),
	}
	p.fills = append(p.fills, fill)
	p.mu.Unlock()

	if p.recorder != nil {
		if err := p.recorder.RecordFill(ctx, fill); err != nil {
			slog.Warn("paper fill journaling failed", slog.Any("error", err))
		}
	}

	slog.Info("PAPER EXECUTION: Order Filled",
		slog.String("id", order.ID),
		slog.String("symbol", order.Symbol),
		slog.String("side", string(order.Side)),
		slog.Int64("price", int64(execPrice)),
		slog.Int64("qty", int64(order.QtySats)))

	return &domain.ExchangeResponse{
		OrderID:         order.ID,
		ExchangeOrderID: "paper-" + order.ID,
		Status:          domain.StatusFilled,
		FilledQtySats:   order.QtySats,
		AvgPriceMicros:  execPrice,
		TsUnixM:         fill.TsUnixM,
	}, nil
}

// RealizedDelta computes the P&L realized by the part of an order that
// reduces an existing position. Must run against the tracker state as
// of just before the fill is applied; callers that can see concurrent
// fills on the same symbol serialize the read and the apply.
func RealizedDelta(tracker *exposure.Tracker, order domain.Order, execPrice quant.PriceMicros) int64 {
	pos, ok := tracker.Position(order.Symbol)
	if !ok {
		return 0
	}

	posQty := int64(pos.QtySats)
	fillQty := int64(order.SignedQtySats())
	if (posQty > 0) == (fillQty > 0) {
		return 0 // Same direction: nothing realized.
	}

	closed := safe.Abs(fillQty)
	if closed > safe.Abs(posQty) {
		closed = safe.Abs(posQty)
	}

	perUnit := safe.Sub(int64(execPrice), int64(pos.AvgEntryPriceMicros))
	if pos.IsShort() {
		perUnit = -perUnit
	}
	return safe.NotionalMicros(quant.PriceMicros(perUnit), quant.QtySats(closed))
}

// Fills returns all executed fills.
func (p *PaperExchange) Fills() []domain.Fill {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Fill, len(p.fills))
	copy(out, p.fills)
	return out
}

func (p *PaperExchange) ValidateSecurity() error {
	return nil // Local venue; nothing leaves the process.
}

func (p *PaperExchange) Endpoint() string {
	return "https://paper.exec.local"
}

func (p *PaperExchange) Close() error {
	return nil
}
