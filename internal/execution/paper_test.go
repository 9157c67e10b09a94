package execution

import (
	"context"
	"sync"
	"testing"

	"exec_go/internal/book"
	"exec_go/internal/domain"
	"exec_go/internal/exposure"
)

func paperFixture() (*PaperExchange, *exposure.Tracker, *book.Set) {
	books := book.NewSet(0)
	b := books.Get("BTCUSDT")
	b.Upsert(domain.SideBuy, 100000000, 50_00000000)
	b.Upsert(domain.SideSell, 100010000, 40_00000000)
	b.Upsert(domain.SideSell, 100020000, 60_00000000)

	tracker := exposure.NewTracker()
	return NewPaperExchange(books, tracker, nil), tracker, books
}

func TestPaper_MarketBuyFillsAtVWAP(t *testing.T) {
	paper, tracker, _ := paperFixture()

	order := domain.NewOrder("BTCUSDT", domain.SideBuy, domain.TypeMarket, 0, 60_00000000)
	resp, err := paper.SubmitOrder(context.Background(), order)
	if err != nil {
		t.Fatalf("SubmitOrder failed: %v", err)
	}
	if resp.Status != domain.StatusFilled {
		t.Errorf("status = %s, want FILLED", resp.Status)
	}
	if resp.AvgPriceMicros != 100013333 {
		t.Errorf("avg price = %d, want walked VWAP 100013333", resp.AvgPriceMicros)
	}

	pos, ok := tracker.Position("BTCUSDT")
	if !ok || pos.QtySats != 60_00000000 {
		t.Errorf("position = %+v, want long 60", pos)
	}
}

func TestPaper_LimitFillsAtLimit(t *testing.T) {
	paper, tracker, _ := paperFixture()

	order := domain.NewOrder("BTCUSDT", domain.SideBuy, domain.TypeLimit, 100010000, 10_00000000)
	resp, err := paper.SubmitOrder(context.Background(), order)
	if err != nil {
		t.Fatalf("SubmitOrder failed: %v", err)
	}
	if resp.AvgPriceMicros != 100010000 {
		t.Errorf("avg price = %d, want limit price", resp.AvgPriceMicros)
	}
	if agg := tracker.Aggregate(); agg.OpenPositions != 1 {
		t.Errorf("open positions = %d, want 1", agg.OpenPositions)
	}
}

func TestPaper_ReducingFillRealizesPnL(t *testing.T) {
	paper, tracker, _ := paperFixture()

	// Long 1.0 @ 100.00, then sell 1.0 @ 110.00: +10.00 realized.
	buy := domain.NewOrder("BTCUSDT", domain.SideBuy, domain.TypeLimit, 100000000, 1_00000000)
	if _, err := paper.SubmitOrder(context.Background(), buy); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	sell := domain.NewOrder("BTCUSDT", domain.SideSell, domain.TypeLimit, 110000000, 1_00000000)
	if _, err := paper.SubmitOrder(context.Background(), sell); err != nil {
		t.Fatalf("sell failed: %v", err)
	}

	agg := tracker.Aggregate()
	if agg.DailyPnLMicros != 10_000000 {
		t.Errorf("realized pnl = %d, want 10000000", agg.DailyPnLMicros)
	}
	if agg.OpenPositions != 0 {
		t.Errorf("open positions = %d, want 0 after flatten", agg.OpenPositions)
	}

	fills := paper.Fills()
	if len(fills) != 2 {
		t.Fatalf("fills = %d, want 2", len(fills))
	}
	if fills[1].RealizedPnLMicros != 10_000000 {
		t.Errorf("fill pnl = %d, want 10000000", fills[1].RealizedPnLMicros)
	}
}

func TestPaper_ConcurrentReducingFillsRealizeOnce(t *testing.T) {
	paper, tracker, _ := paperFixture()

	// Long 1.0 @ 100.00, then two concurrent sells of 1.0 @ 110.00.
	// One flattens and realizes +10.00; the other finds no position and
	// opens a short. Realizing twice against the same entry would mean
	// the P&L read and the apply interleaved.
	open := domain.NewOrder("BTCUSDT", domain.SideBuy, domain.TypeLimit, 100_000000, 1_00000000)
	if _, err := paper.SubmitOrder(context.Background(), open); err != nil {
		t.Fatalf("open failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sell := domain.NewOrder("BTCUSDT", domain.SideSell, domain.TypeLimit, 110_000000, 1_00000000)
			if _, err := paper.SubmitOrder(context.Background(), sell); err != nil {
				t.Errorf("sell failed: %v", err)
			}
		}()
	}
	wg.Wait()

	agg := tracker.Aggregate()
	if agg.DailyPnLMicros != 10_000000 {
		t.Errorf("daily pnl = %d, want exactly 10000000", agg.DailyPnLMicros)
	}
	pos, ok := tracker.Position("BTCUSDT")
	if !ok || !pos.IsShort() || pos.QtySats != -1_00000000 {
		t.Errorf("position = %+v, want short 1.0", pos)
	}
	if pos.AvgEntryPriceMicros != 110_000000 {
		t.Errorf("short entry = %v, want 110.0", pos.AvgEntryPriceMicros)
	}
}

func TestPaper_NoLiquidityIsBusinessRejection(t *testing.T) {
	paper, _, _ := paperFixture()

	order := domain.NewOrder("BTCUSDT", domain.SideBuy, domain.TypeMarket, 0, 1000_00000000)
	_, err := paper.SubmitOrder(context.Background(), order)
	if !IsBusinessRejection(err) {
		t.Errorf("err = %v, want business rejection", err)
	}
}

func TestMock_ScriptedOutcomes(t *testing.T) {
	m := NewMockTransport()
	m.SubmitFn = func(ctx context.Context, order domain.Order) (*domain.ExchangeResponse, error) {
		return nil, Transient("submit", context.DeadlineExceeded)
	}

	order := domain.NewOrder("BTCUSDT", domain.SideBuy, domain.TypeMarket, 0, 1_00000000)
	if _, err := m.SubmitOrder(context.Background(), order); !IsTransient(err) {
		t.Errorf("err = %v, want transient", err)
	}
	if m.Calls() != 1 {
		t.Errorf("calls = %d, want 1", m.Calls())
	}
}
