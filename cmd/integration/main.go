package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"exec_go/internal/book"
	"exec_go/internal/domain"
	"exec_go/internal/execution"
	"exec_go/internal/exposure"
	"exec_go/internal/infra"
	"exec_go/internal/risk"
	"exec_go/internal/router"
	"exec_go/internal/slippage"
)

// End-to-end smoke run of the dispatch pipeline against the paper
// venue: seed a book, pass risk, route, and verify exposure moved.
// No network, no config file.
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	slog.Info("🚀 Starting paper pipeline smoke run...")

	ctx := context.Background()

	// 1. Seed a one-symbol book
	books := book.NewSet(64)
	b := books.Get("BTCUSDT")
	b.Upsert(domain.SideBuy, 100_000_000_000, 5_00000000)  // $100,000.00 x 5
	b.Upsert(domain.SideSell, 100_010_000_000, 4_00000000) // $100,010.00 x 4
	b.Upsert(domain.SideSell, 100_020_000_000, 6_00000000)

	// 2. Risk and routing around the paper venue
	tracker := exposure.NewTracker()
	venue := execution.NewPaperExchange(books, tracker, nil)
	breaker := infra.NewCircuitBreaker(infra.CircuitBreakerConfig{
		Name:             "dispatch",
		FailureThreshold: 5,
		CoolDown:         30 * time.Second,
	})
	gate := risk.NewGate(risk.Config{
		MaxOrderNotionalMicros:    1_000_000_000_000, // $1M
		MaxPositionNotionalMicros: 1_000_000_000_000,
		MaxTotalNotionalMicros:    5_000_000_000_000,
		MaxOpenPositions:          10,
		MaxDailyLossMicros:        100_000_000_000,
		MaxSlippageBps:            5,
	}, tracker, breaker)

	r, err := router.NewRouter(router.Config{
		MaxSlippageBps: 5,
		SnapshotDepth:  10,
		MaxTokenWait:   time.Second,
		Retry:          infra.DefaultRetryPolicy(),
	}, venue, books, slippage.NewEstimator(10),
		infra.NewRateLimiter(10, 10), breaker, logger)
	if err != nil {
		fail("router construction", err)
	}

	// 3. Place a limit buy at the touch
	order := domain.NewOrder("BTCUSDT", domain.SideBuy, domain.TypeLimit, 100_010_000_000, 1_00000000)
	slog.Info("STEP 1: Risk check...", "oid", order.ID)
	ask, _ := b.BestAsk()
	if decision := gate.Check(order, ask.PriceMicros); !decision.Approved {
		fail("risk check", fmt.Errorf("rejected: %s", decision.Reason))
	}
	slog.Info("✅ Risk approved")

	slog.Info("STEP 2: Routing...")
	resp, attempts, err := r.Route(ctx, order)
	if err != nil {
		fail("route", err)
	}
	if resp.Status != domain.StatusFilled {
		fail("route", fmt.Errorf("unexpected status %s", resp.Status))
	}
	slog.Info("✅ Order filled", "price", resp.AvgPriceMicros, "qty", resp.FilledQtySats, "attempts", attempts)

	// 4. Verify exposure moved
	slog.Info("STEP 3: Verifying exposure...")
	pos, ok := tracker.Position("BTCUSDT")
	if !ok || pos.QtySats != 1_00000000 {
		fail("exposure", fmt.Errorf("position = %+v", pos))
	}
	agg := tracker.Aggregate()
	if agg.OpenPositions != 1 {
		fail("exposure", fmt.Errorf("open positions = %d", agg.OpenPositions))
	}
	slog.Info("✅ Exposure consistent", "gross_notional", agg.GrossNotionalMicros)

	slog.Info("🎉 Smoke run passed!")
}

func fail(step string, err error) {
	slog.Error("❌ "+step+" failed", slog.Any("error", err))
	os.Exit(1)
}
