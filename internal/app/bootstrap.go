package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"exec_go/internal/book"
	"exec_go/internal/domain"
	"exec_go/internal/engine"
	"exec_go/internal/exchange"
	"exec_go/internal/execution"
	"exec_go/internal/exposure"
	"exec_go/internal/feed"
	"exec_go/internal/infra"
	"exec_go/internal/risk"
	"exec_go/internal/router"
	"exec_go/internal/slippage"
	"exec_go/internal/storage"
	"exec_go/pkg/quant"
)

// RiskRejectedError is a local, side-effect-free order rejection.
type RiskRejectedError struct {
	Reason risk.RejectReason
}

func (e *RiskRejectedError) Error() string {
	return fmt.Sprintf("order rejected by risk gate: %s", e.Reason)
}

// Bootstrap orchestrates the application startup sequence and owns the
// wired pipeline.
type Bootstrap struct {
	Config    *infra.Config
	Journal   *storage.Journal
	Snapshots *storage.SnapshotManager
	Books     *book.Set
	Tracker   *exposure.Tracker
	Gate      *risk.Gate
	Router    *router.Router
	Breaker   *infra.CircuitBreaker
	Transport execution.Transport
	Feed      *feed.DepthWorker
	Sequencer *engine.Sequencer

	unlock  func()
	lastSeq uint64
	fillMu  sync.Mutex // Serializes realized-P&L reads against fill applies.
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization: config, logging,
// directories, journal, and exposure recovery.
func (b *Bootstrap) Initialize(ctx context.Context) error {
	slog.Info("🚀 Bootstrapping ExecGo...")

	// 1. Load Config (Dynamic Path Resolution)
	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)
	infra.PrintBanner(cfg)

	// 3. Data isolation per mode: _workspace/data/{mode}
	mode := strings.ToLower(cfg.Trading.Mode)
	if mode == "" {
		mode = "paper"
	}

	workDir := infra.GetWorkspaceDir()
	dataDir := filepath.Join(workDir, "data", mode)
	if err := infra.EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	// 3.1 Singleton instance lock. Two writers on one WAL journal is
	// silent corruption.
	unlock, err := infra.CreateLockFile(workDir)
	if err != nil {
		return err
	}
	b.unlock = unlock

	// 4. Journal and snapshots
	journal, err := storage.NewJournal(filepath.Join(dataDir, "events.db"))
	if err != nil {
		return err
	}
	b.Journal = journal
	b.Snapshots = storage.NewSnapshotManager(filepath.Join(dataDir, "snapshots"))
	slog.Info("✅ Journal initialized (WAL-mode)", "dir", dataDir, "mode", mode)

	// 5. Exposure recovery: snapshot plus journal replay
	b.Tracker = exposure.NewTracker()
	lastSeq, err := storage.RestoreTracker(ctx, journal, b.Snapshots, b.Tracker)
	if err != nil {
		return fmt.Errorf("failed to restore exposure: %w", err)
	}
	b.lastSeq = lastSeq
	agg := b.Tracker.Aggregate()
	slog.Info("✅ Exposure restored",
		"last_seq", lastSeq,
		"open_positions", agg.OpenPositions,
		"gross_notional_micros", agg.GrossNotionalMicros)

	return b.buildPipeline()
}

// buildPipeline wires books, risk, routing, and the mode-appropriate
// transport.
func (b *Bootstrap) buildPipeline() error {
	cfg := b.Config

	b.Books = book.NewSet(cfg.Book.MaxLevels)
	b.Breaker = infra.NewCircuitBreaker(cfg.BreakerConfig("dispatch"))
	b.Gate = risk.NewGate(risk.ConfigFromApp(cfg), b.Tracker, b.Breaker)

	if cfg.IsLive() {
		client, err := exchange.NewClient(cfg, slog.Default())
		if err != nil {
			return err
		}
		b.Transport = client
		slog.Info("✅ Live transport ready", "endpoint", client.Endpoint())
	} else {
		b.Transport = execution.NewPaperExchange(b.Books, b.Tracker, b.Journal)
		slog.Info("✅ Paper venue ready")
	}

	r, err := router.NewRouter(
		router.ConfigFromApp(cfg),
		b.Transport,
		b.Books,
		slippage.NewEstimator(slippage.DefaultMaxDepth),
		infra.NewRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.PerSecond),
		b.Breaker,
		slog.Default(),
	)
	if err != nil {
		return err
	}
	b.Router = r

	// The feed assigns ids from the journal's counter; the sequencer
	// persists its stream WAL-first.
	b.Sequencer = engine.NewSequencer(1024, b.Journal)
	b.Feed = feed.NewDepthWorker(cfg, b.Books, b.Sequencer.Inbox(), b.Journal.SeqPtr())
	return nil
}

// StartFeed begins market-data ingestion and its journaling loop.
func (b *Bootstrap) StartFeed(ctx context.Context) {
	go b.Sequencer.Run(ctx)
	b.Feed.Connect(ctx)
	slog.Info("✅ Depth feed started", "symbols", len(b.Config.Exchange.Symbols))
}

// Submit drives one order through risk and routing. Risk rejections are
// local and free of side effects; routing outcomes are journaled.
func (b *Bootstrap) Submit(ctx context.Context, order domain.Order) (*domain.ExchangeResponse, error) {
	refPrice, err := b.referencePrice(order)
	if err != nil {
		return nil, err
	}

	if decision := b.Gate.Check(order, refPrice); !decision.Approved {
		return nil, &RiskRejectedError{Reason: decision.Reason}
	}

	resp, attempts, routeErr := b.Router.Route(ctx, order)

	status := domain.StatusRejected
	exchangeID := ""
	if routeErr == nil {
		status = resp.Status
		exchangeID = resp.ExchangeOrderID
	}
	if err := b.Journal.RecordRouted(ctx, order.ID, exchangeID, order.Symbol, status, attempts, routeErr); err != nil {
		slog.Warn("routing journal write failed", slog.Any("error", err))
	}
	if routeErr != nil {
		return nil, routeErr
	}

	// Paper fills update the tracker inside the venue; live fills are
	// applied here from the venue's response.
	if b.Config.IsLive() && resp.Status == domain.StatusFilled && resp.FilledQtySats > 0 {
		b.applyLiveFill(ctx, order, resp)
	}

	return resp, nil
}

func (b *Bootstrap) applyLiveFill(ctx context.Context, order domain.Order, resp *domain.ExchangeResponse) {
	price := resp.AvgPriceMicros

	b.fillMu.Lock()
	pnl := execution.RealizedDelta(b.Tracker, order, price)
	signed := quant.QtySats(order.Side.Sign() * int64(resp.FilledQtySats))
	b.Tracker.ApplyFill(order.Symbol, signed, price, pnl)
	b.fillMu.Unlock()

	fill := domain.Fill{
		OrderID:           order.ID,
		Symbol:            order.Symbol,
		Side:              order.Side,
		PriceMicros:       price,
		QtySats:           resp.FilledQtySats,
		RealizedPnLMicros: pnl,
		TsUnixM:           resp.TsUnixM,
	}
	if err := b.Journal.RecordFill(ctx, fill); err != nil {
		slog.Warn("fill journal write failed", slog.Any("error", err))
	}
}

// referencePrice values the order off the opposite-side touch, falling
// back to the order's own limit when the book is empty.
func (b *Bootstrap) referencePrice(order domain.Order) (quant.PriceMicros, error) {
	bk := b.Books.Get(order.Symbol)

	var touch domain.PriceLevel
	var ok bool
	if order.IsBuy() {
		touch, ok = bk.BestAsk()
	} else {
		touch, ok = bk.BestBid()
	}
	if ok {
		return touch.PriceMicros, nil
	}
	if order.Type == domain.TypeLimit && order.PriceMicros > 0 {
		return order.PriceMicros, nil
	}
	return 0, fmt.Errorf("no reference price for %s: book is empty", order.Symbol)
}

// SaveSnapshot captures exposure state and prunes old snapshot files.
func (b *Bootstrap) SaveSnapshot(ctx context.Context) error {
	seq, err := b.Journal.GetLastSeq(ctx)
	if err != nil {
		return err
	}
	snap := storage.CreateSnapshot(seq, b.Tracker)
	if err := b.Snapshots.Save(snap); err != nil {
		return err
	}
	if err := b.Journal.UpsertMetadata(ctx, "snapshot_seq", fmt.Sprintf("%d", seq), time.Now().Unix()); err != nil {
		return err
	}
	return b.Snapshots.Cleanup(5)
}

// Shutdown releases resources in reverse dependency order.
func (b *Bootstrap) Shutdown(ctx context.Context) {
	if b.Feed != nil {
		b.Feed.Disconnect()
	}
	if b.Transport != nil {
		b.Transport.Close()
	}
	if b.Journal != nil {
		if err := b.SaveSnapshot(ctx); err != nil {
			slog.Warn("final snapshot failed", slog.Any("error", err))
		}
		b.Journal.Close()
	}
	if b.unlock != nil {
		b.unlock()
	}
	slog.Info("👋 Shutdown complete")
}
