package storage

import (
	"context"
	"fmt"
	"log/slog"

	"exec_go/internal/domain"
	"exec_go/internal/exposure"
	"exec_go/pkg/quant"
)

// RestoreTracker rebuilds exposure state: latest snapshot first, then
// every journaled fill past the snapshot's sequence. Returns the last
// sequence applied.
func RestoreTracker(ctx context.Context, journal *Journal, snapshots *SnapshotManager, tracker *exposure.Tracker) (uint64, error) {
	var fromSeq uint64

	snap, err := snapshots.LoadLatest()
	if err != nil {
		return 0, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if snap != nil {
		tracker.Restore(snap.Positions, snap.Aggregate)
		fromSeq = snap.Seq + 1
	}

	fills, err := journal.LoadFills(ctx, fromSeq)
	if err != nil {
		return 0, fmt.Errorf("failed to load fills: %w", err)
	}

	var lastSeq uint64
	if snap != nil {
		lastSeq = snap.Seq
	}
	for _, fill := range fills {
		signed := quant.QtySats(domain.Side(fill.Side).Sign() * int64(fill.QtySats))
		tracker.ApplyFill(fill.Symbol, signed, fill.PriceMicros, fill.RealizedPnLMicros)
		lastSeq = fill.Seq
	}

	slog.Info("exposure state restored",
		slog.Uint64("last_seq", lastSeq),
		slog.Int("replayed_fills", len(fills)),
		slog.Bool("from_snapshot", snap != nil))

	return lastSeq, nil
}
