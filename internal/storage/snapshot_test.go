package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"exec_go/internal/domain"
	"exec_go/internal/exposure"
)

func TestSnapshot_SaveAndLoad(t *testing.T) {
	sm := NewSnapshotManager(t.TempDir())

	tracker := exposure.NewTracker()
	tracker.ApplyFill("BTCUSDT", 1_00000000, 100000000, 0)

	snap := CreateSnapshot(100, tracker)
	if err := sm.Save(snap); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := sm.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("Expected snapshot, got nil")
	}
	if loaded.Seq != 100 {
		t.Errorf("seq = %d, want 100", loaded.Seq)
	}
	pos := loaded.Positions["BTCUSDT"]
	if pos == nil || pos.QtySats != 1_00000000 {
		t.Errorf("position = %+v, want long 1", pos)
	}
	if loaded.Aggregate.OpenPositions != 1 {
		t.Errorf("aggregate open = %d, want 1", loaded.Aggregate.OpenPositions)
	}
}

func TestSnapshot_LoadLatestPicksHighestSeq(t *testing.T) {
	sm := NewSnapshotManager(t.TempDir())

	for _, seq := range []uint64{10, 50, 30} {
		snap := &Snapshot{
			Seq:       seq,
			TsUnix:    time.Now().Unix() + int64(seq),
			Positions: map[string]*domain.Position{},
		}
		if err := sm.Save(snap); err != nil {
			t.Fatalf("Save seq %d failed: %v", seq, err)
		}
	}

	loaded, err := sm.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if loaded.Seq != 50 {
		t.Errorf("seq = %d, want 50", loaded.Seq)
	}
}

func TestSnapshot_LoadLatestEmptyDir(t *testing.T) {
	sm := NewSnapshotManager(filepath.Join(t.TempDir(), "missing"))

	loaded, err := sm.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if loaded != nil {
		t.Errorf("expected nil snapshot, got seq %d", loaded.Seq)
	}
}

func TestSnapshot_Cleanup(t *testing.T) {
	sm := NewSnapshotManager(t.TempDir())

	for _, seq := range []uint64{1, 2, 3, 4, 5} {
		snap := &Snapshot{Seq: seq, TsUnix: int64(seq), Positions: map[string]*domain.Position{}}
		if err := sm.Save(snap); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	if err := sm.Cleanup(2); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	loaded, err := sm.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if loaded.Seq != 5 {
		t.Errorf("latest after cleanup = %d, want 5", loaded.Seq)
	}
}

func TestRestoreTracker_SnapshotPlusReplay(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	j, err := NewJournal(filepath.Join(dir, "events.db"))
	if err != nil {
		t.Fatalf("NewJournal failed: %v", err)
	}
	defer j.Close()
	sm := NewSnapshotManager(filepath.Join(dir, "snapshots"))

	// Live session: two fills, snapshot after the first.
	live := exposure.NewTracker()
	live.ApplyFill("BTCUSDT", 1_00000000, 100000000, 0)
	if err := j.RecordFill(ctx, testFill("ord-1", domain.SideBuy, 100000000, 1_00000000)); err != nil {
		t.Fatalf("RecordFill failed: %v", err)
	}
	if err := sm.Save(CreateSnapshot(1, live)); err != nil {
		t.Fatalf("snapshot save failed: %v", err)
	}
	if err := j.RecordFill(ctx, testFill("ord-2", domain.SideBuy, 102000000, 1_00000000)); err != nil {
		t.Fatalf("RecordFill failed: %v", err)
	}

	// Restart: fresh tracker rebuilt from snapshot plus replay.
	restored := exposure.NewTracker()
	lastSeq, err := RestoreTracker(ctx, j, sm, restored)
	if err != nil {
		t.Fatalf("RestoreTracker failed: %v", err)
	}
	if lastSeq != 2 {
		t.Errorf("last seq = %d, want 2", lastSeq)
	}

	pos, ok := restored.Position("BTCUSDT")
	if !ok {
		t.Fatal("position missing after restore")
	}
	if pos.QtySats != 2_00000000 {
		t.Errorf("qty = %d, want 2", pos.QtySats)
	}
	if pos.AvgEntryPriceMicros != 101000000 {
		t.Errorf("avg entry = %d, want 101000000", pos.AvgEntryPriceMicros)
	}
}
