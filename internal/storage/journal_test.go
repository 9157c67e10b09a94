package storage

import (
	"context"
	"path/filepath"
	"testing"

	"exec_go/internal/domain"
	"exec_go/internal/event"
	"exec_go/pkg/quant"
)

func testJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := NewJournal(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("Failed to create journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func testFill(orderID string, side domain.Side, price quant.PriceMicros, qty quant.QtySats) domain.Fill {
	return domain.Fill{
		OrderID:     orderID,
		Symbol:      "BTCUSDT",
		Side:        side,
		PriceMicros: price,
		QtySats:     qty,
		TsUnixM:     quant.TimeStamp(1000),
	}
}

func TestJournal_RecordAndLoadFills(t *testing.T) {
	j := testJournal(t)
	ctx := context.Background()

	if err := j.RecordFill(ctx, testFill("ord-1", domain.SideBuy, 100010000, 1_00000000)); err != nil {
		t.Fatalf("RecordFill failed: %v", err)
	}
	if err := j.RecordFill(ctx, testFill("ord-2", domain.SideSell, 100020000, 50000000)); err != nil {
		t.Fatalf("RecordFill failed: %v", err)
	}

	fills, err := j.LoadFills(ctx, 0)
	if err != nil {
		t.Fatalf("LoadFills failed: %v", err)
	}
	if len(fills) != 2 {
		t.Fatalf("Expected 2 fills, got %d", len(fills))
	}
	if fills[0].OrderID != "ord-1" || fills[1].OrderID != "ord-2" {
		t.Errorf("fills out of order: %s, %s", fills[0].OrderID, fills[1].OrderID)
	}
	if fills[0].Seq >= fills[1].Seq {
		t.Errorf("sequence not increasing: %d, %d", fills[0].Seq, fills[1].Seq)
	}
	if fills[1].PriceMicros != 100020000 {
		t.Errorf("price = %d, want 100020000", fills[1].PriceMicros)
	}
}

func TestJournal_LoadFillsSkipsOtherTypes(t *testing.T) {
	j := testJournal(t)
	ctx := context.Background()

	if err := j.RecordFill(ctx, testFill("ord-1", domain.SideBuy, 100010000, 1_00000000)); err != nil {
		t.Fatalf("RecordFill failed: %v", err)
	}
	if err := j.RecordRouted(ctx, "ord-2", "EX-2", "BTCUSDT", domain.StatusAccepted, 1, nil); err != nil {
		t.Fatalf("RecordRouted failed: %v", err)
	}

	fills, err := j.LoadFills(ctx, 0)
	if err != nil {
		t.Fatalf("LoadFills failed: %v", err)
	}
	if len(fills) != 1 {
		t.Fatalf("Expected 1 fill, got %d", len(fills))
	}
}

func TestJournal_SeqResumesAfterReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.db")
	ctx := context.Background()

	j, err := NewJournal(path)
	if err != nil {
		t.Fatalf("Failed to create journal: %v", err)
	}
	if err := j.RecordFill(ctx, testFill("ord-1", domain.SideBuy, 100010000, 1_00000000)); err != nil {
		t.Fatalf("RecordFill failed: %v", err)
	}
	j.Close()

	j2, err := NewJournal(path)
	if err != nil {
		t.Fatalf("Failed to reopen journal: %v", err)
	}
	defer j2.Close()

	if err := j2.RecordFill(ctx, testFill("ord-2", domain.SideBuy, 100010000, 1_00000000)); err != nil {
		t.Fatalf("RecordFill after reopen failed: %v", err)
	}

	last, err := j2.GetLastSeq(ctx)
	if err != nil {
		t.Fatalf("GetLastSeq failed: %v", err)
	}
	if last != 2 {
		t.Errorf("last seq = %d, want 2", last)
	}
}

func TestJournal_Metadata(t *testing.T) {
	j := testJournal(t)
	ctx := context.Background()

	if err := j.UpsertMetadata(ctx, "snapshot_seq", "42", 1000); err != nil {
		t.Fatalf("UpsertMetadata failed: %v", err)
	}
	if err := j.UpsertMetadata(ctx, "snapshot_seq", "43", 2000); err != nil {
		t.Fatalf("UpsertMetadata update failed: %v", err)
	}

	v, err := j.GetMetadata(ctx, "snapshot_seq")
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}
	if v != "43" {
		t.Errorf("value = %s, want 43", v)
	}

	missing, err := j.GetMetadata(ctx, "nope")
	if err != nil {
		t.Fatalf("GetMetadata missing key failed: %v", err)
	}
	if missing != "" {
		t.Errorf("missing key = %q, want empty", missing)
	}
}

func TestJournal_AppendDirectEvent(t *testing.T) {
	j := testJournal(t)
	ctx := context.Background()

	ev := event.BookUpdateEvent{
		BaseEvent:   event.BaseEvent{Seq: 1, Ts: quant.TimeStamp(1000)},
		Symbol:      "BTCUSDT",
		Side:        string(domain.SideBuy),
		PriceMicros: 100000000,
		QtySats:     1_00000000,
	}
	if err := j.Append(ctx, ev); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	last, err := j.GetLastSeq(ctx)
	if err != nil {
		t.Fatalf("GetLastSeq failed: %v", err)
	}
	if last != 1 {
		t.Errorf("last seq = %d, want 1", last)
	}
}
