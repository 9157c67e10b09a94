package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"exec_go/internal/event"
	"exec_go/internal/storage"
)

// Sequencer is the single-threaded consumer of the feed's event stream.
// It journals events WAL-first and returns pooled events after they are
// persisted. Exactly one goroutine may run the loop.
type Sequencer struct {
	inbox   chan event.Event
	nextSeq uint64
	journal *storage.Journal

	processed atomic.Uint64
	gaps      atomic.Uint64
}

// NewSequencer creates a sequencer draining inboxSize-buffered events
// into the journal. journal may be nil for a journaling-free run.
func NewSequencer(inboxSize int, journal *storage.Journal) *Sequencer {
	s := &Sequencer{
		inbox:   make(chan event.Event, inboxSize),
		nextSeq: 1,
		journal: journal,
	}
	if journal != nil {
		if last, err := journal.GetLastSeq(context.Background()); err == nil {
			s.nextSeq = last + 1
		}
	}
	return s
}

// Inbox returns the event channel. Feed workers send events here.
func (s *Sequencer) Inbox() chan<- event.Event {
	return s.inbox
}

// Run starts the main event loop. This MUST be run in a single goroutine.
func (s *Sequencer) Run(ctx context.Context) {
	slog.Info("Sequencer started (Single-Thread Hotpath)")

	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			s.DumpState("panic_dump.json")
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Sequencer stopping...")
			return
		case ev := <-s.inbox:
			s.processEvent(ev)
		}
	}
}

// validateSequence enforces per-source ordering. Duplicates are dropped.
// Forward gaps are expected: feed workers drop events rather than block
// when the inbox is full, so the sequence fast-forwards with a warn.
func (s *Sequencer) validateSequence(evSeq uint64) bool {
	expected := s.nextSeq
	if evSeq == expected {
		return true
	}

	if evSeq < expected {
		slog.Warn("SEQUENCE_DUPLICATE_IGNORED", slog.Uint64("expected", expected), slog.Uint64("got", evSeq))
		return false
	}

	// Small gaps are routine: fills and routing outcomes are journaled
	// directly off the same counter, and overloaded feed workers drop
	// events instead of blocking. Large gaps deserve attention.
	gap := evSeq - expected
	s.gaps.Add(1)
	if gap > 10 {
		slog.Warn("SEQUENCE_GAP_TOLERATED",
			slog.Uint64("expected", expected),
			slog.Uint64("got", evSeq),
			slog.Uint64("gap", gap))
	}
	s.nextSeq = evSeq
	return true
}

func (s *Sequencer) processEvent(ev event.Event) {
	if !s.validateSequence(ev.GetSeq()) {
		s.release(ev)
		return
	}

	// WAL-first: nothing is acted on before it is durable.
	if s.journal != nil {
		if err := s.journal.Append(context.Background(), ev); err != nil {
			panic(fmt.Sprintf("PERSISTENCE_FAILURE: %v", err))
		}
	}

	s.processed.Add(1)
	s.nextSeq++
	s.release(ev)
}

// release returns pooled events once the journal owns them.
func (s *Sequencer) release(ev event.Event) {
	if bu, ok := ev.(*event.BookUpdateEvent); ok {
		event.ReleaseBookUpdateEvent(bu)
	}
}

// Stats reports processed and gap counters for health checks.
func (s *Sequencer) Stats() (processed, gaps uint64) {
	return s.processed.Load(), s.gaps.Load()
}

// DumpState writes the loop's counters to a file (for post-mortem).
func (s *Sequencer) DumpState(filename string) {
	slog.Info("Dumping internal state...", slog.String("file", filename))

	data := struct {
		NextSeq   uint64 `json:"next_seq"`
		Processed uint64 `json:"processed"`
		Gaps      uint64 `json:"gaps"`
	}{
		NextSeq:   s.nextSeq,
		Processed: s.processed.Load(),
		Gaps:      s.gaps.Load(),
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	if err := os.WriteFile(filename, b, 0644); err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
