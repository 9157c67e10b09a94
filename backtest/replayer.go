package backtest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "github.com/glebarez/go-sqlite"

	"exec_go/internal/book"
	"exec_go/internal/domain"
	"exec_go/internal/event"
	"exec_go/internal/exposure"
	"exec_go/pkg/quant"
)

// Replayer reads the journal and rebuilds books and exposure by folding
// every event back through the same apply paths the live system uses.
// Deterministic: two replays of the same journal produce identical state.
type Replayer struct {
	db *sql.DB
}

// NewReplayer opens the journal database read-only for replay.
func NewReplayer(dbPath string) (*Replayer, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	return &Replayer{db: db}, nil
}

// Close releases the database handle.
func (r *Replayer) Close() error {
	return r.db.Close()
}

// RunReplay folds all journaled events into the provided books and
// tracker, in id order. Returns the number of events applied.
func (r *Replayer) RunReplay(ctx context.Context, books *book.Set, tracker *exposure.Tracker) (int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, type, payload FROM events ORDER BY id ASC")
	if err != nil {
		return 0, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	applied := 0
	for rows.Next() {
		var id uint64
		var typ event.Type
		var payload []byte

		if err := rows.Scan(&id, &typ, &payload); err != nil {
			return applied, err
		}

		switch typ {
		case event.EvBookUpdate:
			var ev event.BookUpdateEvent
			if err := json.Unmarshal(payload, &ev); err != nil {
				return applied, err
			}
			books.Get(ev.Symbol).Upsert(domain.Side(ev.Side), ev.PriceMicros, ev.QtySats)

		case event.EvFill:
			var ev event.FillEvent
			if err := json.Unmarshal(payload, &ev); err != nil {
				return applied, err
			}
			signed := quant.QtySats(domain.Side(ev.Side).Sign() * int64(ev.QtySats))
			tracker.ApplyFill(ev.Symbol, signed, ev.PriceMicros, ev.RealizedPnLMicros)

		case event.EvOrderRouted:
			// Routing outcomes carry no state to rebuild.

		default:
			slog.Warn("Unknown event type in journal", slog.Any("type", typ))
			continue
		}

		applied++
	}

	return applied, rows.Err()
}
