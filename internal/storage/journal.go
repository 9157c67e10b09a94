package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"exec_go/internal/domain"
	"exec_go/internal/event"
	"exec_go/pkg/quant"
)

// Journal is the durable event log. Fills and routing outcomes land
// here before any in-memory state is considered authoritative, so a
// restart can rebuild exposure from the log plus the latest snapshot.
type Journal struct {
	db  *sql.DB
	seq uint64
}

// NewJournal opens (or creates) the SQLite log with WAL mode enabled.
func NewJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// Configure SQLite for high-rate append-mostly logging
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;", // 2MB cache
		"PRAGMA foreign_keys=ON;",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	// Metadata KV for operational markers (last snapshot seq, daily
	// pnl reset timestamp).
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY,
			type INTEGER NOT NULL,
			ts INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create events table: %w", err)
	}

	j := &Journal{db: db}
	last, err := j.GetLastSeq(context.Background())
	if err != nil {
		db.Close()
		return nil, err
	}
	j.seq = last

	return j, nil
}

// Append stores one event. The event's Seq is the primary key; callers
// who want the journal to assign it should use RecordFill or
// RecordRouted instead.
func (j *Journal) Append(ctx context.Context, ev event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = j.db.ExecContext(ctx,
		"INSERT INTO events (id, type, ts, payload) VALUES (?, ?, ?, ?)",
		ev.GetSeq(), ev.GetType(), ev.GetTs(), payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	return nil
}

// RecordFill journals an execution. Satisfies the transport layer's
// fill recorder contract.
func (j *Journal) RecordFill(ctx context.Context, fill domain.Fill) error {
	return j.Append(ctx, event.FillEvent{
		BaseEvent: event.BaseEvent{
			Seq: quant.NextSeq(&j.seq),
			Ts:  fill.TsUnixM,
		},
		OrderID:           fill.OrderID,
		Symbol:            fill.Symbol,
		Side:              string(fill.Side),
		PriceMicros:       fill.PriceMicros,
		QtySats:           fill.QtySats,
		RealizedPnLMicros: fill.RealizedPnLMicros,
	})
}

// RecordRouted journals a dispatch outcome, success or terminal failure.
func (j *Journal) RecordRouted(ctx context.Context, orderID, exchangeOrderID, symbol, status string, attempts int, routeErr error) error {
	ev := event.OrderRoutedEvent{
		BaseEvent: event.BaseEvent{
			Seq: quant.NextSeq(&j.seq),
			Ts:  quant.TimeStamp(time.Now().UnixMicro()),
		},
		OrderID:         orderID,
		ExchangeOrderID: exchangeOrderID,
		Symbol:          symbol,
		Status:          status,
		Attempts:        attempts,
	}
	if routeErr != nil {
		ev.Error = routeErr.Error()
	}
	return j.Append(ctx, ev)
}

// SeqPtr exposes the shared sequence counter so feed workers assign
// ids from the same series as directly journaled events. Increment only
// through quant.NextSeq.
func (j *Journal) SeqPtr() *uint64 {
	return &j.seq
}

// UpsertMetadata saves a key-value pair to the metadata table.
func (j *Journal) UpsertMetadata(ctx context.Context, key, value string, ts int64) error {
	_, err := j.db.ExecContext(ctx,
		"INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		key, value, ts,
	)
	return err
}

// GetMetadata retrieves a value from the metadata table.
// Returns "" when the key is absent.
func (j *Journal) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := j.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// GetLastSeq returns the highest event sequence number in the log.
// Returns 0 if no events exist.
func (j *Journal) GetLastSeq(ctx context.Context) (uint64, error) {
	var lastSeq sql.NullInt64
	err := j.db.QueryRowContext(ctx, "SELECT MAX(id) FROM events").Scan(&lastSeq)
	if err != nil {
		return 0, fmt.Errorf("failed to get last seq: %w", err)
	}
	if !lastSeq.Valid {
		return 0, nil // No events yet
	}
	return uint64(lastSeq.Int64), nil
}

// LoadFills loads all fill events from fromSeq (inclusive), in order.
// Used at startup to rebuild exposure past the latest snapshot.
func (j *Journal) LoadFills(ctx context.Context, fromSeq uint64) ([]event.FillEvent, error) {
	rows, err := j.db.QueryContext(ctx,
		"SELECT id, payload FROM events WHERE id >= ? AND type = ? ORDER BY id ASC",
		fromSeq, event.EvFill,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query fills: %w", err)
	}
	defer rows.Close()

	var fills []event.FillEvent
	for rows.Next() {
		var id int64
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan fill: %w", err)
		}

		var ev event.FillEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("failed to unmarshal fill %d: %w", id, err)
		}
		fills = append(fills, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return fills, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}
