package feed

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"exec_go/internal/book"
	"exec_go/internal/domain"
	"exec_go/internal/event"
	"exec_go/internal/infra"
	"exec_go/pkg/quant"
)

// DepthWorker maintains the price-level books from the venue's depth
// channel. It is the single writer for every book it owns.
type DepthWorker struct {
	base    *Worker
	url     string
	symbols []string
	books   *book.Set
	inbox   chan<- event.Event
	seq     *uint64
}

// NewDepthWorker wires the depth stream into the book set. inbox is
// optional; when set, each level mutation is also published as an event
// (dropped, not blocked on, when the channel is full).
func NewDepthWorker(cfg *infra.Config, books *book.Set, inbox chan<- event.Event, seq *uint64) *DepthWorker {
	w := &DepthWorker{
		url:     cfg.Exchange.FeedURL,
		symbols: cfg.Exchange.Symbols,
		books:   books,
		inbox:   inbox,
		seq:     seq,
	}
	w.base = NewWorker(w, cfg.RetryPolicy())
	return w
}

func (w *DepthWorker) ID() string     { return "DEPTH" }
func (w *DepthWorker) GetURL() string { return w.url }

// Connect starts the reconnecting stream.
func (w *DepthWorker) Connect(ctx context.Context) {
	w.base.Start(ctx)
}

// Disconnect stops the stream.
func (w *DepthWorker) Disconnect() {
	w.base.Stop()
}

type subscribeArg struct {
	Channel string `json:"channel"`
	InstId  string `json:"instId"`
}

type subscribeRequest struct {
	Op   string         `json:"op"`
	Args []subscribeArg `json:"args"`
}

// depthResponse is one depth push. Levels are [price, qty] string
// pairs; a zero qty removes the level.
type depthResponse struct {
	Arg  subscribeArg `json:"arg"`
	Ts   int64        `json:"ts"`
	Data []struct {
		Bids [][2]string `json:"bids"`
		Asks [][2]string `json:"asks"`
	} `json:"data"`
}

func (w *DepthWorker) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	args := make([]subscribeArg, 0, len(w.symbols))
	for _, sym := range w.symbols {
		args = append(args, subscribeArg{Channel: "books", InstId: sym})
	}
	req := subscribeRequest{Op: "subscribe", Args: args}
	b, _ := json.Marshal(req)
	return w.base.Write(websocket.TextMessage, b)
}

func (w *DepthWorker) OnMessage(ctx context.Context, msg []byte) {
	if string(msg) == "pong" {
		return
	}

	var resp depthResponse
	if err := json.Unmarshal(msg, &resp); err != nil {
		return
	}
	if resp.Arg.Channel != "books" || len(resp.Data) == 0 {
		return
	}

	w.Apply(resp.Arg.InstId, resp)
}

// Apply folds one depth push into the symbol's book.
func (w *DepthWorker) Apply(symbol string, resp depthResponse) {
	b := w.books.Get(symbol)
	ts := quant.TimeStamp(resp.Ts * 1000) // Venue sends millis.

	for _, data := range resp.Data {
		for _, lvl := range data.Bids {
			w.applyLevel(b, symbol, domain.SideBuy, lvl, ts)
		}
		for _, lvl := range data.Asks {
			w.applyLevel(b, symbol, domain.SideSell, lvl, ts)
		}
	}

	// A crossed book is a venue data fault. Surface it; never repair it.
	if b.Crossed() {
		slog.Warn("CROSSED_BOOK_DETECTED", "symbol", symbol, "seq", b.Seq())
	}
}

func (w *DepthWorker) applyLevel(b *book.Book, symbol string, side domain.Side, lvl [2]string, ts quant.TimeStamp) {
	price, err := decimal.NewFromString(lvl[0])
	if err != nil {
		slog.Warn("bad depth price", "symbol", symbol, "raw", lvl[0])
		return
	}
	qty, err := decimal.NewFromString(lvl[1])
	if err != nil {
		slog.Warn("bad depth qty", "symbol", symbol, "raw", lvl[1])
		return
	}

	priceMicros := quant.PriceMicros(price.Shift(6).IntPart())
	qtySats := quant.QtySats(qty.Shift(8).IntPart())

	b.Upsert(side, priceMicros, qtySats)

	if w.inbox == nil {
		return
	}
	ev := event.AcquireBookUpdateEvent()
	ev.Seq = quant.NextSeq(w.seq)
	ev.Ts = ts
	ev.Symbol = symbol
	ev.Side = string(side)
	ev.PriceMicros = priceMicros
	ev.QtySats = qtySats

	select {
	case w.inbox <- ev:
	default:
		event.ReleaseBookUpdateEvent(ev)
	}
}

func (w *DepthWorker) OnPing(ctx context.Context, conn *websocket.Conn) error {
	return w.base.Write(websocket.TextMessage, []byte("ping"))
}
