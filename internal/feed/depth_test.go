package feed

import (
	"context"
	"testing"

	"exec_go/internal/book"
	"exec_go/internal/event"
	"exec_go/internal/infra"
)

func testDepthWorker(inbox chan<- event.Event, seq *uint64) (*DepthWorker, *book.Set) {
	cfg := &infra.Config{}
	cfg.Exchange.FeedURL = "wss://feed.exchange.test/ws"
	cfg.Exchange.Symbols = []string{"BTCUSDT"}

	books := book.NewSet(0)
	return NewDepthWorker(cfg, books, inbox, seq), books
}

func TestDepth_OnMessageUpdatesBook(t *testing.T) {
	w, books := testDepthWorker(nil, nil)

	msg := []byte(`{"arg":{"channel":"books","instId":"BTCUSDT"},"ts":1690000000000,` +
		`"data":[{"bids":[["100.00","1.5"]],"asks":[["100.01","2.0"],["100.02","0.5"]]}]}`)
	w.OnMessage(context.Background(), msg)

	b := books.Get("BTCUSDT")
	bid, ok := b.BestBid()
	if !ok || bid.PriceMicros != 100000000 || bid.QtySats != 1_50000000 {
		t.Errorf("best bid = %+v, want 100.00 x 1.5", bid)
	}
	ask, ok := b.BestAsk()
	if !ok || ask.PriceMicros != 100010000 {
		t.Errorf("best ask = %+v, want 100.01", ask)
	}
}

func TestDepth_ZeroQtyRemovesLevel(t *testing.T) {
	w, books := testDepthWorker(nil, nil)

	w.OnMessage(context.Background(), []byte(`{"arg":{"channel":"books","instId":"BTCUSDT"},"ts":1,`+
		`"data":[{"bids":[["100.00","1.5"]],"asks":[]}]}`))
	w.OnMessage(context.Background(), []byte(`{"arg":{"channel":"books","instId":"BTCUSDT"},"ts":2,`+
		`"data":[{"bids":[["100.00","0"]],"asks":[]}]}`))

	if _, ok := books.Get("BTCUSDT").BestBid(); ok {
		t.Error("level should be removed on zero qty")
	}
}

func TestDepth_MalformedPayloadIgnored(t *testing.T) {
	w, books := testDepthWorker(nil, nil)

	w.OnMessage(context.Background(), []byte(`pong`))
	w.OnMessage(context.Background(), []byte(`{not json`))
	w.OnMessage(context.Background(), []byte(`{"arg":{"channel":"ticker","instId":"BTCUSDT"},"data":[]}`))
	w.OnMessage(context.Background(), []byte(`{"arg":{"channel":"books","instId":"BTCUSDT"},"ts":1,`+
		`"data":[{"bids":[["garbage","1.0"]],"asks":[]}]}`))

	if _, ok := books.Get("BTCUSDT").BestBid(); ok {
		t.Error("malformed payloads must not mutate the book")
	}
}

func TestDepth_PublishesEvents(t *testing.T) {
	inbox := make(chan event.Event, 4)
	var seq uint64
	w, _ := testDepthWorker(inbox, &seq)

	w.OnMessage(context.Background(), []byte(`{"arg":{"channel":"books","instId":"BTCUSDT"},"ts":1690000000000,`+
		`"data":[{"bids":[["100.00","1.5"]],"asks":[["100.01","2.0"]]}]}`))

	if len(inbox) != 2 {
		t.Fatalf("events = %d, want 2", len(inbox))
	}
	ev := (<-inbox).(*event.BookUpdateEvent)
	if ev.Symbol != "BTCUSDT" || ev.PriceMicros != 100000000 {
		t.Errorf("event = %+v, want bid 100.00", ev)
	}
	if ev.Seq == 0 {
		t.Error("event seq should be assigned")
	}
}

func TestDepth_FullInboxDropsNotBlocks(t *testing.T) {
	inbox := make(chan event.Event) // unbuffered, nobody reading
	var seq uint64
	w, books := testDepthWorker(inbox, &seq)

	w.OnMessage(context.Background(), []byte(`{"arg":{"channel":"books","instId":"BTCUSDT"},"ts":1,`+
		`"data":[{"bids":[["100.00","1.5"]],"asks":[]}]}`))

	// The book still updated even though the event was dropped.
	if _, ok := books.Get("BTCUSDT").BestBid(); !ok {
		t.Error("book update must not depend on event delivery")
	}
}
