package book

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"exec_go/internal/domain"
	"exec_go/pkg/quant"
)

// Book is the aggregated price-level ladder for a single symbol.
// One market-data writer mutates it; many readers snapshot it.
// Every mutation bumps the per-symbol sequence number so consumers
// have a logical clock to detect staleness.
type Book struct {
	symbol    string
	maxLevels int // Per-side storage cap. <=0 means unbounded.

	mu   sync.RWMutex
	bids []domain.PriceLevel // Descending price.
	asks []domain.PriceLevel // Ascending price.
	seq  uint64
}

// New creates an empty book for symbol, storing at most maxLevels per side.
func New(symbol string, maxLevels int) *Book {
	return &Book{symbol: symbol, maxLevels: maxLevels}
}

// Upsert inserts, updates, or (qty=0) removes a level. O(log n) lookup.
// Removing an absent level is a no-op and does not advance the sequence.
func (b *Book) Upsert(side domain.Side, price quant.PriceMicros, qty quant.QtySats) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var ladder *[]domain.PriceLevel
	if side == domain.SideBuy {
		ladder = &b.bids
	} else {
		ladder = &b.asks
	}

	idx, found := b.search(*ladder, side, price)

	switch {
	case found && qty == 0:
		*ladder = append((*ladder)[:idx], (*ladder)[idx+1:]...)
	case found:
		(*ladder)[idx].QtySats = qty
	case qty == 0:
		return // Idempotent removal; book state unchanged.
	default:
		lvl := domain.PriceLevel{PriceMicros: price, QtySats: qty}
		*ladder = append(*ladder, domain.PriceLevel{})
		copy((*ladder)[idx+1:], (*ladder)[idx:])
		(*ladder)[idx] = lvl
		if b.maxLevels > 0 && len(*ladder) > b.maxLevels {
			// Evict farthest from touch: the tail on either side.
			*ladder = (*ladder)[:b.maxLevels]
		}
	}

	b.seq++

	if b.crossedLocked() {
		// Data-integrity condition: surfaced, never silently corrected.
		slog.Warn("crossed book detected",
			slog.String("symbol", b.symbol),
			slog.Int64("best_bid", int64(b.bids[0].PriceMicros)),
			slog.Int64("best_ask", int64(b.asks[0].PriceMicros)),
			slog.Uint64("seq", b.seq))
	}
}

// search returns the ladder index for price and whether it already exists.
// Bids are kept descending, asks ascending.
func (b *Book) search(ladder []domain.PriceLevel, side domain.Side, price quant.PriceMicros) (int, bool) {
	var idx int
	if side == domain.SideBuy {
		idx = sort.Search(len(ladder), func(i int) bool { return ladder[i].PriceMicros <= price })
	} else {
		idx = sort.Search(len(ladder), func(i int) bool { return ladder[i].PriceMicros >= price })
	}
	if idx < len(ladder) && ladder[idx].PriceMicros == price {
		return idx, true
	}
	return idx, false
}

// BestBid returns the highest bid level.
func (b *Book) BestBid() (domain.PriceLevel, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.bids) == 0 {
		return domain.PriceLevel{}, false
	}
	return b.bids[0], true
}

// BestAsk returns the lowest ask level.
func (b *Book) BestAsk() (domain.PriceLevel, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.asks) == 0 {
		return domain.PriceLevel{}, false
	}
	return b.asks[0], true
}

// MidMicros returns the midpoint of the touch.
func (b *Book) MidMicros() (quant.PriceMicros, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.bids) == 0 || len(b.asks) == 0 {
		return 0, false
	}
	return (b.bids[0].PriceMicros + b.asks[0].PriceMicros) / 2, true
}

// SpreadBps returns the bid/ask spread relative to the midpoint.
func (b *Book) SpreadBps() (quant.Bps, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.bids) == 0 || len(b.asks) == 0 {
		return 0, false
	}
	mid := (b.bids[0].PriceMicros + b.asks[0].PriceMicros) / 2
	return quant.RatioBps(b.asks[0].PriceMicros, mid) + quant.RatioBps(b.bids[0].PriceMicros, mid), true
}

// Depth sums resting quantity across the top n levels of each side.
func (b *Book) Depth(n int) (bidQty, askQty quant.QtySats) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return sumQty(b.bids, n), sumQty(b.asks, n)
}

// Imbalance returns (bidDepth-askDepth)/(bidDepth+askDepth) over the top n
// levels, in [-1, 1]. Zero when both sides are empty.
func (b *Book) Imbalance(n int) float64 {
	bid, ask := b.Depth(n)
	total := int64(bid) + int64(ask)
	if total == 0 {
		return 0
	}
	return float64(int64(bid)-int64(ask)) / float64(total)
}

// Crossed reports whether the best bid currently exceeds the best ask.
func (b *Book) Crossed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.crossedLocked()
}

func (b *Book) crossedLocked() bool {
	return len(b.bids) > 0 && len(b.asks) > 0 && b.bids[0].PriceMicros > b.asks[0].PriceMicros
}

// Seq returns the per-symbol mutation counter.
func (b *Book) Seq() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.seq
}

// Snapshot copies up to maxLevels per side into an immutable snapshot.
// maxLevels <= 0 copies everything stored.
func (b *Book) Snapshot(maxLevels int) *domain.OrderBookSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return &domain.OrderBookSnapshot{
		Symbol:  b.symbol,
		Bids:    copyLevels(b.bids, maxLevels),
		Asks:    copyLevels(b.asks, maxLevels),
		Seq:     b.seq,
		TsUnixM: quant.TimeStamp(time.Now().UnixMicro()),
	}
}

func sumQty(ladder []domain.PriceLevel, n int) quant.QtySats {
	if n > len(ladder) || n <= 0 {
		n = len(ladder)
	}
	var total quant.QtySats
	for i := 0; i < n; i++ {
		total += ladder[i].QtySats
	}
	return total
}

func copyLevels(ladder []domain.PriceLevel, max int) []domain.PriceLevel {
	n := len(ladder)
	if max > 0 && max < n {
		n = max
	}
	out := make([]domain.PriceLevel, n)
	copy(out, ladder[:n])
	return out
}
