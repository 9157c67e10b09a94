package event

import "sync"

// Book updates arrive at feed rate, orders of magnitude above fills.
// Pooling them keeps the ingestion path allocation-free.
var bookUpdatePool = sync.Pool{
	New: func() any { return &BookUpdateEvent{} },
}

// AcquireBookUpdateEvent takes a zeroed event from the pool.
func AcquireBookUpdateEvent() *BookUpdateEvent {
	return bookUpdatePool.Get().(*BookUpdateEvent)
}

// ReleaseBookUpdateEvent resets the event and returns it to the pool.
// The caller must not touch the event afterwards.
func ReleaseBookUpdateEvent(ev *BookUpdateEvent) {
	*ev = BookUpdateEvent{}
	bookUpdatePool.Put(ev)
}
