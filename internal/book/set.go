package book

import "sync"

// Set is a registry of per-symbol books sharing one storage cap.
type Set struct {
	mu        sync.RWMutex
	books     map[string]*Book
	maxLevels int
}

// NewSet creates an empty registry; books are created lazily on first access.
func NewSet(maxLevels int) *Set {
	return &Set{
		books:     make(map[string]*Book),
		maxLevels: maxLevels,
	}
}

// Get returns the book for symbol, creating it if needed.
func (s *Set) Get(symbol string) *Book {
	s.mu.RLock()
	b, ok := s.books[symbol]
	s.mu.RUnlock()
	if ok {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.books[symbol]; ok {
		return b
	}
	b = New(symbol, s.maxLevels)
	s.books[symbol] = b
	return b
}

// Symbols lists the symbols with a live book.
func (s *Set) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.books))
	for sym := range s.books {
		out = append(out, sym)
	}
	return out
}
