package catalog

import (
	"context"
	"strings"
	"sync"
)

// InMemoryStore is a volatile Store implementation keeping listings in
// a process local map. It is safe for concurrent access and best suited
// for tests or ephemeral demo servers. Insertion order is preserved so
// search results are deterministic.
type InMemoryStore struct {
	mu       sync.RWMutex
	listings map[string]Listing
	order    []string
}

// NewInMemoryStore constructs an empty in-memory catalog store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{listings: make(map[string]Listing)}
}

// Put inserts or replaces a listing.
func (s *InMemoryStore) Put(_ context.Context, l Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listings[l.ID]; !ok {
		s.order = append(s.order, l.ID)
	}
	s.listings[l.ID] = l
	return nil
}

// Get returns the listing with the given id or ErrNotFound.
func (s *InMemoryStore) Get(_ context.Context, id string) (Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listings[id]
	if !ok {
		return Listing{}, ErrNotFound
	}
	return l, nil
}

// Search returns listings matching the query in insertion order.
func (s *InMemoryStore) Search(_ context.Context, q Query) ([]Listing, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	text := strings.ToLower(q.Text)

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]Listing, 0, limit)
	for _, id := range s.order {
		l := s.listings[id]
		if text != "" &&
			!strings.Contains(strings.ToLower(l.Title), text) &&
			!strings.Contains(strings.ToLower(l.Description), text) {
			continue
		}
		if q.MaxPrice > 0 && l.AskingPrice > q.MaxPrice {
			continue
		}
		results = append(results, l)
		if len(results) == limit {
			break
		}
	}
	return results, nil
}
