// Package memory holds the in-process authoritative order store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xenking/topup-reconciler/internal/domain/order"
)

var _ order.Store = (*OrderStore)(nil)

// OrderStore is the authoritative in-memory order collection. Reads hand out
// copies; writes replace whole records keyed by id, so concurrent readers
// never observe a partially written order.
type OrderStore struct {
	mu     sync.RWMutex
	orders map[string]order.Order
}

// NewOrderStore builds an empty store.
func NewOrderStore() *OrderStore {
	return &OrderStore{orders: make(map[string]order.Order)}
}

// List implements order.Store. Results are newest first, ties broken by id
// for a stable listing.
func (s *OrderStore) List(_ context.Context, f order.Filter) ([]order.Order, error) {
	s.mu.RLock()
	out := make([]order.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if f.Match(&o) {
			out = append(out, o)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetByID implements order.Store.
func (s *OrderStore) GetByID(_ context.Context, id string) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return &o, nil
}

// Upsert implements order.Store.
func (s *OrderStore) Upsert(_ context.Context, o order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[o.ID] = o
	return nil
}

// Len returns the number of stored orders.
func (s *OrderStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}
