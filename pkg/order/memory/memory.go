// Package memory implements an in-memory order repository.
package memory

import (
	"context"
	"fmt"
	"sync"

	"coffeeshop/pkg/order"
)

// Repository provides an in-memory implementation of order.Repository.
type Repository struct {
	mu        sync.RWMutex
	orders    map[string]order.Order
	bySession map[string][]string
}

// New creates a new in-memory repository.
func New() *Repository {
	return &Repository{
		orders:    make(map[string]order.Order),
		bySession: make(map[string][]string),
	}
}

// Create stores the order. Ids are never reused.
func (r *Repository) Create(ctx context.Context, o order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.ID]; ok {
		return fmt.Errorf("order %s already exists", o.ID)
	}
	r.orders[o.ID] = o.Clone()
	r.bySession[o.SessionID] = append(r.bySession[o.SessionID], o.ID)
	return nil
}

// Get retrieves an order by ID.
func (r *Repository) Get(ctx context.Context, id string) (order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return order.Order{}, order.ErrNotFound
	}
	return o.Clone(), nil
}

// ListBySession returns the session's orders, newest first.
func (r *Repository) ListBySession(ctx context.Context, sessionID string) ([]order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.bySession[sessionID]
	out := make([]order.Order, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, r.orders[ids[i]].Clone())
	}
	return out, nil
}

// Len is the number of stored orders.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders)
}
