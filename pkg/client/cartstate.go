package client

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"coffeeshop/pkg/cart"
)

// CartAPI is the part of the REST API the cart mirror uses. *Client
// implements it.
type CartAPI interface {
	Cart(ctx context.Context) (cart.Cart, error)
	AddItem(ctx context.Context, productID string, quantity int) (cart.Cart, error)
	UpdateItem(ctx context.Context, productID string, quantity int) (cart.Cart, error)
	RemoveItem(ctx context.Context, productID string) (cart.Cart, error)
}

// CartState mirrors the server's cart. Every call replaces the snapshot with
// the server's response; a failed call keeps the last good snapshot and
// records the error.
type CartState struct {
	api CartAPI

	mu       sync.RWMutex
	snapshot *cart.Cart
	err      error
	inflight int
	// seq numbers calls as they start; applied is the seq of the call whose
	// result is currently held.
	seq     uint64
	applied uint64
}

// NewCartState returns an empty mirror backed by api.
func NewCartState(api CartAPI) *CartState {
	return &CartState{api: api}
}

// Refresh fetches the server's cart.
func (s *CartState) Refresh(ctx context.Context) error {
	return s.apply(func() (cart.Cart, error) { return s.api.Cart(ctx) })
}

// Add adds quantity units of productID.
func (s *CartState) Add(ctx context.Context, productID string, quantity int) error {
	return s.apply(func() (cart.Cart, error) { return s.api.AddItem(ctx, productID, quantity) })
}

// Update sets the quantity of productID; zero removes it.
func (s *CartState) Update(ctx context.Context, productID string, quantity int) error {
	return s.apply(func() (cart.Cart, error) { return s.api.UpdateItem(ctx, productID, quantity) })
}

// Remove drops productID from the cart.
func (s *CartState) Remove(ctx context.Context, productID string) error {
	return s.apply(func() (cart.Cart, error) { return s.api.RemoveItem(ctx, productID) })
}

// apply runs call and records its outcome unless a call started later has
// already been applied.
func (s *CartState) apply(call func() (cart.Cart, error)) error {
	s.mu.Lock()
	s.inflight++
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	c, err := call()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if seq < s.applied {
		return err
	}
	s.applied = seq
	if err != nil {
		s.err = err
		return err
	}
	s.snapshot = &c
	s.err = nil
	return nil
}

// Snapshot returns the cached cart and whether one has been fetched.
func (s *CartState) Snapshot() (cart.Cart, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return cart.Cart{}, false
	}
	return *s.snapshot, true
}

// Loading reports whether any call is in flight.
func (s *CartState) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inflight > 0
}

// Err is the error of the last call, nil after a success.
func (s *CartState) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// ItemCount is the number of units in the cached cart.
func (s *CartState) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return 0
	}
	return s.snapshot.TotalItems
}

// Total is the subtotal of the cached cart.
func (s *CartState) Total() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return decimal.Zero
	}
	return s.snapshot.Subtotal
}
