package cart

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// QuantityLimit bounds the quantity of a single entry even when no cap is
// configured.
const QuantityLimit = 1_000_000

// Service applies cart operations for sessions.
type Service struct {
	products    ProductLookup
	store       Store
	maxQuantity int
}

// Option configures a Service.
type Option func(*Service)

// WithMaxQuantity caps the quantity of a single entry. Zero leaves only
// QuantityLimit.
func WithMaxQuantity(n int) Option {
	return func(s *Service) { s.maxQuantity = n }
}

// NewService returns a Service backed by store.
func NewService(products ProductLookup, store Store, opts ...Option) *Service {
	s := &Service{products: products, store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the session's cart, empty if it has none yet.
func (s *Service) Get(ctx context.Context, sessionID string) (Cart, error) {
	entries, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return Cart{}, fmt.Errorf("loading cart: %w", err)
	}
	return s.snapshot(sessionID, entries), nil
}

// AddItem adds quantity units of productID, incrementing an existing entry.
func (s *Service) AddItem(ctx context.Context, sessionID, productID string, quantity int) (Cart, error) {
	if quantity <= 0 {
		return Cart{}, fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	if err := s.checkCap(quantity); err != nil {
		return Cart{}, err
	}
	p, err := s.products.Product(productID)
	if err != nil {
		return Cart{}, err
	}
	if !p.InStock {
		return Cart{}, fmt.Errorf("%w: %s", ErrOutOfStock, productID)
	}

	entries, err := s.store.Update(ctx, sessionID, func(entries []Entry) ([]Entry, error) {
		for i := range entries {
			if entries[i].ProductID == productID {
				next := entries[i].Quantity + quantity
				if err := s.checkCap(next); err != nil {
					return nil, err
				}
				entries[i].Quantity = next
				return entries, nil
			}
		}
		return append(entries, Entry{ProductID: productID, Quantity: quantity}), nil
	})
	if err != nil {
		return Cart{}, err
	}
	return s.snapshot(sessionID, entries), nil
}

// SetQuantity replaces the quantity of an existing entry. A quantity of zero
// or less removes it.
func (s *Service) SetQuantity(ctx context.Context, sessionID, productID string, quantity int) (Cart, error) {
	if err := s.checkCap(quantity); err != nil {
		return Cart{}, err
	}
	entries, err := s.store.Update(ctx, sessionID, func(entries []Entry) ([]Entry, error) {
		i := indexOf(entries, productID)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrItemNotInCart, productID)
		}
		if quantity <= 0 {
			return append(entries[:i], entries[i+1:]...), nil
		}
		entries[i].Quantity = quantity
		return entries, nil
	})
	if err != nil {
		return Cart{}, err
	}
	return s.snapshot(sessionID, entries), nil
}

// RemoveItem drops productID from the cart. Removing an absent product is
// not an error.
func (s *Service) RemoveItem(ctx context.Context, sessionID, productID string) (Cart, error) {
	entries, err := s.store.Update(ctx, sessionID, func(entries []Entry) ([]Entry, error) {
		if i := indexOf(entries, productID); i >= 0 {
			return append(entries[:i], entries[i+1:]...), nil
		}
		return entries, nil
	})
	if err != nil {
		return Cart{}, fmt.Errorf("removing item: %w", err)
	}
	return s.snapshot(sessionID, entries), nil
}

// Clear empties the session's cart.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	_, err := s.store.Update(ctx, sessionID, func([]Entry) ([]Entry, error) {
		return nil, nil
	})
	return err
}

// checkCap bounds quantity by the configured cap and QuantityLimit. Both
// operands of an increment pass through it first, so the sum cannot overflow.
func (s *Service) checkCap(quantity int) error {
	limit := QuantityLimit
	if s.maxQuantity > 0 && s.maxQuantity < limit {
		limit = s.maxQuantity
	}
	if quantity > limit {
		return fmt.Errorf("%w: %d exceeds limit of %d", ErrInvalidQuantity, quantity, limit)
	}
	return nil
}

// snapshot resolves entries against the catalog. Entries whose product no
// longer resolves are left out.
func (s *Service) snapshot(sessionID string, entries []Entry) Cart {
	c := Cart{ID: sessionID, Items: make([]Item, 0, len(entries)), Subtotal: decimal.Zero}
	for _, e := range entries {
		p, err := s.products.Product(e.ProductID)
		if err != nil {
			continue
		}
		line := p.Price.Mul(decimal.NewFromInt(int64(e.Quantity)))
		c.Items = append(c.Items, Item{
			ProductID: e.ProductID,
			Product:   p,
			Quantity:  e.Quantity,
			Subtotal:  line,
		})
		c.TotalItems += e.Quantity
		c.Subtotal = c.Subtotal.Add(line)
	}
	return c
}

func indexOf(entries []Entry, productID string) int {
	for i, e := range entries {
		if e.ProductID == productID {
			return i
		}
	}
	return -1
}
