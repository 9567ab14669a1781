// Package cart implements session-scoped shopping carts over the catalog.
package cart

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"coffeeshop/pkg/catalog"
)

var (
	// ErrInvalidQuantity indicates a non-positive quantity on add, or a
	// quantity above the configured per-item cap.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrItemNotInCart indicates the product has no entry in the cart.
	ErrItemNotInCart = errors.New("item not in cart")
	// ErrOutOfStock indicates the product cannot currently be added.
	ErrOutOfStock = errors.New("product is out of stock")
)

// Entry is a stored cart line: a product reference and its quantity.
type Entry struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Item is an Entry resolved against the catalog.
type Item struct {
	ProductID string          `json:"product_id"`
	Product   catalog.Product `json:"product"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal" swaggertype:"number"`
}

// Cart is the snapshot returned by every cart operation.
type Cart struct {
	ID         string          `json:"cart_id"`
	Items      []Item          `json:"items"`
	TotalItems int             `json:"total_items"`
	Subtotal   decimal.Decimal `json:"subtotal" swaggertype:"number"`
}

// IsEmpty reports whether the cart has no items.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Store keeps the entries of every session.
type Store interface {
	// Load returns the entries of a session, or none if the session has no cart.
	Load(ctx context.Context, sessionID string) ([]Entry, error)
	// Update applies fn to the session's entries and stores the result.
	// Calls for the same session never interleave. If fn fails nothing is
	// written and its error is returned.
	Update(ctx context.Context, sessionID string, fn func([]Entry) ([]Entry, error)) ([]Entry, error)
}

// ProductLookup resolves product ids. *catalog.Catalog implements it.
type ProductLookup interface {
	Product(id string) (catalog.Product, error)
}
