package order

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the fulfilment state of an order. Checkout only produces
// StatusPending.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
)

// Address is a shipping address.
type Address struct {
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2,omitempty" validate:"max=200"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"required,postal_code"`
	Country    string `json:"country,omitempty" validate:"omitempty,eq=US"`
}

// CustomerInfo identifies the guest placing an order.
type CustomerInfo struct {
	Name            string  `json:"name" validate:"required,max=100"`
	Email           string  `json:"email" validate:"required,email"`
	Phone           string  `json:"phone,omitempty" validate:"omitempty,phone"`
	ShippingAddress Address `json:"shipping_address"`
}

// PaymentInfo is a payment stub. It is validated but never charged nor
// stored.
type PaymentInfo struct {
	CardholderName string `json:"cardholder_name" validate:"required,max=100"`
	CardNumber     string `json:"card_number" validate:"required,credit_card"`
	Expiry         string `json:"expiry" validate:"required,card_expiry"`
	CVC            string `json:"cvc" validate:"required,numeric,min=3,max=4"`
}

// CheckoutRequest is what a shopper submits at checkout.
type CheckoutRequest struct {
	CustomerInfo CustomerInfo `json:"customer_info"`
	PaymentInfo  PaymentInfo  `json:"payment_info"`
}

// Line is a cart entry frozen at checkout time.
type Line struct {
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price" swaggertype:"number"`
	LineSubtotal decimal.Decimal `json:"line_subtotal" swaggertype:"number"`
}

// Order is an immutable record of a completed checkout.
type Order struct {
	ID             string          `json:"id"`
	OrderNumber    string          `json:"order_number"`
	SessionID      string          `json:"-"`
	Items          []Line          `json:"items"`
	CustomerInfo   CustomerInfo    `json:"customer_info"`
	Subtotal       decimal.Decimal `json:"subtotal" swaggertype:"number"`
	Tax            decimal.Decimal `json:"tax" swaggertype:"number"`
	Shipping       decimal.Decimal `json:"shipping" swaggertype:"number"`
	Total          decimal.Decimal `json:"total" swaggertype:"number"`
	Status         Status          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	TrackingNumber *string         `json:"tracking_number"`
}

// Clone returns a deep copy of o.
func (o Order) Clone() Order {
	o.Items = append([]Line(nil), o.Items...)
	if o.TrackingNumber != nil {
		tn := *o.TrackingNumber
		o.TrackingNumber = &tn
	}
	return o
}

// Repository defines behavior for persisting orders.
type Repository interface {
	Create(ctx context.Context, o Order) error
	Get(ctx context.Context, id string) (Order, error)
	// ListBySession returns the session's orders, newest first.
	ListBySession(ctx context.Context, sessionID string) ([]Order, error)
}

var (
	// ErrNotFound indicates the requested order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrEmptyCart indicates checkout was attempted with nothing in the cart.
	ErrEmptyCart = errors.New("cart is empty")
)
