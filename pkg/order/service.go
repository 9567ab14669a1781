package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"coffeeshop/pkg/cart"
	"coffeeshop/pkg/logger"
)

// CartSource is the part of the cart service checkout depends on.
type CartSource interface {
	Get(ctx context.Context, sessionID string) (cart.Cart, error)
	Clear(ctx context.Context, sessionID string) error
}

// Publisher announces created orders to other systems.
type Publisher interface {
	PublishOrderCreated(ctx context.Context, o Order) error
}

// Service turns carts into orders.
type Service struct {
	carts     CartSource
	repo      Repository
	pricing   Pricing
	publisher Publisher
	clearCart bool
	log       *logger.Logger
	now       func() time.Time
	newID     func() string
}

// Option configures a Service.
type Option func(*Service)

// WithPricing replaces DefaultPricing.
func WithPricing(p Pricing) Option { return func(s *Service) { s.pricing = p } }

// WithPublisher announces every stored order through p.
func WithPublisher(p Publisher) Option { return func(s *Service) { s.publisher = p } }

// WithClearCart empties the session's cart once its order is stored.
func WithClearCart(clear bool) Option { return func(s *Service) { s.clearCart = clear } }

// WithLogger sets the logger used for publish and cart-clear failures.
func WithLogger(l *logger.Logger) Option { return func(s *Service) { s.log = l } }

// WithClock sets the source of order timestamps.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithIDGenerator sets the source of order ids.
func WithIDGenerator(gen func() string) Option { return func(s *Service) { s.newID = gen } }

// NewService returns a Service. By default carts are kept after checkout and
// no events are published.
func NewService(carts CartSource, repo Repository, opts ...Option) *Service {
	s := &Service{
		carts:   carts,
		repo:    repo,
		pricing: DefaultPricing,
		log:     logger.Nop(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder checks out the session's current cart.
func (s *Service) CreateOrder(ctx context.Context, sessionID string, req CheckoutRequest) (Order, error) {
	c, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return Order{}, fmt.Errorf("reading cart: %w", err)
	}
	if c.IsEmpty() {
		return Order{}, ErrEmptyCart
	}
	if err := Validate(req); err != nil {
		return Order{}, err
	}

	lines := make([]Line, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, Line{
			ProductID:    it.ProductID,
			ProductName:  it.Product.Name,
			Quantity:     it.Quantity,
			UnitPrice:    it.Product.Price,
			LineSubtotal: it.Subtotal,
		})
	}
	totals := s.pricing.Compute(c.Subtotal)

	customer := req.CustomerInfo
	if customer.ShippingAddress.Country == "" {
		customer.ShippingAddress.Country = "US"
	}

	// Microsecond precision survives a round trip through Postgres.
	created := s.now().UTC().Truncate(time.Microsecond)
	id := s.newID()
	o := Order{
		ID:           id,
		OrderNumber:  orderNumber(created, id),
		SessionID:    sessionID,
		Items:        lines,
		CustomerInfo: customer,
		Subtotal:     totals.Subtotal,
		Tax:          totals.Tax,
		Shipping:     totals.Shipping,
		Total:        totals.Total,
		Status:       StatusPending,
		CreatedAt:    created,
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return Order{}, fmt.Errorf("storing order: %w", err)
	}
	s.log.Info(ctx, "order created", "order_id", o.ID, "order_number", o.OrderNumber, "total", o.Total.StringFixed(2))

	if s.clearCart {
		if err := s.carts.Clear(ctx, sessionID); err != nil {
			s.log.Warn(ctx, "clearing cart after checkout", "order_id", o.ID, "error", err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishOrderCreated(ctx, o); err != nil {
			s.log.Warn(ctx, "publishing order event", "order_id", o.ID, "error", err)
		}
	}
	return o, nil
}

// GetOrder returns a stored order.
func (s *Service) GetOrder(ctx context.Context, id string) (Order, error) {
	return s.repo.Get(ctx, id)
}

// ListOrders returns the orders placed by a session, newest first.
func (s *Service) ListOrders(ctx context.Context, sessionID string) ([]Order, error) {
	return s.repo.ListBySession(ctx, sessionID)
}

// orderNumber builds the shopper-facing identifier, e.g. CS-20261017-1A2B3C4D.
func orderNumber(t time.Time, id string) string {
	short := strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("CS-%s-%s", t.Format("20060102"), short)
}
