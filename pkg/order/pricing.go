package order

import "github.com/shopspring/decimal"

// Pricing holds the checkout money rules.
type Pricing struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatShipping          decimal.Decimal
}

// DefaultPricing charges 8.75% tax and 5.99 shipping below a 75.00 subtotal.
var DefaultPricing = Pricing{
	TaxRate:               decimal.RequireFromString("0.0875"),
	FreeShippingThreshold: decimal.NewFromInt(75),
	FlatShipping:          decimal.RequireFromString("5.99"),
}

// Totals is the money breakdown of an order.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// Compute derives tax, shipping and total from subtotal. Tax is rounded half
// up to cents and the total is the sum of the rounded parts, so
// Total == Subtotal + Tax + Shipping always holds.
func (p Pricing) Compute(subtotal decimal.Decimal) Totals {
	shipping := p.FlatShipping
	if subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(p.TaxRate).Round(2)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
	}
}
