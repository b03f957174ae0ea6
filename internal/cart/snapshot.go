package cart

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/checkout-pricing/internal/adjustment"
)

// LineItem describes one priced line of a cart.
type LineItem struct {
	ProductID uuid.UUID
	Qty       int
	UnitPrice decimal.Decimal
}

// Extended returns quantity times unit price, never negative.
func (li LineItem) Extended() decimal.Decimal {
	if li.Qty <= 0 {
		return decimal.Zero
	}
	ext := li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Qty)))
	if ext.IsNegative() {
		return decimal.Zero
	}
	return ext
}

// Snapshot is an immutable read of cart state taken at pipeline invocation.
// It is constructed fresh per run and never mutated in place; stages derive
// new values from it instead of writing back.
type Snapshot struct {
	CartID          uuid.UUID
	Subtotal        decimal.Decimal
	ShippingTotal   decimal.Decimal
	Items           []LineItem
	PaymentMethodID string
	Adjustments     []adjustment.Record
}

// HasPaymentMethod reports whether a payment method has been chosen.
func (s Snapshot) HasPaymentMethod() bool {
	return strings.TrimSpace(s.PaymentMethodID) != ""
}

// SubtotalAfter folds per-line discount records into the subtotal. Only
// negative discount amounts reduce it; the result never drops below zero.
func (s Snapshot) SubtotalAfter(records []adjustment.Record) decimal.Decimal {
	subtotal := s.Subtotal
	for _, r := range records {
		if r.Kind != adjustment.KindDiscount {
			continue
		}
		if r.Amount.IsNegative() {
			subtotal = subtotal.Add(r.Amount)
		}
	}
	if subtotal.IsNegative() {
		return decimal.Zero
	}
	return subtotal
}
