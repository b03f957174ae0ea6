package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/checkout-pricing/internal/adjustment"
	"github.com/noah-isme/checkout-pricing/internal/cart"
)

// StageSurcharge names the payment surcharge stage on produced records.
const StageSurcharge = "surcharge"

// NameSurcharge is the single fixed name for the payment-method surcharge.
// Switching payment methods therefore yields at most one record, and
// switching to a non-surchargeable method drops it via the pipeline's
// replace-all.
const NameSurcharge = "payment-surcharge"

// MethodRate configures the surcharge for one payment method.
type MethodRate struct {
	Rate    decimal.Decimal
	Taxable bool
}

// SurchargeStage computes the payment-method surcharge. It must run strictly
// after the loyalty stage: the surcharge base excludes the loyalty discount.
type SurchargeStage struct {
	Rates map[string]MethodRate
	Min   decimal.Decimal
	Max   decimal.Decimal
}

// Apply returns the surcharge record, or nil when no payment method is
// chosen, the method has no configured rate, or the computed amount falls
// below the configured minimum. Amounts below the minimum are zero, not the
// minimum, so trivial orders are never charged.
func (s *SurchargeStage) Apply(snapshot cart.Snapshot, loyalty *adjustment.Record) *adjustment.Record {
	if s == nil || !snapshot.HasPaymentMethod() {
		return nil
	}
	method, ok := s.Rates[snapshot.PaymentMethodID]
	if !ok || !method.Rate.IsPositive() {
		return nil
	}
	base := snapshot.Subtotal.Add(snapshot.ShippingTotal)
	if loyalty != nil {
		// Loyalty amounts are negative, so adding subtracts the discount.
		base = base.Add(loyalty.Amount)
	}
	if !base.IsPositive() {
		return nil
	}
	amount := RoundCurrency(base.Mul(method.Rate))
	if !amount.IsPositive() {
		return nil
	}
	if s.Min.IsPositive() && amount.LessThan(s.Min) {
		return nil
	}
	if s.Max.IsPositive() && amount.GreaterThan(s.Max) {
		amount = s.Max
	}
	return &adjustment.Record{
		Name:    NameSurcharge,
		Kind:    adjustment.KindSurcharge,
		Amount:  amount,
		Taxable: method.Taxable,
		Stage:   StageSurcharge,
	}
}
