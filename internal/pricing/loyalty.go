package pricing

import (
	"github.com/noah-isme/checkout-pricing/internal/adjustment"
	"github.com/noah-isme/checkout-pricing/internal/cart"
	"github.com/noah-isme/checkout-pricing/internal/tier"
)

// StageLoyalty names the loyalty discount stage on produced records.
const StageLoyalty = "loyalty"

// NameLoyalty is the single fixed name under which the loyalty discount is
// recorded, so at most one loyalty record can ever exist in a ledger.
const NameLoyalty = "loyalty-discount"

// LoyaltyStage computes the cart-level loyalty discount from a resolved tier.
type LoyaltyStage struct{}

// Apply returns the loyalty discount record, or nil when the customer is not
// eligible or the resolved rate is not positive. The snapshot subtotal must
// already have dynamic per-line discounts folded in; clearing of a previous
// loyalty record is the pipeline's replace-all responsibility, not this
// stage's.
func (s LoyaltyStage) Apply(snapshot cart.Snapshot, resolution tier.Resolution) *adjustment.Record {
	if !resolution.Eligible || !resolution.Rate.IsPositive() {
		return nil
	}
	base := snapshot.Subtotal.Add(snapshot.ShippingTotal)
	if !base.IsPositive() {
		return nil
	}
	amount := RoundCurrency(base.Mul(resolution.Rate))
	if !amount.IsPositive() {
		return nil
	}
	return &adjustment.Record{
		Name:    NameLoyalty,
		Kind:    adjustment.KindDiscount,
		Amount:  amount.Neg(),
		Taxable: true,
		Stage:   StageLoyalty,
	}
}
