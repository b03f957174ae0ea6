package pipeline_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/checkout-pricing/internal/adjustment"
	"github.com/noah-isme/checkout-pricing/internal/cart"
	"github.com/noah-isme/checkout-pricing/internal/pipeline"
	"github.com/noah-isme/checkout-pricing/internal/pricing"
	"github.com/noah-isme/checkout-pricing/internal/tier"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type stubDynamic struct {
	fn func(cart.Snapshot) []adjustment.Record
}

func (s stubDynamic) Apply(snap cart.Snapshot) []adjustment.Record {
	if s.fn == nil {
		return nil
	}
	return s.fn(snap)
}

type panicLoyalty struct{}

func (panicLoyalty) Apply(cart.Snapshot, tier.Resolution) *adjustment.Record {
	panic("bad loyalty rule")
}

func newPipeline(productID uuid.UUID) *pipeline.Pipeline {
	return &pipeline.Pipeline{
		Dynamic: pricing.NewDynamicStage(map[uuid.UUID][]pricing.QuantityRule{
			productID: {{MinQty: 5, Kind: "percent", PercentBps: 1000}},
		}),
		Resolver: tier.NewResolver(
			[]tier.Qualification{{Tier: "gold", MinSpend: dec("1000"), MinOrders: 5}},
			map[string][]tier.RateBracket{
				"gold": {{MinTotal: dec("100"), Rate: dec("0.10")}},
			},
			dec("0.10"),
		),
		Loyalty: pricing.LoyaltyStage{},
		Surcharge: &pricing.SurchargeStage{
			Rates: map[string]pricing.MethodRate{
				"card": {Rate: dec("0.03"), Taxable: true},
			},
		},
		Logger: zerolog.Nop(),
	}
}

func vipProfile() tier.Profile {
	return tier.Profile{
		CustomerID:     uuid.New(),
		TrailingSpend:  dec("2500.00"),
		TrailingOrders: 12,
	}
}

func snapshotFor(productID uuid.UUID, method string) cart.Snapshot {
	return cart.Snapshot{
		CartID:          uuid.New(),
		Subtotal:        dec("500.00"),
		Items:           []cart.LineItem{{ProductID: productID, Qty: 5, UnitPrice: dec("100.00")}},
		PaymentMethodID: method,
	}
}

func TestRunInstallsOrderedAdjustments(t *testing.T) {
	productID := uuid.New()
	p := newPipeline(productID)
	ledger := adjustment.NewLedger()

	result, err := p.Run(snapshotFor(productID, "card"), vipProfile(), ledger)
	require.NoError(t, err)
	require.Len(t, result.Records, 3)
	require.Equal(t, pricing.DynamicNamePrefix+productID.String(), result.Records[0].Name)
	require.Equal(t, pricing.NameLoyalty, result.Records[1].Name)
	require.Equal(t, pricing.NameSurcharge, result.Records[2].Name)

	// Dynamic: 500.00 at 10% = -50.00. Folded subtotal 450.00.
	require.True(t, result.Records[0].Amount.Equal(dec("-50.00")))
	// Loyalty: 450.00 x 0.10 = -45.00.
	require.True(t, result.Records[1].Amount.Equal(dec("-45.00")))
	// Surcharge: (450.00 - 45.00) x 0.03 = 12.15.
	require.True(t, result.Records[2].Amount.Equal(dec("12.15")))

	require.Equal(t, result.Records, ledger.Current())
}

func TestRunIsIdempotent(t *testing.T) {
	productID := uuid.New()
	p := newPipeline(productID)
	ledger := adjustment.NewLedger()
	snap := snapshotFor(productID, "card")
	profile := vipProfile()

	first, err := p.Run(snap, profile, ledger)
	require.NoError(t, err)
	second, err := p.Run(snap, profile, ledger)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Len(t, ledger.Current(), len(first.Records))

	names := make(map[string]struct{})
	for _, r := range ledger.Current() {
		_, dup := names[r.Name]
		require.False(t, dup, "duplicate adjustment name %q", r.Name)
		names[r.Name] = struct{}{}
	}
}

func TestSurchargeComputedAfterLoyalty(t *testing.T) {
	p := newPipeline(uuid.New())
	snap := cart.Snapshot{
		CartID:          uuid.New(),
		Subtotal:        dec("500.00"),
		PaymentMethodID: "card",
	}

	withDiscount, err := p.Run(snap, vipProfile(), adjustment.NewLedger())
	require.NoError(t, err)
	withoutDiscount, err := p.Run(snap, tier.Profile{}, adjustment.NewLedger())
	require.NoError(t, err)

	// Loyalty 50.00: surcharge (500 - 50) x 0.03 = 13.50 vs 15.00 undiscounted.
	require.True(t, last(withDiscount).Amount.Equal(dec("13.50")))
	require.True(t, last(withoutDiscount).Amount.Equal(dec("15.00")))
	diff := last(withoutDiscount).Amount.Sub(last(withDiscount).Amount)
	require.True(t, diff.Equal(dec("1.50")), "expected exactly discount x rate, got %s", diff)
}

func TestReentrantRunRejected(t *testing.T) {
	p := newPipeline(uuid.New())
	ledger := adjustment.NewLedger()
	snap := snapshotFor(uuid.New(), "card")
	profile := vipProfile()

	var inner error
	var innerResult pipeline.Result
	p.Dynamic = stubDynamic{fn: func(s cart.Snapshot) []adjustment.Record {
		innerResult, inner = p.Run(s, profile, ledger)
		return nil
	}}

	result, err := p.Run(snap, profile, ledger)
	require.NoError(t, err)
	require.ErrorIs(t, inner, pipeline.ErrReentrancy)
	require.Empty(t, innerResult.Records)
	// The outer run still installs its full adjustment set.
	require.Equal(t, result.Records, ledger.Current())
}

func TestStageFailureDoesNotAbortRun(t *testing.T) {
	productID := uuid.New()
	p := newPipeline(productID)
	p.Loyalty = panicLoyalty{}
	ledger := adjustment.NewLedger()

	result, err := p.Run(snapshotFor(productID, "card"), vipProfile(), ledger)
	require.NoError(t, err)

	// Loyalty contribution dropped; dynamic and surcharge still present.
	require.Len(t, result.Records, 2)
	require.Equal(t, pricing.DynamicNamePrefix+productID.String(), result.Records[0].Name)
	require.Equal(t, pricing.NameSurcharge, result.Records[1].Name)
	// Surcharge base has no loyalty discount to exclude: 450.00 x 0.03.
	require.True(t, result.Records[1].Amount.Equal(dec("13.50")))
}

func TestPaymentMethodSwitchRemovesSurcharge(t *testing.T) {
	productID := uuid.New()
	p := newPipeline(productID)
	ledger := adjustment.NewLedger()
	snap := snapshotFor(productID, "card")
	profile := vipProfile()

	_, err := p.Run(snap, profile, ledger)
	require.NoError(t, err)
	require.True(t, hasRecord(ledger, pricing.NameSurcharge))

	snap.PaymentMethodID = ""
	_, err = p.Run(snap, profile, ledger)
	require.NoError(t, err)
	require.False(t, hasRecord(ledger, pricing.NameSurcharge))
}

func TestLedgerFailureRetainsPriorState(t *testing.T) {
	productID := uuid.New()
	p := newPipeline(productID)
	ledger := adjustment.NewLedger()
	snap := snapshotFor(productID, "card")
	profile := vipProfile()

	_, err := p.Run(snap, profile, ledger)
	require.NoError(t, err)
	before := ledger.Current()

	p.Dynamic = stubDynamic{fn: func(cart.Snapshot) []adjustment.Record {
		return []adjustment.Record{
			{Name: "dup", Kind: adjustment.KindDiscount, Amount: dec("-1.00")},
			{Name: "dup", Kind: adjustment.KindDiscount, Amount: dec("-2.00")},
		}
	}}
	_, err = p.Run(snap, profile, ledger)
	require.Error(t, err)
	require.Equal(t, before, ledger.Current())
}

func last(result pipeline.Result) adjustment.Record {
	return result.Records[len(result.Records)-1]
}

func hasRecord(ledger *adjustment.Ledger, name string) bool {
	for _, r := range ledger.Current() {
		if r.Name == name {
			return true
		}
	}
	return false
}
