package tier

import (
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrProfileUnavailable is returned when no usable customer profile could be
// supplied for resolution. Callers treat the customer as non-VIP and proceed.
var ErrProfileUnavailable = errors.New("customer profile unavailable")

// maxRate caps every loyalty discount rate, manual overrides included.
var maxRate = decimal.NewFromFloat(0.5)

// Source identifies how a tier resolution was produced.
type Source string

const (
	// SourceManual means the tier came from a manually flagged VIP profile.
	SourceManual Source = "manual"
	// SourceAutomatic means the tier was qualified from trailing history.
	SourceAutomatic Source = "automatic"
	// SourceNone means no tier applied.
	SourceNone Source = "none"
)

// Profile is the read-only customer view owned by the identity collaborator.
type Profile struct {
	CustomerID         uuid.UUID
	ManualVIP          bool
	ManualRateOverride *decimal.Decimal
	TrailingSpend      decimal.Decimal
	TrailingOrders     int
}

// Resolution is the per-run outcome of tier qualification. It is computed
// fresh on every pipeline invocation and never persisted.
type Resolution struct {
	Eligible bool
	Tier     string
	Rate     decimal.Decimal
	Source   Source
}

// Qualification is one automatic-tier threshold: both trailing spend and
// trailing order count must be met.
type Qualification struct {
	Tier      string
	MinSpend  decimal.Decimal
	MinOrders int
}

// RateBracket maps a minimum cart total to an in-tier discount rate.
type RateBracket struct {
	MinTotal decimal.Decimal
	Rate     decimal.Decimal
}

// Resolver determines a customer's loyalty tier and discount rate. Resolve is
// a pure function: no side effects, no ledger access.
type Resolver struct {
	qualifications    []Qualification
	brackets          map[string][]RateBracket
	defaultManualRate decimal.Decimal
	manualTier        string
}

// NewResolver builds a resolver, ordering qualifications by descending spend
// threshold and brackets by descending total threshold (ties going to the
// higher rate) so the first match always wins.
func NewResolver(qualifications []Qualification, brackets map[string][]RateBracket, defaultManualRate decimal.Decimal) *Resolver {
	quals := make([]Qualification, len(qualifications))
	copy(quals, qualifications)
	sort.SliceStable(quals, func(i, j int) bool {
		if !quals[i].MinSpend.Equal(quals[j].MinSpend) {
			return quals[i].MinSpend.GreaterThan(quals[j].MinSpend)
		}
		return quals[i].MinOrders > quals[j].MinOrders
	})
	sorted := make(map[string][]RateBracket, len(brackets))
	for tier, bs := range brackets {
		list := make([]RateBracket, len(bs))
		copy(list, bs)
		sort.SliceStable(list, func(i, j int) bool {
			if !list[i].MinTotal.Equal(list[j].MinTotal) {
				return list[i].MinTotal.GreaterThan(list[j].MinTotal)
			}
			return list[i].Rate.GreaterThan(list[j].Rate)
		})
		sorted[tier] = list
	}
	return &Resolver{
		qualifications:    quals,
		brackets:          sorted,
		defaultManualRate: ClampRate(defaultManualRate),
		manualTier:        "vip",
	}
}

// Resolve determines eligibility and the applicable discount rate. Automatic
// qualification uses trailing history while the rate bracket uses the current
// cart total; the two bases are intentionally distinct.
func (r *Resolver) Resolve(profile Profile, cartTotal decimal.Decimal) Resolution {
	if r == nil {
		return Resolution{Source: SourceNone}
	}
	if profile.ManualVIP {
		rate := r.defaultManualRate
		if o := profile.ManualRateOverride; o != nil && !o.IsNegative() && o.LessThanOrEqual(maxRate) {
			rate = *o
		}
		return Resolution{Eligible: true, Tier: r.manualTier, Rate: rate, Source: SourceManual}
	}
	for _, q := range r.qualifications {
		if profile.TrailingSpend.GreaterThanOrEqual(q.MinSpend) && profile.TrailingOrders >= q.MinOrders {
			return Resolution{
				Eligible: true,
				Tier:     q.Tier,
				Rate:     r.bracketRate(q.Tier, cartTotal),
				Source:   SourceAutomatic,
			}
		}
	}
	return Resolution{Source: SourceNone}
}

func (r *Resolver) bracketRate(tier string, cartTotal decimal.Decimal) decimal.Decimal {
	for _, b := range r.brackets[tier] {
		if cartTotal.GreaterThanOrEqual(b.MinTotal) {
			return b.Rate
		}
	}
	return decimal.Zero
}

// ClampRate forces a discount rate into [0, 0.5].
func ClampRate(rate decimal.Decimal) decimal.Decimal {
	if rate.IsNegative() {
		return decimal.Zero
	}
	if rate.GreaterThan(maxRate) {
		return maxRate
	}
	return rate
}
