package pipeline

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/checkout-pricing/internal/adjustment"
	"github.com/noah-isme/checkout-pricing/internal/cart"
	"github.com/noah-isme/checkout-pricing/internal/common"
	"github.com/noah-isme/checkout-pricing/internal/obs"
	"github.com/noah-isme/checkout-pricing/internal/pricing"
	"github.com/noah-isme/checkout-pricing/internal/tier"
)

// ErrReentrancy is returned when a run is triggered for a cart that already
// has a run in progress. The triggering call is dropped, never queued or
// recursed.
var ErrReentrancy = errors.New("pricing run already in progress for cart")

// Result is the ordered adjustment set produced by one run. It replaces the
// ledger contents wholesale.
type Result struct {
	Records []adjustment.Record
}

// DynamicStage computes per-line discounts from the snapshot alone.
type DynamicStage interface {
	Apply(snapshot cart.Snapshot) []adjustment.Record
}

// TierResolver determines loyalty eligibility and discount rate.
type TierResolver interface {
	Resolve(profile tier.Profile, cartTotal decimal.Decimal) tier.Resolution
}

// LoyaltyStage computes the cart-level loyalty discount.
type LoyaltyStage interface {
	Apply(snapshot cart.Snapshot, resolution tier.Resolution) *adjustment.Record
}

// SurchargeStage computes the payment-method surcharge from the base that
// already excludes the loyalty discount.
type SurchargeStage interface {
	Apply(snapshot cart.Snapshot, loyalty *adjustment.Record) *adjustment.Record
}

// Pipeline orchestrates the pricing stages in fixed order against a cart
// snapshot and writes the outcome to the ledger exactly once per invocation.
// Ordering is a property of Run's structure: the surcharge base must exclude
// the loyalty discount, so the surcharge stage always executes last.
type Pipeline struct {
	Dynamic   DynamicStage
	Resolver  TierResolver
	Loyalty   LoyaltyStage
	Surcharge SurchargeStage
	Logger    zerolog.Logger

	running sync.Map
}

// Run executes one pricing pass for the snapshot and replaces the ledger's
// adjustment set. A failing stage drops only its own contribution; the
// remaining stages still run, so a pricing-rule bug never aborts checkout.
func (p *Pipeline) Run(snapshot cart.Snapshot, profile tier.Profile, ledger *adjustment.Ledger) (Result, error) {
	if p == nil {
		return Result{}, common.NewAppError(common.CodeConfiguration, "pipeline not configured", nil)
	}
	if _, held := p.running.LoadOrStore(snapshot.CartID, struct{}{}); held {
		if obs.ReentrancyRejectedTotal != nil {
			obs.ReentrancyRejectedTotal.Inc()
		}
		p.Logger.Warn().
			Str("cart_id", snapshot.CartID.String()).
			Str("code", common.CodeReentrancy).
			Msg("pricing run rejected")
		return Result{}, common.NewAppError(common.CodeReentrancy, "re-entrant pricing run rejected", ErrReentrancy)
	}
	defer p.running.Delete(snapshot.CartID)

	start := time.Now()

	var dynamicRecords []adjustment.Record
	if p.Dynamic != nil {
		p.guardStage(snapshot, pricing.StageDynamic, func() {
			dynamicRecords = p.Dynamic.Apply(snapshot)
		})
	}

	working := snapshot
	working.Subtotal = snapshot.SubtotalAfter(dynamicRecords)

	var resolution tier.Resolution
	if p.Resolver != nil {
		p.guardStage(snapshot, "tier-resolution", func() {
			resolution = p.Resolver.Resolve(profile, working.Subtotal)
		})
	}

	var loyaltyRecord *adjustment.Record
	if p.Loyalty != nil {
		p.guardStage(snapshot, pricing.StageLoyalty, func() {
			loyaltyRecord = p.Loyalty.Apply(working, resolution)
		})
	}

	var surchargeRecord *adjustment.Record
	if p.Surcharge != nil {
		p.guardStage(snapshot, pricing.StageSurcharge, func() {
			surchargeRecord = p.Surcharge.Apply(working, loyaltyRecord)
		})
	}

	records := make([]adjustment.Record, 0, len(dynamicRecords)+2)
	records = append(records, dynamicRecords...)
	if loyaltyRecord != nil {
		records = append(records, *loyaltyRecord)
	}
	if surchargeRecord != nil {
		records = append(records, *surchargeRecord)
	}

	result := "ok"
	err := ledger.ReplaceAll(records)
	if err != nil {
		result = "ledger_error"
		p.Logger.Error().Err(err).
			Str("cart_id", snapshot.CartID.String()).
			Str("code", common.CodeOf(err)).
			Msg("replace adjustment set")
	} else if obs.AdjustmentsInstalled != nil {
		for _, r := range records {
			obs.AdjustmentsInstalled.WithLabelValues(string(r.Kind)).Inc()
		}
	}
	if obs.PipelineRunsTotal != nil {
		obs.PipelineRunsTotal.WithLabelValues(result).Inc()
	}
	if obs.PipelineRunDuration != nil {
		obs.PipelineRunDuration.WithLabelValues(result).Observe(obs.DurationMillis(time.Since(start)))
	}
	return Result{Records: records}, err
}

// guardStage runs one stage, recovering panics so a broken pricing rule
// degrades to a missing adjustment line instead of aborting the run.
func (p *Pipeline) guardStage(snapshot cart.Snapshot, stage string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if obs.StageFailuresTotal != nil {
				obs.StageFailuresTotal.WithLabelValues(stage).Inc()
			}
			p.Logger.Error().
				Str("cart_id", snapshot.CartID.String()).
				Str("stage", stage).
				Str("code", common.CodeStage).
				Interface("panic", r).
				Msg("pricing stage failed")
		}
	}()
	fn()
}
