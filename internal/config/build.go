package config

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/checkout-pricing/internal/common"
	"github.com/noah-isme/checkout-pricing/internal/pricing"
	"github.com/noah-isme/checkout-pricing/internal/tier"
)

// BuildResolver turns the configured tier tables into a resolver. Rates
// outside [0, 0.5] are clamped and logged, never fatal.
func (c *Config) BuildResolver(logger zerolog.Logger) *tier.Resolver {
	qualifications := make([]tier.Qualification, 0, len(c.Qualifications))
	for _, q := range c.Qualifications {
		qualifications = append(qualifications, tier.Qualification{
			Tier:      q.Tier,
			MinSpend:  q.MinSpend,
			MinOrders: q.MinOrders,
		})
	}
	brackets := make(map[string][]tier.RateBracket, len(c.Brackets))
	for name, entries := range c.Brackets {
		list := make([]tier.RateBracket, 0, len(entries))
		for _, b := range entries {
			rate := tier.ClampRate(b.Rate)
			if !rate.Equal(b.Rate) {
				logger.Warn().
					Str("tier", name).
					Str("rate", b.Rate.String()).
					Str("code", common.CodeConfiguration).
					Msg("tier rate out of range, clamped")
			}
			list = append(list, tier.RateBracket{MinTotal: b.MinTotal, Rate: rate})
		}
		brackets[name] = list
	}
	return tier.NewResolver(qualifications, brackets, c.DefaultManualRate)
}

// BuildDynamicStage turns the configured quantity rules into the dynamic
// pricing stage. Entries keyed by an unparseable product id are skipped.
func (c *Config) BuildDynamicStage(logger zerolog.Logger) *pricing.DynamicStage {
	rules := make(map[uuid.UUID][]pricing.QuantityRule, len(c.DynamicRules))
	for key, entries := range c.DynamicRules {
		productID, err := uuid.Parse(key)
		if err != nil {
			logger.Warn().
				Str("product_id", key).
				Str("code", common.CodeConfiguration).
				Msg("invalid product id in dynamic rules, skipped")
			continue
		}
		list := make([]pricing.QuantityRule, 0, len(entries))
		for _, r := range entries {
			list = append(list, pricing.QuantityRule{
				MinQty:     r.MinQty,
				Kind:       r.Kind,
				PercentBps: r.PercentBps,
				Value:      r.Value,
			})
		}
		rules[productID] = list
	}
	return pricing.NewDynamicStage(rules)
}

// BuildSurchargeStage turns the configured per-method rate table into the
// surcharge stage. Negative rates and a min greater than max are clamped.
func (c *Config) BuildSurchargeStage(logger zerolog.Logger) *pricing.SurchargeStage {
	rates := make(map[string]pricing.MethodRate, len(c.SurchargeRates))
	for method, entry := range c.SurchargeRates {
		rate := entry.Rate
		if rate.IsNegative() {
			logger.Warn().
				Str("method", method).
				Str("rate", rate.String()).
				Str("code", common.CodeConfiguration).
				Msg("negative surcharge rate, clamped to zero")
			rate = decimal.Zero
		}
		rates[method] = pricing.MethodRate{Rate: rate, Taxable: entry.Taxable}
	}
	min, max := c.SurchargeMin, c.SurchargeMax
	if min.IsNegative() {
		min = decimal.Zero
	}
	if max.IsPositive() && min.GreaterThan(max) {
		logger.Warn().
			Str("min", min.String()).
			Str("max", max.String()).
			Str("code", common.CodeConfiguration).
			Msg("surcharge min exceeds max, min lowered to max")
		min = max
	}
	return &pricing.SurchargeStage{Rates: rates, Min: min, Max: max}
}
