package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/checkout-pricing/internal/adjustment"
	"github.com/noah-isme/checkout-pricing/internal/cart"
	"github.com/noah-isme/checkout-pricing/internal/config"
	"github.com/noah-isme/checkout-pricing/internal/events"
	"github.com/noah-isme/checkout-pricing/internal/obs"
	"github.com/noah-isme/checkout-pricing/internal/pipeline"
	"github.com/noah-isme/checkout-pricing/internal/pricing"
	"github.com/noah-isme/checkout-pricing/internal/tier"
)

// pricecheck loads the pricing configuration, runs the pipeline against a
// sample cart and prints the resulting adjustment set. Use it to smoke-test
// a rule-table change before rollout.
// Exit code 0 = ok, 2 = configuration or run error.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pricecheck error: %v\n", err)
		os.Exit(2)
	}
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()
	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)

	p := &pipeline.Pipeline{
		Dynamic:   cfg.BuildDynamicStage(logger),
		Resolver:  cfg.BuildResolver(logger),
		Loyalty:   pricing.LoyaltyStage{},
		Surcharge: cfg.BuildSurchargeStage(logger),
		Logger:    logger,
	}

	cartID := uuid.New()
	store := &memoryStore{
		snapshot: cart.Snapshot{
			CartID:        cartID,
			Subtotal:      decimal.RequireFromString("545.00"),
			ShippingTotal: decimal.RequireFromString("26.26"),
			Items: []cart.LineItem{
				{ProductID: uuid.New(), Qty: 5, UnitPrice: decimal.RequireFromString("109.00")},
			},
			PaymentMethodID: firstMethod(cfg),
		},
		profile: tier.Profile{
			CustomerID:     uuid.New(),
			TrailingSpend:  decimal.RequireFromString("2500.00"),
			TrailingOrders: 12,
		},
		ledger: adjustment.NewLedger(),
	}

	bus := &events.Bus{Handlers: []events.Handler{
		&pipeline.Trigger{
			Pipeline:  p,
			Snapshots: store,
			Profiles:  store,
			Ledgers:   store,
			Logger:    logger,
		},
	}}

	if err := bus.Emit(context.Background(), events.TopicItemAdded, cartID); err != nil {
		fmt.Fprintf(os.Stderr, "pricecheck error: %v\n", err)
		os.Exit(2)
	}

	for _, r := range store.ledger.Current() {
		logger.Info().
			Str("name", r.Name).
			Str("kind", string(r.Kind)).
			Str("amount", r.Amount.StringFixed(2)).
			Bool("taxable", r.Taxable).
			Msg("adjustment")
	}
	fmt.Println("pricecheck: OK")
}

// memoryStore serves the sample cart, profile and ledger in memory.
type memoryStore struct {
	snapshot cart.Snapshot
	profile  tier.Profile
	ledger   *adjustment.Ledger
}

func (m *memoryStore) Snapshot(_ context.Context, _ uuid.UUID) (cart.Snapshot, error) {
	return m.snapshot, nil
}

func (m *memoryStore) Profile(_ context.Context, _ uuid.UUID) (tier.Profile, error) {
	return m.profile, nil
}

func (m *memoryStore) Ledger(_ uuid.UUID) *adjustment.Ledger {
	return m.ledger
}

func firstMethod(cfg *config.Config) string {
	for method := range cfg.SurchargeRates {
		return method
	}
	return ""
}
