package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/checkout-pricing/internal/adjustment"
	"github.com/noah-isme/checkout-pricing/internal/cart"
	"github.com/noah-isme/checkout-pricing/internal/events"
	"github.com/noah-isme/checkout-pricing/internal/pipeline"
	"github.com/noah-isme/checkout-pricing/internal/pricing"
	"github.com/noah-isme/checkout-pricing/internal/tier"
)

type stubStore struct {
	snapshot    cart.Snapshot
	snapshotErr error
	profile     tier.Profile
	profileErr  error
	ledger      *adjustment.Ledger
}

func (s *stubStore) Snapshot(context.Context, uuid.UUID) (cart.Snapshot, error) {
	return s.snapshot, s.snapshotErr
}

func (s *stubStore) Profile(context.Context, uuid.UUID) (tier.Profile, error) {
	return s.profile, s.profileErr
}

func (s *stubStore) Ledger(uuid.UUID) *adjustment.Ledger {
	return s.ledger
}

func newTrigger(store *stubStore) *pipeline.Trigger {
	return &pipeline.Trigger{
		Pipeline:  newPipeline(uuid.New()),
		Snapshots: store,
		Profiles:  store,
		Ledgers:   store,
		Logger:    zerolog.Nop(),
	}
}

func TestCartChangeTriggersRun(t *testing.T) {
	store := &stubStore{
		snapshot: cart.Snapshot{
			CartID:          uuid.New(),
			Subtotal:        dec("500.00"),
			PaymentMethodID: "card",
		},
		profile: vipProfile(),
		ledger:  adjustment.NewLedger(),
	}
	bus := &events.Bus{Handlers: []events.Handler{newTrigger(store)}}

	require.NoError(t, bus.Emit(context.Background(), events.TopicItemAdded, store.snapshot.CartID))
	require.True(t, hasRecord(store.ledger, pricing.NameLoyalty))
	require.True(t, hasRecord(store.ledger, pricing.NameSurcharge))
}

func TestProfileFailureDowngradesToNonVIP(t *testing.T) {
	store := &stubStore{
		snapshot: cart.Snapshot{
			CartID:          uuid.New(),
			Subtotal:        dec("500.00"),
			PaymentMethodID: "card",
		},
		profile:    vipProfile(),
		profileErr: errors.New("identity service down"),
		ledger:     adjustment.NewLedger(),
	}
	trigger := newTrigger(store)

	err := trigger.HandleCartChanged(context.Background(), events.ChangeEvent{
		Topic:  events.TopicQtyChanged,
		CartID: store.snapshot.CartID,
	})
	require.NoError(t, err)
	// Priced as non-VIP: no loyalty line, undiscounted surcharge.
	require.False(t, hasRecord(store.ledger, pricing.NameLoyalty))
	require.True(t, hasRecord(store.ledger, pricing.NameSurcharge))
}

func TestSnapshotFailurePropagates(t *testing.T) {
	store := &stubStore{
		snapshotErr: errors.New("cart gone"),
		ledger:      adjustment.NewLedger(),
	}
	trigger := newTrigger(store)

	err := trigger.HandleCartChanged(context.Background(), events.ChangeEvent{
		Topic:  events.TopicItemRemoved,
		CartID: uuid.New(),
	})
	require.Error(t, err)
	require.Empty(t, store.ledger.Current())
}
