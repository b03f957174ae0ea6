package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/checkout-pricing/internal/adjustment"
	"github.com/noah-isme/checkout-pricing/internal/cart"
	"github.com/noah-isme/checkout-pricing/internal/common"
	"github.com/noah-isme/checkout-pricing/internal/events"
	"github.com/noah-isme/checkout-pricing/internal/tier"
)

// SnapshotSource supplies the current cart snapshot. Owned by the
// cart/session collaborator; the pipeline treats the result as read-only.
type SnapshotSource interface {
	Snapshot(ctx context.Context, cartID uuid.UUID) (cart.Snapshot, error)
}

// ProfileSource supplies the customer profile for a cart. Owned by the
// customer-identity collaborator.
type ProfileSource interface {
	Profile(ctx context.Context, cartID uuid.UUID) (tier.Profile, error)
}

// LedgerSource resolves the adjustment ledger owned by the cart collaborator.
type LedgerSource interface {
	Ledger(cartID uuid.UUID) *adjustment.Ledger
}

// Trigger subscribes the pipeline to cart-change events: one event, one
// synchronous run to completion.
type Trigger struct {
	Pipeline  *Pipeline
	Snapshots SnapshotSource
	Profiles  ProfileSource
	Ledgers   LedgerSource
	Logger    zerolog.Logger
}

// HandleCartChanged fetches the snapshot and profile, then executes one
// pipeline run. An unavailable profile downgrades the customer to non-VIP
// rather than failing the run; a rejected re-entrant run is dropped silently
// since the outer run will install a complete adjustment set anyway.
func (t *Trigger) HandleCartChanged(ctx context.Context, event events.ChangeEvent) error {
	if t == nil || t.Pipeline == nil || t.Snapshots == nil || t.Ledgers == nil {
		return common.NewAppError(common.CodeConfiguration, "pricing trigger not configured", nil)
	}
	snapshot, err := t.Snapshots.Snapshot(ctx, event.CartID)
	if err != nil {
		return fmt.Errorf("load cart snapshot: %w", err)
	}
	var profile tier.Profile
	if t.Profiles != nil {
		profile, err = t.Profiles.Profile(ctx, event.CartID)
		if err != nil {
			t.Logger.Warn().Err(err).
				Str("cart_id", event.CartID.String()).
				Str("code", common.CodeResolution).
				Msg("customer profile unavailable, pricing as non-VIP")
			profile = tier.Profile{}
		}
	}
	ledger := t.Ledgers.Ledger(event.CartID)
	if ledger == nil {
		return common.NewAppError(common.CodeConfiguration, "no ledger for cart", nil)
	}
	if _, err := t.Pipeline.Run(snapshot, profile, ledger); err != nil {
		if errors.Is(err, ErrReentrancy) {
			return nil
		}
		return err
	}
	return nil
}
