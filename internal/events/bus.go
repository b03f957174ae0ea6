package events

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ChangeEvent describes one cart mutation delivered to handlers.
type ChangeEvent struct {
	Topic  string
	CartID uuid.UUID
}

// Handler reacts to a cart-change event. Handlers run synchronously and in
// registration order; one cart mutation is fully processed before the next.
type Handler interface {
	HandleCartChanged(ctx context.Context, event ChangeEvent) error
}

// Bus fans cart-change events out to registered handlers.
type Bus struct {
	Handlers []Handler
}

// Emit dispatches the event to all configured handlers. Handler errors are
// aggregated, not short-circuited: every handler sees every event.
func (b *Bus) Emit(ctx context.Context, topic string, cartID uuid.UUID) error {
	if b == nil {
		return errors.New("events: bus not configured")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return errors.New("events: topic is required")
	}
	if cartID == uuid.Nil {
		return errors.New("events: cart id is required")
	}
	event := ChangeEvent{Topic: topic, CartID: cartID}
	var joined error
	for _, handler := range b.Handlers {
		if handler == nil {
			continue
		}
		if err := handler.HandleCartChanged(ctx, event); err != nil {
			joined = errors.Join(joined, fmt.Errorf("events: handler: %w", err))
		}
	}
	return joined
}
