// Package events defines the new-order message that keeps the admin bot's
// mirror in step with the submission endpoint.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/imrishuroy/shop-orderflow/internal/orders"
)

// NewOrder announces an order that was just persisted.
type NewOrder struct {
	EventID    string       `json:"event_id"`
	OccurredAt time.Time    `json:"occurred_at"`
	Order      orders.Order `json:"order"`
}

// Publisher delivers new-order events to the admin bot.
type Publisher interface {
	PublishNewOrder(ctx context.Context, ev NewOrder) error
}

// Handler receives decoded events on the consuming side.
type Handler func(ctx context.Context, ev NewOrder) error

// ErrInvalidEvent marks a message that can never be processed.
var ErrInvalidEvent = errors.New("invalid new-order event")

// New wraps order in an event with a fresh id.
func New(order orders.Order, now time.Time) NewOrder {
	return NewOrder{
		EventID:    uuid.NewString(),
		OccurredAt: now.UTC(),
		Order:      order,
	}
}

// Encode serialises ev as JSON.
func Encode(ev NewOrder) ([]byte, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return b, nil
}

// Decode parses a message body. Bodies without an order id are rejected.
func Decode(body []byte) (NewOrder, error) {
	var ev NewOrder
	if err := json.Unmarshal(body, &ev); err != nil {
		return NewOrder{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if ev.Order.ID == 0 {
		return NewOrder{}, fmt.Errorf("%w: missing order id", ErrInvalidEvent)
	}
	return ev, nil
}

// Discard is a Publisher that drops every event.
type Discard struct{}

// PublishNewOrder implements Publisher.
func (Discard) PublishNewOrder(context.Context, NewOrder) error { return nil }
