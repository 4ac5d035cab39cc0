package events

import (
	"context"
	"strconv"
)

// Sender is a queue that accepts raw message bodies, such as the SQS
// publisher or the RabbitMQ client.
type Sender interface {
	SendOrderMessage(ctx context.Context, messageBody string, attributes map[string]string) error
}

// QueuePublisher publishes events as JSON through a Sender.
type QueuePublisher struct {
	Sender Sender
}

var _ Publisher = QueuePublisher{}

// PublishNewOrder implements Publisher.
func (p QueuePublisher) PublishNewOrder(ctx context.Context, ev NewOrder) error {
	body, err := Encode(ev)
	if err != nil {
		return err
	}
	return p.Sender.SendOrderMessage(ctx, string(body), map[string]string{
		"event_id": ev.EventID,
		"order_id": strconv.FormatInt(ev.Order.ID, 10),
	})
}

// Decoding adapts h to a raw-body callback as used by the queue consumers.
// Undecodable bodies yield an ErrInvalidEvent error without calling h.
func Decoding(h Handler) func(ctx context.Context, body []byte) error {
	return func(ctx context.Context, body []byte) error {
		ev, err := Decode(body)
		if err != nil {
			return err
		}
		return h(ctx, ev)
	}
}
