// Package rabbitmq carries new-order events over a durable RabbitMQ queue,
// as an alternative to SQS for deployments outside AWS.
package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the part of *amqp.Channel used by the client.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// Client publishes to and consumes from one queue on the default exchange.
type Client struct {
	conn   *amqp.Connection
	ch     Channel
	queue  string
	logger *slog.Logger
}

// Dial connects to url and declares queue as durable.
func Dial(url, queue string, logger *slog.Logger) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	c, err := NewClient(ch, queue, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	c.conn = conn
	return c, nil
}

// NewClient declares queue on ch and returns a Client using it.
func NewClient(ch Channel, queue string, logger *slog.Logger) (*Client, error) {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return &Client{ch: ch, queue: queue, logger: logger}, nil
}

// SendOrderMessage publishes a persistent JSON message. Attributes become
// message headers; event_id doubles as the message id.
func (c *Client) SendOrderMessage(ctx context.Context, messageBody string, attributes map[string]string) error {
	headers := amqp.Table{}
	for k, v := range attributes {
		headers[k] = v
	}
	err := c.ch.PublishWithContext(ctx, "", c.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    attributes["event_id"],
		Headers:      headers,
		Body:         []byte(messageBody),
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", c.queue, err)
	}
	return nil
}

// Consume delivers message bodies to handle until ctx is cancelled or the
// channel closes. Each delivery is acked after handle returns, whatever the
// outcome.
func (c *Client) Consume(ctx context.Context, handle func(ctx context.Context, body []byte) error) error {
	deliveries, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			if err := handle(ctx, d.Body); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				c.logger.Error("handle message", "message_id", d.MessageId, "error", err)
			}
			if err := d.Ack(false); err != nil {
				c.logger.Error("ack message", "message_id", d.MessageId, "error", err)
			}
		}
	}
}

// Close closes the channel and the connection.
func (c *Client) Close() error {
	err := c.ch.Close()
	if c.conn != nil {
		if cerr := c.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
