// Package backends picks the order store and the new-order event transport
// named by the configuration.
package backends

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/imrishuroy/shop-orderflow/internal/aws"
	"github.com/imrishuroy/shop-orderflow/internal/config"
	"github.com/imrishuroy/shop-orderflow/internal/events"
	"github.com/imrishuroy/shop-orderflow/internal/orders"
	"github.com/imrishuroy/shop-orderflow/internal/postgres"
	"github.com/imrishuroy/shop-orderflow/internal/rabbitmq"
)

// ErrNotConfigured is returned when the selected backend lacks its address.
var ErrNotConfigured = errors.New("backend not configured")

func noop() {}

// OpenStore returns the order store for cfg and a function releasing it.
func OpenStore(ctx context.Context, cfg config.Store, dynamo aws.DynamoDBAPI, logger *slog.Logger) (orders.Repository, func(), error) {
	switch cfg.Driver {
	case config.DriverDynamoDB:
		return orders.NewStore(dynamo, cfg.OrdersTable, cfg.CountersTable), noop, nil
	case config.DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, noop, fmt.Errorf("%w: DATABASE_URL is empty", ErrNotConfigured)
		}
		pool, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		store := postgres.NewStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Warn("ensure orders schema", "error", err)
		}
		return store, pool.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Driver)
}

// OpenPublisher returns the publisher for new-order events and a function
// releasing it.
func OpenPublisher(cfg config.Events, sqs aws.SQSAPI, logger *slog.Logger) (events.Publisher, func(), error) {
	switch cfg.Driver {
	case config.EventsNone, "":
		return events.Discard{}, noop, nil
	case config.EventsSQS:
		if cfg.QueueURL == "" {
			return nil, noop, fmt.Errorf("%w: ORDERS_QUEUE_URL is empty", ErrNotConfigured)
		}
		return events.QueuePublisher{Sender: aws.NewPublisher(sqs, cfg.QueueURL)}, noop, nil
	case config.EventsRabbitMQ:
		client, err := rabbitmq.Dial(cfg.RabbitURL, cfg.RabbitQueue, logger)
		if err != nil {
			return nil, noop, err
		}
		return events.QueuePublisher{Sender: client}, func() {
			if err := client.Close(); err != nil {
				logger.Warn("close rabbitmq", "error", err)
			}
		}, nil
	}
	return nil, noop, fmt.Errorf("unknown EVENTS_DRIVER %q", cfg.Driver)
}

// Consume feeds new-order events from the configured transport to handle
// until ctx is done. With no transport it just waits for ctx.
func Consume(ctx context.Context, cfg config.Events, sqs aws.SQSAPI, handle events.Handler, logger *slog.Logger) error {
	switch cfg.Driver {
	case config.EventsNone, "":
		<-ctx.Done()
		return nil
	case config.EventsSQS:
		if cfg.QueueURL == "" {
			return fmt.Errorf("%w: ORDERS_QUEUE_URL is empty", ErrNotConfigured)
		}
		return aws.NewConsumer(sqs, cfg.QueueURL, logger).Run(ctx, events.Decoding(handle))
	case config.EventsRabbitMQ:
		client, err := rabbitmq.Dial(cfg.RabbitURL, cfg.RabbitQueue, logger)
		if err != nil {
			return err
		}
		defer client.Close()
		return client.Consume(ctx, events.Decoding(handle))
	}
	return fmt.Errorf("unknown EVENTS_DRIVER %q", cfg.Driver)
}
