package aws

import (
	"context"
	"errors"
	"log/slog"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Consumer long-polls an SQS queue.
type Consumer struct {
	SQS         SQSAPI
	QueueURL    string
	WaitSeconds int32
	MaxMessages int32
	ErrorDelay  time.Duration
	Logger      *slog.Logger
}

// NewConsumer returns a Consumer with 20s long polling.
func NewConsumer(sqsClient SQSAPI, queueURL string, logger *slog.Logger) *Consumer {
	return &Consumer{
		SQS:         sqsClient,
		QueueURL:    queueURL,
		WaitSeconds: 20,
		MaxMessages: 10,
		ErrorDelay:  5 * time.Second,
		Logger:      logger,
	}
}

// Run receives messages until ctx is cancelled and passes each body to
// handle. A message is deleted once handle returns, whatever the outcome, so
// nothing is redelivered. Handler errors are logged.
func (c *Consumer) Run(ctx context.Context, handle func(ctx context.Context, body []byte) error) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		out, err := c.SQS.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            &c.QueueURL,
			MaxNumberOfMessages: c.MaxMessages,
			WaitTimeSeconds:     c.WaitSeconds,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.Logger.Error("receive messages", "queue", c.QueueURL, "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.ErrorDelay):
			}
			continue
		}

		for _, m := range out.Messages {
			if err := handle(ctx, []byte(sdkaws.ToString(m.Body))); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				c.Logger.Error("handle message", "message_id", sdkaws.ToString(m.MessageId), "error", err)
			}

			if _, err := c.SQS.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      &c.QueueURL,
				ReceiptHandle: m.ReceiptHandle,
			}); err != nil {
				c.Logger.Error("delete message", "message_id", sdkaws.ToString(m.MessageId), "error", err)
			}
		}
	}
}
