package fulfillment

import (
	"context"
	"errors"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/railtix/ticketing-backend/internal/booking"
	"github.com/railtix/ticketing-backend/pkg/logger"
)

// Consumer drains the booking subscription into the processor.
type Consumer struct {
	subscription *pubsub.Subscriber
	processor    *Processor
	logg         *logger.Logger
}

// NewConsumer builds the fulfillment consumer.
func NewConsumer(subscription *pubsub.Subscriber, processor *Processor, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, errors.New("booking subscription is required")
	}
	if processor == nil {
		return nil, errors.New("processor is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{subscription: subscription, processor: processor, logg: logg}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id":   msg.ID,
		"ordering_key": msg.OrderingKey,
	})

	req, err := booking.DecodeRequest(msg.Data)
	if err != nil {
		// a payload that never decodes will never decode on redelivery
		c.logg.Error(logCtx, "failed to decode booking request", err)
		return processResult{ack: true}
	}

	if err := c.processor.Process(logCtx, req); err != nil {
		c.logg.Error(logCtx, "fulfillment needs redelivery", err)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}
