package booking

import (
	"context"

	pubsub "cloud.google.com/go/pubsub/v2"
)

// Publisher sends booking requests onto the fulfillment queue.
type Publisher interface {
	Publish(ctx context.Context, data []byte, orderingKey string) (string, error)
}

// QueuePublisher adapts a Pub/Sub publisher handle. The handle must have
// message ordering enabled or ordered publishes fail.
type QueuePublisher struct {
	pub *pubsub.Publisher
}

// NewQueuePublisher wraps a Pub/Sub publisher.
func NewQueuePublisher(pub *pubsub.Publisher) *QueuePublisher {
	return &QueuePublisher{pub: pub}
}

// Publish sends one message and waits for the server-assigned id.
func (q *QueuePublisher) Publish(ctx context.Context, data []byte, orderingKey string) (string, error) {
	result := q.pub.Publish(ctx, &pubsub.Message{
		Data:        data,
		OrderingKey: orderingKey,
	})
	return result.Get(ctx)
}
