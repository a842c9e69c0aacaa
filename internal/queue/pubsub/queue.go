// Package pubsub implements the application request queue on Google Cloud
// Pub/Sub. Delivery is at least once: workers ack after the outcome is
// recorded and nack when the attempt could not start.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobswipe/internal/jobs"
)

// Queue publishes requests to a topic and receives them from a subscription.
type Queue struct {
	topic     *pubsub.Topic
	sub       *pubsub.Subscription
	items     chan jobs.QueueItem
	done      chan struct{}
	closeOnce sync.Once
	logger    *zap.Logger
}

// New wires a queue over an existing topic and subscription. maxOutstanding
// bounds unacknowledged deliveries held by this process.
func New(topic *pubsub.Topic, sub *pubsub.Subscription, maxOutstanding int, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxOutstanding > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = maxOutstanding
	}
	return &Queue{
		topic:  topic,
		sub:    sub,
		items:  make(chan jobs.QueueItem),
		done:   make(chan struct{}),
		logger: logger.Named("queue"),
	}
}

// Enqueue publishes the request and waits for the server to accept it.
func (q *Queue) Enqueue(ctx context.Context, request jobs.ApplicationRequest) error {
	select {
	case <-q.done:
		return jobs.ErrQueueClosed
	default:
	}
	data, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	result := q.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"candidate_id": request.CandidateID},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish request: %w", err)
	}
	return nil
}

// Receive pulls messages until ctx ends, handing each to Dequeue callers.
func (q *Queue) Receive(ctx context.Context) error {
	err := q.sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		var request jobs.ApplicationRequest
		if err := json.Unmarshal(msg.Data, &request); err != nil {
			// Redelivery cannot fix a malformed payload.
			q.logger.Warn("dropping malformed application request",
				zap.String("message_id", msg.ID), zap.Error(err))
			msg.Ack()
			return
		}
		item := jobs.QueueItem{
			Request: request,
			Attempt: deliveryAttempt(msg),
			Ack:     msg.Ack,
			Nack:    msg.Nack,
		}
		select {
		case q.items <- item:
		case <-ctx.Done():
			msg.Nack()
		case <-q.done:
			msg.Nack()
		}
	})
	if err != nil {
		return fmt.Errorf("receive requests: %w", err)
	}
	return nil
}

// Dequeue waits for the next delivery.
func (q *Queue) Dequeue(ctx context.Context) (jobs.QueueItem, error) {
	select {
	case <-ctx.Done():
		return jobs.QueueItem{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case <-q.done:
		return jobs.QueueItem{}, jobs.ErrQueueClosed
	case item := <-q.items:
		return item, nil
	}
}

// Close flushes pending publishes and stops handing out deliveries.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
		q.topic.Stop()
	})
}

// deliveryAttempt is only populated when the subscription has a dead-letter
// policy.
func deliveryAttempt(msg *pubsub.Message) int {
	if msg.DeliveryAttempt != nil && *msg.DeliveryAttempt > 0 {
		return *msg.DeliveryAttempt
	}
	return 1
}
