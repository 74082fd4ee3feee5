package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fletea/internal/general/contracts"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// defaultFeedPrefetch bounds in-flight feed deliveries when the caller
	// does not pick a limit.
	defaultFeedPrefetch = 8

	// feedHandlerTimeout caps how long one delivery may spend in the handler.
	feedHandlerTimeout = 30 * time.Second
)

// DeliveryHandler processes one feed delivery. A nil return acks it; an
// error nacks it, requeued on first failure and dropped once redelivered.
type DeliveryHandler func(ctx context.Context, d amqp.Delivery) error

// ConsumeTripFeed drains the trip feed queue with manual acks until ctx is
// cancelled or the channel dies. It opens a dedicated channel so consuming
// never competes with the publish channel.
func (client *Client) ConsumeTripFeed(ctx context.Context, consumerTag string, prefetch int, handler DeliveryHandler) error {
	if prefetch <= 0 {
		prefetch = defaultFeedPrefetch
	}

	client.mu.RLock()
	conn := client.conn
	client.mu.RUnlock()
	if conn == nil || conn.IsClosed() {
		return errors.New("rabbitmq: connection is not ready")
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq: open consumer channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("rabbitmq: set prefetch %d: %w", prefetch, err)
	}

	deliveries, err := ch.Consume(
		contracts.QueueTripFeed,
		consumerTag,
		false, // autoAck
		false, // exclusive
		false, // noLocal (ignored by RabbitMQ)
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("rabbitmq: consume %s: %w", contracts.QueueTripFeed, err)
	}
	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))

	for {
		select {
		case <-ctx.Done():
			if consumerTag != "" {
				_ = ch.Cancel(consumerTag, false)
			}
			return nil

		case cerr := <-chClosed:
			if cerr != nil {
				return fmt.Errorf("rabbitmq: feed channel closed: %w", cerr)
			}
			return nil

		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			settleFeedDelivery(ctx, d, handler)
		}
	}
}

// settleFeedDelivery runs the handler under a deadline and settles the
// delivery: ack on success, requeue on the first failure, drop after that so
// a poison message cannot wedge the feed.
func settleFeedDelivery(ctx context.Context, d amqp.Delivery, handler DeliveryHandler) {
	hCtx, cancel := context.WithTimeout(ctx, feedHandlerTimeout)
	err := handler(hCtx, d)
	cancel()

	if err != nil {
		_ = d.Nack(false, !d.Redelivered)
		return
	}
	_ = d.Ack(false)
}
