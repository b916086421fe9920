package rabbitmq_consumer

import (
	"context"
	"fmt"
	"time"

	"cost-engine-service/pkg/rabbitmq/rabbitmq_common"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageHandler processes one delivery. The consumer acks on nil and
// retries or dead-letters on error.
type MessageHandler func(delivery amqp.Delivery) error

// DistributingConsumer runs the handler for every delivery in its own goroutine.
type DistributingConsumer struct {
	base    *baseConsumer
	handler MessageHandler
}

func NewDistributingConsumer(cfg ConsumerConfig, handler MessageHandler, connManager *rabbitmq_common.ConnectionManager) (*DistributingConsumer, error) {
	if handler == nil {
		return nil, fmt.Errorf("distributing consumer: message handler is required")
	}
	bc, err := newBaseConsumer(cfg, connManager)
	if err != nil {
		return nil, fmt.Errorf("distributing consumer: %w", err)
	}
	return &DistributingConsumer{base: bc, handler: handler}, nil
}

// StartConsuming blocks until ctx is cancelled (returns nil) or the
// connection is closed (returns the broker error).
func (c *DistributingConsumer) StartConsuming(ctx context.Context) error {
	b := c.base
	if b.channel == nil || b.connection == nil || b.connection.IsClosed() {
		return fmt.Errorf("distributing consumer: not connected")
	}

	msgs, err := b.channel.Consume(
		b.actualQueueName,
		b.config.ConsumerTag,
		false, // auto-ack
		b.config.ExclusiveConsumer,
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("distributing consumer %s: failed to consume from '%s': %w", b.config.ConsumerTag, b.actualQueueName, err)
	}

	b.Logger.Info("Waiting for messages", "queue", b.actualQueueName)

	go c.dispatch(ctx, msgs)

	notifyClose := b.connection.NotifyClose(make(chan *amqp.Error, 1))
	select {
	case <-ctx.Done():
		b.Logger.Info("Context cancelled, stopping consumer", "consumer_tag", b.config.ConsumerTag)
		return nil
	case err := <-notifyClose:
		b.Logger.Error(err, "Connection closed under consumer", "consumer_tag", b.config.ConsumerTag)
		return err
	}
}

func (c *DistributingConsumer) dispatch(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		// stop before taking another message once cancelled
		select {
		case <-ctx.Done():
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				c.base.Logger.Info("Delivery channel closed", "consumer_tag", c.base.config.ConsumerTag)
				return
			}
			c.base.wg.Add(1)
			go func(delivery amqp.Delivery) {
				defer c.base.wg.Done()
				c.handle(delivery)
			}(d)
		}
	}
}

func (c *DistributingConsumer) handle(d amqp.Delivery) {
	b := c.base
	err := c.handler(d)
	if err == nil {
		_ = d.Ack(false)
		b.Logger.Debug("Message acked", "delivery_tag", d.DeliveryTag)
		return
	}

	b.Logger.Error(err, "Handler failed", "delivery_tag", d.DeliveryTag)

	if !b.config.EnableRetryMechanism {
		_ = d.Nack(false, false)
		return
	}

	deaths := deathCount(d, b.actualQueueName)
	if deaths < int64(b.config.MaxRetries) {
		b.Logger.Info("Retrying message", "delivery_tag", d.DeliveryTag, "death_count", deaths)
		_ = d.Nack(false, false)
		return
	}

	b.Logger.Warn("Max retries reached, publishing to final DLX", "delivery_tag", d.DeliveryTag)
	err = b.finalDlxPublisher.Publish(context.Background(), b.config.FinalDLQRoutingKey, amqp.Publishing{
		ContentType:  d.ContentType,
		Body:         d.Body,
		Headers:      d.Headers,
		Timestamp:    time.Now(),
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		b.Logger.Error(err, "Failed to publish to final DLX, retrying again", "delivery_tag", d.DeliveryTag)
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

func (c *DistributingConsumer) Close() error {
	c.base.Logger.Info("Closing consumer")
	return c.base.Close()
}
