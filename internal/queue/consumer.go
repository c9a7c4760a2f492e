package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	// Whole-batch retry contract: one message is attempted at most
	// maxDeliveryAttempts times with a fixed delay between attempts, then
	// dead-lettered.
	maxDeliveryAttempts = 3
	retryDelay          = 5 * time.Second

	attemptHeader = "x-attempt"
)

type RabbitMQConsumer struct {
	client     *RabbitMQ
	prefetch   int
	logger     *zap.Logger
	retryDelay time.Duration
}

func NewRabbitMQConsumer(client *RabbitMQ, prefetch int, logger *zap.Logger) *RabbitMQConsumer {
	if prefetch < 1 {
		prefetch = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RabbitMQConsumer{
		client:     client,
		prefetch:   prefetch,
		logger:     logger,
		retryDelay: retryDelay,
	}
}

func (c *RabbitMQConsumer) Consume(ctx context.Context, queue string, handler MessageHandler) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("consumer is not initialized")
	}
	if queue == "" {
		return fmt.Errorf("queue name is required")
	}
	if handler == nil {
		return fmt.Errorf("message handler is required")
	}

	backoff := reconnectBackoff
	for {
		err := c.consumeOnce(ctx, queue, handler)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			backoff = reconnectBackoff
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (c *RabbitMQConsumer) consumeOnce(ctx context.Context, queue string, handler MessageHandler) error {
	ch, err := c.client.channel(ctx)
	if err != nil {
		return err
	}
	defer ch.Close() //nolint:errcheck // best-effort channel close

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		queue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to consume queue %q: %w", queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}

			if err := c.handleDelivery(ctx, ch, queue, d, handler); err != nil {
				return err
			}
		}
	}
}

func (c *RabbitMQConsumer) handleDelivery(
	ctx context.Context,
	ch *amqp.Channel,
	queue string,
	d amqp.Delivery,
	handler MessageHandler,
) error {
	var msg BulkImportMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		c.logger.Warn("rejecting message: invalid JSON",
			zap.Error(err),
			zap.String("routingKey", d.RoutingKey),
		)
		if rejectErr := d.Reject(false); rejectErr != nil {
			return fmt.Errorf("failed to reject invalid message: %w", rejectErr)
		}
		return nil
	}

	if err := msg.Validate(); err != nil {
		c.logger.Warn("rejecting message: validation failed",
			zap.Error(err),
			zap.String("batchId", msg.BatchID),
		)
		if rejectErr := d.Reject(false); rejectErr != nil {
			return fmt.Errorf("failed to reject invalid payload: %w", rejectErr)
		}
		return nil
	}

	handlerErr := handler(ctx, msg)
	if handlerErr == nil {
		if err := d.Ack(false); err != nil {
			return fmt.Errorf("failed to ack delivery: %w", err)
		}
		return nil
	}

	attempt := attemptFromHeaders(d.Headers)
	if attempt >= maxDeliveryAttempts {
		c.logger.Error("retry budget exhausted, dead-lettering batch",
			zap.String("batchId", msg.BatchID),
			zap.Int64("attempt", attempt),
			zap.Error(handlerErr),
		)
		if rejectErr := d.Reject(false); rejectErr != nil {
			return fmt.Errorf("handler failed and dead-letter reject failed: %w", rejectErr)
		}
		return nil
	}

	c.logger.Warn("batch processing failed, scheduling retry",
		zap.String("batchId", msg.BatchID),
		zap.Int64("attempt", attempt),
		zap.Error(handlerErr),
	)

	select {
	case <-ctx.Done():
		// Shutting down; requeue so another consumer picks the message up.
		if nackErr := d.Nack(false, true); nackErr != nil {
			return fmt.Errorf("failed to requeue message on shutdown: %w", nackErr)
		}
		return nil
	case <-time.After(c.retryDelay):
	}

	if err := c.republish(ctx, ch, queue, d, attempt+1); err != nil {
		// Republish failed; fall back to a broker requeue so the message is
		// not lost, at the cost of an uncounted attempt.
		if nackErr := d.Nack(false, true); nackErr != nil {
			return fmt.Errorf("republish failed (%v) and nack failed: %w", err, nackErr)
		}
		return nil
	}

	if err := d.Ack(false); err != nil {
		return fmt.Errorf("failed to ack retried delivery: %w", err)
	}

	return nil
}

func (c *RabbitMQConsumer) republish(
	ctx context.Context,
	ch *amqp.Channel,
	queue string,
	d amqp.Delivery,
	nextAttempt int64,
) error {
	headers := amqp.Table{}
	for k, v := range d.Headers {
		headers[k] = v
	}
	headers[attemptHeader] = nextAttempt

	publishing := amqp.Publishing{
		ContentType:  d.ContentType,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    d.MessageId,
		Headers:      headers,
		Body:         d.Body,
	}

	return ch.PublishWithContext(ctx, "", queue, false, false, publishing)
}

func attemptFromHeaders(headers amqp.Table) int64 {
	if headers == nil {
		return 1
	}

	switch v := headers[attemptHeader].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	default:
		return 1
	}
}

func (c *RabbitMQConsumer) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
