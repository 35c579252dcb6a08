package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ErrRequeue marks a handler failure as transient. The consumer nacks the
// delivery back onto the queue so the broker redelivers it.
var ErrRequeue = errors.New("mq: transient failure, requeue delivery")

type MessageHandler func(ctx context.Context, data json.RawMessage) error

type Consumer struct {
	channel    *amqp091.Channel
	queue      amqp091.Queue
	routingKey string
	handler    MessageHandler
	dlq        *Publisher
	conn       *amqp091.Connection
	logger     *zap.Logger
}

// NewConsumer creates a consumer for a specific routing key.
func NewConsumer(url, queueName, routingKey string, logger *zap.Logger) (*Consumer, error) {
	conn, err := NewConnection(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := DeclareExchange(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	err = ch.QueueBind(
		q.Name,
		routingKey,
		ExchangeName,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	logger.Info("Consumer initialized",
		zap.String("routing_key", routingKey),
		zap.String("queue", queueName),
		zap.String("exchange", ExchangeName),
	)

	return &Consumer{
		conn:       conn,
		channel:    ch,
		queue:      q,
		routingKey: routingKey,
		logger:     logger,
	}, nil
}

func (c *Consumer) SetHandler(h MessageHandler) {
	c.handler = h
}

// SetDLQ routes deliveries that fail terminally to the dead letter exchange
// instead of silently dropping them.
func (c *Consumer) SetDLQ(p *Publisher) {
	c.dlq = p
}

// IsConnected checks if the consumer connection is still alive.
func (c *Consumer) IsConnected() bool {
	if c.conn == nil || c.channel == nil {
		return false
	}
	return !c.conn.IsClosed()
}

func (c *Consumer) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// StartConsuming starts consuming messages. This method blocks and should be
// called in a goroutine.
//
// Ack policy: nil result acks; ErrRequeue nacks back onto the queue; any other
// error is terminal, so the message goes to the DLQ (when configured) and is
// acked to stop redelivery.
func (c *Consumer) StartConsuming() error {
	if c.handler == nil {
		return fmt.Errorf("consumer handler not set")
	}

	deliveries, err := c.channel.Consume(
		c.queue.Name,
		"worker",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Consumer started consuming messages",
		zap.String("routing_key", c.routingKey),
		zap.String("queue", c.queue.Name),
	)

	for msg := range deliveries {
		func() {
			ctx := context.Background()

			c.logger.Debug("Received message",
				zap.String("routing_key", c.routingKey),
				zap.String("queue", c.queue.Name),
				zap.Int("message_size", len(msg.Body)),
			)

			// A panicking handler must not leave the delivery unacked.
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error("Handler panic recovered",
						zap.String("routing_key", c.routingKey),
						zap.String("queue", c.queue.Name),
						zap.Any("panic", r),
					)
					if err := msg.Nack(false, true); err != nil {
						c.logger.Error("Failed to nack message after panic",
							zap.String("routing_key", c.routingKey),
							zap.Error(err),
						)
					}
				}
			}()

			handleErr := c.handler(ctx, msg.Body)
			if handleErr == nil {
				if err := msg.Ack(false); err != nil {
					c.logger.Error("Failed to ack message",
						zap.String("routing_key", c.routingKey),
						zap.Error(err),
					)
				}
				return
			}

			if errors.Is(handleErr, ErrRequeue) {
				c.logger.Warn("Handler requested redelivery",
					zap.String("routing_key", c.routingKey),
					zap.String("queue", c.queue.Name),
					zap.Error(handleErr),
				)
				if err := msg.Nack(false, true); err != nil {
					c.logger.Error("Failed to nack message",
						zap.String("routing_key", c.routingKey),
						zap.Error(err),
					)
				}
				return
			}

			// Terminal failure: redelivery cannot fix it.
			c.logger.Error("Handler error, message not retryable",
				zap.String("routing_key", c.routingKey),
				zap.String("queue", c.queue.Name),
				zap.Error(handleErr),
			)
			if c.dlq != nil {
				if err := c.dlq.PublishToDLQ(c.routingKey, msg.Body, handleErr.Error()); err != nil {
					c.logger.Error("Failed to publish message to DLQ",
						zap.String("routing_key", c.routingKey),
						zap.Error(err),
					)
				}
			}
			if err := msg.Ack(false); err != nil {
				c.logger.Error("Failed to ack message",
					zap.String("routing_key", c.routingKey),
					zap.Error(err),
				)
			}
		}()
	}

	return nil
}
