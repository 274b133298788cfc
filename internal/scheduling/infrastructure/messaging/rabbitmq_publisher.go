// Package messaging publishes scheduling domain events (TaskPlaced,
// TaskPreempted, TaskFrozen, ScheduleConverged/Failed) to RabbitMQ, routed
// by the event's own RoutingKey(). It is the publisher half of the outbox
// pattern: internal/shared/infrastructure/outbox drains events into these
// methods, decoupling a run's transaction from network delivery.
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/felixgeelhaar/chronoforge/internal/shared/infrastructure/eventbus"
)

var _ eventbus.Publisher = (*RabbitMQPublisher)(nil)

// ExchangeName is the topic exchange every scheduling domain event is
// published to, routed by its own routing key (e.g.
// "scheduling.schedule.converged").
const ExchangeName = "chronoforge.scheduling.events"

// RabbitMQPublisher publishes scheduling domain events to RabbitMQ.
type RabbitMQPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewRabbitMQPublisher dials url, opens a channel, and declares the durable
// topic exchange scheduling events publish to.
func NewRabbitMQPublisher(url string, logger *slog.Logger) (*RabbitMQPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		ExchangeName,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	logger.Info("scheduling event publisher connected", "exchange", ExchangeName)

	return &RabbitMQPublisher{
		conn:     conn,
		channel:  ch,
		exchange: ExchangeName,
		logger:   logger,
	}, nil
}

// Publish sends payload to the exchange under routingKey, satisfying
// eventbus.Publisher so the shared outbox processor can drive it directly.
func (p *RabbitMQPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.channel.PublishWithContext(ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         payload,
		},
	)
	if err != nil {
		p.logger.Error("failed to publish schedule event", "routing_key", routingKey, "error", err)
		return err
	}

	p.logger.Debug("schedule event published", "routing_key", routingKey, "size", len(payload))
	return nil
}

// Close tears down the channel and connection.
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.logger.Warn("error closing channel", "error", err)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return err
		}
	}

	p.logger.Info("scheduling event publisher closed")
	return nil
}
