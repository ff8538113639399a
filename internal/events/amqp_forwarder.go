package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/spec-kit/field-service/internal/config"
)

// Publisher is the subset of *amqp.Channel the forwarder needs.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPForwarder republishes dispatcher events on a RabbitMQ topic exchange.
type AMQPForwarder struct {
	ch       Publisher
	exchange string
	log      *zap.Logger
	closers  []func() error
}

// RoutingKey is the topic key an event type is published under.
func RoutingKey(t EventType) string {
	return "assignment." + string(t)
}

// NewAMQPForwarder wraps an open channel.
func NewAMQPForwarder(ch Publisher, exchange string, log *zap.Logger) *AMQPForwarder {
	return &AMQPForwarder{ch: ch, exchange: exchange, log: log}
}

// DialAMQPForwarder connects with incremental backoff and declares the topic exchange.
func DialAMQPForwarder(ctx context.Context, cfg config.BrokerConfig, log *zap.Logger) (*AMQPForwarder, error) {
	const maxRetries = 5

	var err error
	for i := 1; i <= maxRetries; i++ {
		var conn *amqp.Connection
		conn, err = amqp.Dial(cfg.URL)
		if err == nil {
			var ch *amqp.Channel
			ch, err = conn.Channel()
			if err == nil {
				err = ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil)
				if err == nil {
					f := NewAMQPForwarder(ch, cfg.Exchange, log)
					f.closers = []func() error{ch.Close, conn.Close}
					log.Info("connected to rabbitmq", zap.String("exchange", cfg.Exchange))
					return f, nil
				}
			}
			_ = conn.Close()
		}

		log.Warn("failed to connect to rabbitmq, retrying",
			zap.Int("attempt", i),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i) * time.Second):
		}
	}
	return nil, fmt.Errorf("connect to rabbitmq after %d attempts: %w", maxRetries, err)
}

// Register subscribes the forwarder to every event type.
func (f *AMQPForwarder) Register(d Dispatcher) {
	SubscribeAll(d, f.Forward)
}

// Forward publishes one event as persistent JSON.
func (f *AMQPForwarder) Forward(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}

	key := RoutingKey(event.Type)
	err = f.ch.PublishWithContext(ctx, f.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.Timestamp,
		Type:         string(event.Type),
		Body:         body,
	})
	if err != nil {
		f.log.Error("failed to publish event", zap.String("event_id", event.ID), zap.String("key", key), zap.Error(err))
		return err
	}
	f.log.Debug("published event", zap.String("event_id", event.ID), zap.String("key", key))
	return nil
}

// Close shuts the channel and connection opened by DialAMQPForwarder.
func (f *AMQPForwarder) Close() {
	if f == nil {
		return
	}
	for _, c := range f.closers {
		_ = c()
	}
}
