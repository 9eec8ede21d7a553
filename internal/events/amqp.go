package events

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const publishTimeout = 10 * time.Second

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPForwarder republishes bus events to a topic exchange, routed by type.
type AMQPForwarder struct {
	conn     *amqp.Connection
	channel  amqpChannel
	exchange string
	logger   *zerolog.Logger
}

// DialAMQP connects and declares a durable topic exchange.
func DialAMQP(url, exchange string, logger *zerolog.Logger) (*AMQPForwarder, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}
	f := newAMQPForwarder(ch, exchange, logger)
	f.conn = conn
	return f, nil
}

func newAMQPForwarder(ch amqpChannel, exchange string, logger *zerolog.Logger) *AMQPForwarder {
	return &AMQPForwarder{channel: ch, exchange: exchange, logger: logger}
}

// Handle is an EventHandler.
func (f *AMQPForwarder) Handle(event *Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.CreatedAt,
		Type:         event.Type,
		Body:         event.Payload,
	}
	if err := f.channel.PublishWithContext(ctx, f.exchange, event.Type, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	f.logger.Debug().Str("event", event.Type).Str("exchange", f.exchange).Msg("event forwarded")
	return nil
}

func (f *AMQPForwarder) Close() error {
	var first error
	if f.channel != nil {
		if err := f.channel.Close(); err != nil {
			first = err
		}
	}
	if f.conn != nil {
		if err := f.conn.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
