package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/wolfman30/hospital-assistant/pkg/logging"
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher delivers outbox entries to a topic exchange. The routing key
// is the event type.
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  amqpChannel
	exchange string
	logger   *logging.Logger
}

// DialAMQP connects and declares the exchange.
func DialAMQP(url, exchange string, logger *logging.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("events: dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("events: open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("events: declare exchange %s: %w", exchange, err)
	}
	p := newAMQPPublisher(ch, exchange, logger)
	p.conn = conn
	return p, nil
}

func newAMQPPublisher(ch amqpChannel, exchange string, logger *logging.Logger) *AMQPPublisher {
	if logger == nil {
		logger = logging.Default()
	}
	return &AMQPPublisher{channel: ch, exchange: exchange, logger: logger}
}

func (p *AMQPPublisher) Handle(ctx context.Context, entry OutboxEntry) error {
	env, err := NewEnvelope("hospital:"+entry.HospitalID, entry.Type, entry.Payload,
		WithEventID(entry.ID), WithTimestamp(entry.CreatedAt))
	if err != nil {
		return err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("events: marshal envelope: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    entry.ID.String(),
		Type:         entry.Type,
		Timestamp:    time.UnixMicro(env.TimestampMicros).UTC(),
		Headers:      amqp.Table{"hospital_id": entry.HospitalID},
		Body:         body,
	}
	if err := p.channel.PublishWithContext(ctx, p.exchange, entry.Type, false, false, msg); err != nil {
		return fmt.Errorf("events: publish %s: %w", entry.Type, err)
	}
	p.logger.Debug("outcome published", "event_id", entry.ID, "type", entry.Type)
	return nil
}

// Close releases the channel and connection.
func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
