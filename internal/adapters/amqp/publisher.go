// Package amqpad publishes booking lifecycle events to a RabbitMQ topic exchange.
package amqpad

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"hotel_booking/internal/domain"
)

const (
	ExchangeName = "hotel.bookings"
	ExchangeType = "topic"
)

// Queues bound by Connect; the routing key is the event type.
var Queues = []string{domain.EventBookingCreated, domain.EventBookingConfirmed}

type Publisher struct {
	mu   sync.Mutex // amqp channels are not safe for concurrent publishing
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Connect dials the broker with a short retry loop and declares the exchange plus
// one durable queue per event type.
func Connect(url string, attempts int) (*Publisher, error) {
	if attempts < 1 {
		attempts = 1
	}
	var conn *amqp.Connection
	var err error
	for i := 0; i < attempts; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("rabbitmq dial failed")
		if i+1 < attempts {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("could not connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("could not open channel: %w", err)
	}
	if err := declare(ch); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &Publisher{conn: conn, ch: ch}, nil
}

func declare(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(
		ExchangeName, // name
		ExchangeType, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	); err != nil {
		return fmt.Errorf("could not declare exchange: %w", err)
	}
	for _, q := range Queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("could not declare queue %s: %w", q, err)
		}
		if err := ch.QueueBind(q, q, ExchangeName, false, nil); err != nil {
			return fmt.Errorf("could not bind queue %s: %w", q, err)
		}
	}
	return nil
}

func (p *Publisher) Publish(ctx context.Context, e domain.BookingEvent) error {
	msg, err := Encode(e)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx,
		ExchangeName, // exchange
		e.Type,       // routing key
		false,        // mandatory
		false,        // immediate
		msg,
	)
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.ch.Close()
	return p.conn.Close()
}

// Encode builds the persistent JSON message for an event.
func Encode(e domain.BookingEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("could not marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.BookingID + ":" + e.Type,
		Timestamp:    e.OccurredAt.UTC(),
		Type:         e.Type,
		Body:         body,
	}, nil
}

// Noop drops events; used when no broker is configured.
type Noop struct{}

func (Noop) Publish(ctx context.Context, e domain.BookingEvent) error {
	log.Debug().Str("event", e.Type).Str("booking_id", e.BookingID).Msg("event dropped: no broker configured")
	return nil
}
