// Package events publishes order lifecycle events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"coffeeshop/pkg/logger"
	"coffeeshop/pkg/order"
)

const (
	ExchangeType      = "topic"
	RoutingKeyCreated = "order.created"
)

// OrderEvent is the message body published for an order.
type OrderEvent struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Order      order.Order `json:"order"`
}

// Publisher implements order.Publisher on a RabbitMQ topic exchange.
type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string

	// amqp channels must not be used for concurrent publishes.
	mu sync.Mutex
}

// Connect dials url, retrying a few times while the broker starts, and
// declares the exchange.
func Connect(url, exchange string, log *logger.Logger) (*Publisher, error) {
	var conn *amqp.Connection
	var err error
	for i := 0; i < 5; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		log.Warn(context.Background(), "rabbitmq connect failed", "attempt", i+1, "error", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("could not connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange,     // name
		ExchangeType, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not declare exchange: %w", err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// PublishOrderCreated sends an order.created event.
func (p *Publisher) PublishOrderCreated(ctx context.Context, o order.Order) error {
	msg, err := NewCreatedMessage(o, time.Now())
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx,
		p.exchange,        // exchange
		RoutingKeyCreated, // routing key
		false,             // mandatory
		false,             // immediate
		msg,
	)
}

// Close shuts the channel and connection down.
func (p *Publisher) Close() error {
	p.ch.Close()
	return p.conn.Close()
}

// NewCreatedMessage builds the persistent JSON message for an order.
func NewCreatedMessage(o order.Order, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(OrderEvent{Type: RoutingKeyCreated, OccurredAt: now.UTC(), Order: o})
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("could not marshal order event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    o.ID,
		Timestamp:    now.UTC(),
		Type:         RoutingKeyCreated,
		Body:         body,
	}, nil
}
