package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"food-ordering-api/models"
)

const (
	OrderExchange         = "order_events"
	TypeOrderCreated      = "order.created"
	TypeOrderStatusChange = "order.status_changed"
)

// OrderEvent is the message body published after an order mutation commits
type OrderEvent struct {
	Type         string             `json:"type"`
	OrderID      uint               `json:"order_id"`
	RestaurantID uint               `json:"restaurant_id"`
	CustomerID   uint               `json:"customer_id"`
	OldStatus    models.OrderStatus `json:"old_status,omitempty"`
	NewStatus    models.OrderStatus `json:"new_status"`
	ChangedBy    uint               `json:"changed_by"`
	Timestamp    time.Time          `json:"timestamp"`
}

type Publisher interface {
	PublishOrderEvent(ctx context.Context, evt OrderEvent) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishOrderEvent(context.Context, OrderEvent) error { return nil }
func (NopPublisher) Close() error                                        { return nil }

// AMQPPublisher publishes order events to a fanout exchange
type AMQPPublisher struct {
	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		OrderExchange, // name
		"fanout",      // kind
		true,          // durable
		false,         // auto-deleted
		false,         // internal
		false,         // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", OrderExchange, err)
	}
	return &AMQPPublisher{conn: conn, ch: ch}, nil
}

func (p *AMQPPublisher) PublishOrderEvent(ctx context.Context, evt OrderEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// amqp channels are not safe for concurrent publishes
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx,
		OrderExchange, // exchange
		evt.Type,      // routing key, ignored by fanout but useful to consumers
		false,         // mandatory
		false,         // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    evt.Timestamp,
			Type:         evt.Type,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", evt.Type, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
