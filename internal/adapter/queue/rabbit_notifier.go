package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/BotCoder254/projects254/internal/usecase"
	amqp "github.com/rabbitmq/amqp091-go"
)

// publishChannel is the part of *amqp.Channel used for topology and publishing.
type publishChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RabbitNotifier publishes admin events to a topic exchange, routing key =
// event type.
type RabbitNotifier struct {
	ch       publishChannel
	exchange string
}

// NewRabbitNotifier declares the exchange once at startup.
func NewRabbitNotifier(ch publishChannel, exchange string) (*RabbitNotifier, error) {
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &RabbitNotifier{ch: ch, exchange: exchange}, nil
}

func (p *RabbitNotifier) Publish(ctx context.Context, ev usecase.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Transient, // live dashboard events are stale after a restart
		Type:         ev.Type,
		Timestamp:    ev.OccurredAt,
		Body:         body,
	}
	if err := p.ch.PublishWithContext(
		ctx,
		p.exchange, // exchange
		ev.Type,    // routing key
		false,      // mandatory
		false,      // immediate
		pub,
	); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// DeclareQueue declares a durable queue bound to exchange for each key.
func DeclareQueue(ch publishChannel, exchange, queue string, keys ...string) error {
	q, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	for _, k := range keys {
		if err := ch.QueueBind(q.Name, k, exchange, false, nil); err != nil {
			return fmt.Errorf("queue bind %s: %w", k, err)
		}
	}
	return nil
}

// NopNotifier drops every event. Used when no broker is configured.
type NopNotifier struct{}

func (NopNotifier) Publish(context.Context, usecase.Event) error { return nil }

var (
	_ usecase.Notifier = (*RabbitNotifier)(nil)
	_ usecase.Notifier = NopNotifier{}
)
