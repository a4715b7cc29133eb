package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BotCoder254/projects254/internal/logging"
	amqp "github.com/rabbitmq/amqp091-go"
)

// consumeChannel is the part of *amqp.Channel the Router needs.
type consumeChannel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Router manages multiple consumers (one per registered queue) on a single AMQP channel.
type Router struct {
	ch            consumeChannel
	prefetch      int
	callTimeout   time.Duration
	requeueOnErr  bool
	log           *slog.Logger
	registrations []registration
}

type registration struct {
	queueName   string
	handler     Handler
	consumerTag string
}

// --- Options ---

type RouterOption func(*Router)

func WithPrefetch(n int) RouterOption          { return func(r *Router) { r.prefetch = n } }
func WithTimeout(d time.Duration) RouterOption { return func(r *Router) { r.callTimeout = d } }
func WithRequeue(b bool) RouterOption          { return func(r *Router) { r.requeueOnErr = b } }

// NewRouter constructs a Router. Defaults: prefetch=50, timeout=10s, requeueOnErr=true.
func NewRouter(ch consumeChannel, opts ...RouterOption) *Router {
	r := &Router{
		ch:           ch,
		prefetch:     50,
		callTimeout:  10 * time.Second,
		requeueOnErr: true,
		log:          logging.New("rmq-router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register associates a queue with a handler. Call multiple times for multiple queues.
func (r *Router) Register(queueName string, h Handler) {
	r.registrations = append(r.registrations, registration{
		queueName:   queueName,
		handler:     h,
		consumerTag: "c_" + queueName,
	})
}

// Start begins consuming; non-blocking (spawns one goroutine per queue).
// QoS (prefetch) is set per-channel and applies to all consumers on this channel.
// Consumers stop when the channel is closed.
func (r *Router) Start() error {
	if err := r.ch.Qos(r.prefetch, 0, false); err != nil {
		return err
	}

	for _, reg := range r.registrations {
		deliveries, err := r.ch.Consume(
			reg.queueName,
			reg.consumerTag,
			false, // manual ack
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,
		)
		if err != nil {
			return err
		}
		go r.consume(reg, deliveries)
	}
	return nil
}

func (r *Router) consume(reg registration, msgs <-chan amqp.Delivery) {
	log := r.log.With("queue", reg.queueName, "tag", reg.consumerTag)
	for d := range msgs {
		err := r.dispatch(reg.handler, log, d)

		if err != nil {
			requeue := r.requeueOnErr && !errors.Is(err, ErrPoison) && !d.Redelivered
			log.Warn("handler error", "rk", d.RoutingKey, "err", err, "requeue", requeue)
			_ = d.Nack(false, requeue)
			continue
		}
		_ = d.Ack(false)
	}
	log.Info("consumer stopped")
}

// dispatch runs one delivery. A panicking handler is treated as poison.
func (r *Router) dispatch(h Handler, log *slog.Logger, d amqp.Delivery) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.callTimeout)
	defer cancel()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: handler panic: %v", ErrPoison, p)
		}
	}()
	return h.Handle(logging.WithCtx(ctx, log), d)
}
