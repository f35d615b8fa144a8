// Package service holds the outbound integrations used by the request
// handlers.  Domain events are published to RabbitMQ; errors are logged and
// never interrupt the request that raised the event.
package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/car-rental-booking/internal/queue"
)

// Publisher delivers one event to the broker.
type Publisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

// RabbitPublisher dials the broker per publish, declares the durable queue
// and sends a persistent JSON message routed through the default exchange.
type RabbitPublisher struct {
	url   string
	queue string
	log   *zap.Logger
}

func NewRabbitPublisher(url, queueName string, log *zap.Logger) *RabbitPublisher {
	return &RabbitPublisher{url: url, queue: queueName, log: log}
}

func (p *RabbitPublisher) Publish(ctx context.Context, ev queue.Event) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Warn("rabbitmq: dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("rabbitmq: channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		p.log.Warn("rabbitmq: queue declare failed", zap.Error(err))
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		MessageId:    ev.ID,
		Type:         ev.Type,
		Timestamp:    ev.OccurredAt,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.log.Warn("rabbitmq: publish failed", zap.Error(err))
		return err
	}
	return nil
}

// Events builds envelopes and hands them to a Publisher in the background.
// A nil *Events is valid and drops everything.
type Events struct {
	pub     Publisher
	log     *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewEvents(pub Publisher, log *zap.Logger) *Events {
	if log == nil {
		log = zap.NewNop()
	}
	return &Events{pub: pub, log: log, timeout: 5 * time.Second}
}

// Emit publishes typ/data asynchronously.  Marshal and publish failures are
// logged only.
func (e *Events) Emit(typ string, data any) {
	if e == nil || e.pub == nil {
		return
	}
	ev, err := queue.NewEvent(typ, data)
	if err != nil {
		e.log.Warn("event encode failed", zap.String("type", typ), zap.Error(err))
		return
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()
		if err := e.pub.Publish(ctx, ev); err != nil {
			e.log.Warn("event publish failed", zap.String("type", typ), zap.String("event_id", ev.ID), zap.Error(err))
		}
	}()
}

// Wait blocks until in-flight publishes finish.
func (e *Events) Wait() {
	if e != nil {
		e.wg.Wait()
	}
}
