package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Consumer listens to the events queue and appends one line per event to a
// log file.
type Consumer struct {
	URL     string
	Queue   string
	LogPath string
	Log     *zap.Logger
}

// Run connects to RabbitMQ, declares the queue (durable) and consumes until
// ctx is cancelled.  Broken connections are retried with exponential
// backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	if c.Log == nil {
		c.Log = zap.NewNop()
	}
	log := c.Log
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			log.Warn("event consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("event consumer: consume loop ended, reconnecting", zap.Error(err))
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Handle(d.Body); err != nil {
				c.Log.Warn("event consumer: handle message failed", zap.Error(err))
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle decodes one message body and appends its line to LogPath.
func (c *Consumer) Handle(body []byte) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line, err := FormatLine(ev)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.LogPath), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(c.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders an event as a single human-friendly log line.
func FormatLine(ev Event) (string, error) {
	ts := ev.OccurredAt.UTC().Format(time.RFC3339)
	var body string
	switch ev.Type {
	case TypeBookingCreated:
		var p BookingCreated
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return "", fmt.Errorf("decode %s: %w", ev.Type, err)
		}
		body = fmt.Sprintf("Booking created | booking_id=%d | user_id=%d | car_id=%d | from=%s %s | to=%s %s | total=%.2f | driver=%t",
			p.BookingID, p.UserID, p.CarID, p.StartDate, p.StartTime, p.EndDate, p.EndTime, p.TotalAmount, p.NeedDriver)
	case TypeBookingStatusChanged:
		var p BookingStatusChanged
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return "", fmt.Errorf("decode %s: %w", ev.Type, err)
		}
		body = fmt.Sprintf("Booking status changed | booking_id=%d | car_id=%d | %s -> %s | restored=%t",
			p.BookingID, p.CarID, p.From, p.To, p.Restored)
	case TypeCarQuantityChanged:
		var p CarQuantityChanged
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return "", fmt.Errorf("decode %s: %w", ev.Type, err)
		}
		body = fmt.Sprintf("Car quantity changed | car_id=%d | quantity=%d | available=%d | admin_id=%d",
			p.CarID, p.Quantity, p.Available, p.AdminID)
	case TypeInventoryReconciled:
		var p InventoryReconciled
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return "", fmt.Errorf("decode %s: %w", ev.Type, err)
		}
		body = fmt.Sprintf("Inventory reconciled | checked=%d | corrected=%d | failed=%d", p.Checked, p.Corrected, p.Failed)
	default:
		body = fmt.Sprintf("Event %s | data=%s", ev.Type, string(ev.Data))
	}
	return fmt.Sprintf("[%s] %s | event_id=%s\n", ts, body, ev.ID), nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
