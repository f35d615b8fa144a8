// Package queue defines the domain events exchanged over the message broker
// and the background consumer that records them.
package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types published to the booking.events queue.
const (
	TypeBookingCreated       = "booking.created"
	TypeBookingStatusChanged = "booking.status_changed"
	TypeCarQuantityChanged   = "car.quantity_changed"
	TypeInventoryReconciled  = "inventory.reconciled"
)

// Event is the envelope of every message.  ID doubles as the AMQP message
// id so consumers can drop redeliveries.
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// NewEvent wraps data in an envelope with a fresh id.
func NewEvent(typ string, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	}, nil
}

// BookingCreated is published after a booking row was inserted.
type BookingCreated struct {
	BookingID   uint64  `json:"booking_id"`
	UserID      uint64  `json:"user_id"`
	CarID       uint64  `json:"car_id"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	TotalAmount float64 `json:"total_amount"`
	NeedDriver  bool    `json:"need_driver"`
}

// BookingStatusChanged is published when an admin moves a booking to a new
// status.  Restored tells whether a unit of availability was given back.
type BookingStatusChanged struct {
	BookingID uint64 `json:"booking_id"`
	CarID     uint64 `json:"car_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Restored  bool   `json:"restored"`
}

// CarQuantityChanged is published when a debounced quantity burst settles.
type CarQuantityChanged struct {
	CarID     uint64 `json:"car_id"`
	Quantity  int    `json:"quantity"`
	Available int    `json:"available"`
	AdminID   uint64 `json:"admin_id"`
}

// InventoryReconciled summarizes one reconciliation pass.
type InventoryReconciled struct {
	Checked   int `json:"checked"`
	Corrected int `json:"corrected"`
	Failed    int `json:"failed"`
}
