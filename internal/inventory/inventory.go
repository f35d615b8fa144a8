// Package inventory keeps the denormalized cars.available column in step
// with the bookings that hold units of a car.
//
// Three writers touch that column: the booking lifecycle (create takes one
// unit, cancel gives one back), the debounced quantity adjuster used by
// admins, and the reconciler that recomputes it from the active booking
// count.  None of them lock; the reconciler is what makes the value
// eventually correct after a race.
package inventory

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/iliyamo/car-rental-booking/internal/model"
	"github.com/iliyamo/car-rental-booking/internal/repository"
)

var tracer = otel.Tracer("github.com/iliyamo/car-rental-booking/internal/inventory")

// CarStore is the part of the car repository this package writes through.
type CarStore interface {
	List(ctx context.Context, f repository.CarFilter) ([]model.Car, error)
	GetByID(ctx context.Context, id uint64) (model.Car, error)
	UpdateAvailable(ctx context.Context, id uint64, available int) error
	UpdateInventory(ctx context.Context, id uint64, quantity, available int) error
	AdjustAvailable(ctx context.Context, id uint64, delta int) error
}

// BookingStore is the part of the booking repository this package uses.
type BookingStore interface {
	List(ctx context.Context) ([]model.Booking, error)
	GetByID(ctx context.Context, id uint64) (model.Booking, error)
	Create(ctx context.Context, b *model.Booking) error
	SetStatus(ctx context.Context, id uint64, status string) (bool, error)
	CountActiveByCar(ctx context.Context, carID uint64) (int, error)
}

// Emitter receives domain events.  Implementations must not block.
type Emitter interface {
	Emit(typ string, data any)
}

type nopEmitter struct{}

func (nopEmitter) Emit(string, any) {}

// Service runs reconciliation and the booking lifecycle.
type Service struct {
	cars     CarStore
	bookings BookingStore
	events   Emitter
	log      *zap.Logger
}

// NewService wires a Service.  A nil emitter or logger is replaced by a
// no-op.
func NewService(cars CarStore, bookings BookingStore, events Emitter, log *zap.Logger) *Service {
	if events == nil {
		events = nopEmitter{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{cars: cars, bookings: bookings, events: events, log: log.Named("inventory")}
}

// ActiveCounts returns the number of pending or confirmed bookings per car.
func ActiveCounts(bookings []model.Booking) map[uint64]int {
	counts := make(map[uint64]int)
	for _, b := range bookings {
		if b.IsActive() {
			counts[b.CarID]++
		}
	}
	return counts
}

// ExpectedAvailable is quantity minus active bookings, never below zero.
func ExpectedAvailable(quantity, active int) int {
	return max(0, quantity-active)
}
