package inventory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/iliyamo/car-rental-booking/internal/model"
	"github.com/iliyamo/car-rental-booking/internal/repository/memory"
)

// countingCars wraps the memory store, counts writes and can fail them.
type countingCars struct {
	*memory.CarStore
	inventoryWrites atomic.Int32
	availableWrites atomic.Int32
	failInventory   error
	failAvailable   map[uint64]error
	failAdjust      error
}

func (c *countingCars) UpdateInventory(ctx context.Context, id uint64, q, a int) error {
	c.inventoryWrites.Add(1)
	if c.failInventory != nil {
		return c.failInventory
	}
	return c.CarStore.UpdateInventory(ctx, id, q, a)
}

func (c *countingCars) UpdateAvailable(ctx context.Context, id uint64, a int) error {
	c.availableWrites.Add(1)
	if err := c.failAvailable[id]; err != nil {
		return err
	}
	return c.CarStore.UpdateAvailable(ctx, id, a)
}

func (c *countingCars) AdjustAvailable(ctx context.Context, id uint64, d int) error {
	if c.failAdjust != nil {
		return c.failAdjust
	}
	return c.CarStore.AdjustAvailable(ctx, id, d)
}

type recordedEvent struct {
	typ  string
	data any
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingEmitter) Emit(typ string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{typ, data})
}

func (r *recordingEmitter) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.typ)
	}
	return out
}

var errBoom = errors.New("boom")

func fixture(cars []model.Car, bookings []model.Booking) (*countingCars, *memory.BookingStore) {
	cs := &countingCars{CarStore: memory.NewCarStore(), failAvailable: map[uint64]error{}}
	for _, c := range cars {
		cs.Seed(c)
	}
	bs := memory.NewBookingStore()
	for _, b := range bookings {
		bs.Seed(b)
	}
	return cs, bs
}

func active(carID uint64, n int) []model.Booking {
	out := make([]model.Booking, 0, n)
	for i := 0; i < n; i++ {
		status := model.BookingPending
		if i%2 == 1 {
			status = model.BookingConfirmed
		}
		out = append(out, model.Booking{CarID: carID, Status: status})
	}
	return out
}
