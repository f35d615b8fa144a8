package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/iliyamo/car-rental-booking/internal/model"
	"github.com/iliyamo/car-rental-booking/internal/queue"
	"github.com/iliyamo/car-rental-booking/internal/repository"
)

// Notification levels.
const (
	LevelInfo  = "info"
	LevelError = "error"
)

const maxNotifications = 50

// Notification is a human-readable outcome of a background operation,
// collected per admin session and drained by the console.
type Notification struct {
	Level   string    `json:"level"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	CarID   uint64    `json:"carId,omitempty"`
	At      time.Time `json:"at"`
}

// Adjuster debounces admin quantity changes.  Each admin gets a Session
// holding an optimistic projection of the cars it touched and one pending
// timer per car.
type Adjuster struct {
	cars     CarStore
	bookings BookingStore
	events   Emitter
	log      *zap.Logger
	delay    time.Duration
	timeout  time.Duration

	mu       sync.Mutex
	sessions map[uint64]*Session
}

// NewAdjuster returns an Adjuster that persists a burst once no further
// change arrived for delay.
func NewAdjuster(cars CarStore, bookings BookingStore, events Emitter, log *zap.Logger, delay time.Duration) *Adjuster {
	if events == nil {
		events = nopEmitter{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Adjuster{
		cars:     cars,
		bookings: bookings,
		events:   events,
		log:      log.Named("quantity"),
		delay:    delay,
		timeout:  5 * time.Second,
		sessions: make(map[uint64]*Session),
	}
}

// Session returns the session of adminID, creating it on first use.
func (a *Adjuster) Session(adminID uint64) *Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sessions[adminID]
	if !ok {
		s = &Session{
			adminID: adminID,
			a:       a,
			cars:    make(map[uint64]model.Car),
			pending: make(map[uint64]*pendingAdjust),
		}
		s.idle = sync.NewCond(&s.mu)
		a.sessions[adminID] = s
	}
	return s
}

// Flush settles every outstanding burst of every session immediately.
// Called on shutdown.
func (a *Adjuster) Flush() {
	a.mu.Lock()
	sessions := make([]*Session, 0, len(a.sessions))
	for _, s := range a.sessions {
		sessions = append(sessions, s)
	}
	a.mu.Unlock()
	for _, s := range sessions {
		s.Flush()
	}
}

type pendingAdjust struct {
	timer    *time.Timer
	snapshot model.Car // value before the burst started
	gen      uint64
}

// Session is one admin's view of the fleet while adjusting quantities.
type Session struct {
	adminID uint64
	a       *Adjuster

	mu      sync.Mutex
	cars    map[uint64]model.Car
	pending map[uint64]*pendingAdjust
	notes   []Notification

	// inflight counts armed or running settles; idle is signalled when it
	// drops to zero.  Both are guarded by mu.
	inflight int
	idle     *sync.Cond
}

// Load replaces the projection with freshly listed cars.  Cars with a burst
// in flight keep their optimistic values.
func (s *Session) Load(cars []model.Car) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(map[uint64]model.Car, len(cars))
	for _, c := range cars {
		if _, busy := s.pending[c.ID]; busy {
			if cur, ok := s.cars[c.ID]; ok {
				next[c.ID] = cur
				continue
			}
		}
		next[c.ID] = c
	}
	s.cars = next
}

// Cars returns the projection ordered by id.
func (s *Session) Cars() []model.Car {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Car, 0, len(s.cars))
	for _, c := range s.cars {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Adjust applies delta to the projected quantity of carID right away and
// (re)arms the car's timer.  Only the value standing when the timer fires
// is persisted.  A result below zero is rejected without touching
// anything.
func (s *Session) Adjust(ctx context.Context, carID uint64, delta int) (model.Car, error) {
	if err := s.ensure(ctx, carID); err != nil {
		return model.Car{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.cars[carID]
	next := cur.Quantity + delta
	if next < 0 {
		s.notifyLocked(LevelError, "Invalid quantity", "Quantity cannot be negative.", carID)
		return cur, ErrNegativeQuantity
	}

	p, ok := s.pending[carID]
	if !ok {
		p = &pendingAdjust{snapshot: cur}
		s.pending[carID] = p
	} else if p.timer.Stop() {
		s.inflight--
	}
	p.gen++
	gen := p.gen

	cur.Quantity = next
	cur.Available = max(0, cur.Available+delta)
	s.cars[carID] = cur

	s.inflight++
	p.timer = time.AfterFunc(s.a.delay, func() { s.settle(carID, gen) })
	return cur, nil
}

// Flush settles this session's outstanding bursts now and waits until no
// settle is armed or running.  Adjustments made while Flush runs are
// waited for too.
func (s *Session) Flush() {
	type due struct{ carID, gen uint64 }
	s.mu.Lock()
	var run []due
	for id, p := range s.pending {
		if p.timer.Stop() {
			run = append(run, due{id, p.gen})
		}
	}
	s.mu.Unlock()
	for _, d := range run {
		s.settle(d.carID, d.gen)
	}
	s.mu.Lock()
	for s.inflight > 0 {
		s.idle.Wait()
	}
	s.mu.Unlock()
}

// Notifications returns and clears the collected notifications.
func (s *Session) Notifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.notes
	s.notes = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}

func (s *Session) ensure(ctx context.Context, carID uint64) error {
	s.mu.Lock()
	_, ok := s.cars[carID]
	s.mu.Unlock()
	if ok {
		return nil
	}
	c, err := s.a.cars.GetByID(ctx, carID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if _, ok := s.cars[carID]; !ok {
		s.cars[carID] = c
	}
	s.mu.Unlock()
	return nil
}

// settle persists the burst identified by gen.  A stale gen means a newer
// change superseded it.
func (s *Session) settle(carID, gen uint64) {
	defer s.done()

	s.mu.Lock()
	p, ok := s.pending[carID]
	if !ok || p.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.pending, carID)
	settled := s.cars[carID]
	snapshot := p.snapshot
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.a.timeout)
	defer cancel()
	ctx, span := tracer.Start(ctx, "inventory.SettleQuantity")
	defer span.End()
	span.SetAttributes(attribute.Int64("car.id", int64(carID)), attribute.Int("car.quantity", settled.Quantity))

	active, err := s.a.bookings.CountActiveByCar(ctx, carID)
	if err != nil {
		s.rollback(carID, snapshot, settled)
		s.notify(LevelError, "Error updating quantity", err.Error(), carID)
		s.a.log.Warn("count active bookings failed", zap.Uint64("car_id", carID), zap.Error(err))
		return
	}
	if settled.Quantity < active {
		s.rollback(carID, snapshot, settled)
		s.notify(LevelError, "Cannot reduce quantity",
			fmt.Sprintf("This car has %d active bookings. Cannot reduce quantity below %d.", active, active), carID)
		s.a.log.Info("quantity below active bookings rejected", zap.Error(&QuantityConflictError{CarID: carID, Active: active}))
		return
	}

	available := settled.Quantity - active
	err = s.a.cars.UpdateInventory(ctx, carID, settled.Quantity, available)
	if errors.Is(err, repository.ErrCarNotFound) {
		s.forget(carID)
		s.notify(LevelError, "Car not found", "The car was deleted before its quantity could be saved.", carID)
		s.a.log.Info("quantity dropped for deleted car", zap.Uint64("car_id", carID))
		return
	}
	if err != nil {
		s.rollback(carID, snapshot, settled)
		s.notify(LevelError, "Error updating quantity", err.Error(), carID)
		s.a.log.Warn("persist quantity failed", zap.Uint64("car_id", carID), zap.Error(err))
		return
	}

	s.mu.Lock()
	if newer, ok := s.pending[carID]; ok {
		newer.snapshot.Quantity = settled.Quantity
		newer.snapshot.Available = available
	} else {
		cur := s.cars[carID]
		cur.Quantity = settled.Quantity
		cur.Available = available
		s.cars[carID] = cur
	}
	s.notifyLocked(LevelInfo, "Quantity updated",
		fmt.Sprintf("Quantity set to %d (%d available).", settled.Quantity, available), carID)
	s.mu.Unlock()

	s.a.log.Info("quantity persisted", zap.Uint64("admin_id", s.adminID), zap.Uint64("car_id", carID),
		zap.Int("quantity", settled.Quantity), zap.Int("available", available))
	s.a.events.Emit(queue.TypeCarQuantityChanged, queue.CarQuantityChanged{
		CarID: carID, Quantity: settled.Quantity, Available: available, AdminID: s.adminID,
	})
}

// forget drops a deleted car from the projection along with any newer
// burst armed for it.
func (s *Session) forget(carID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pending[carID]; ok {
		if p.timer.Stop() {
			s.inflight--
		}
		delete(s.pending, carID)
	}
	delete(s.cars, carID)
}

func (s *Session) done() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if s.inflight == 0 {
		s.idle.Broadcast()
	}
}

// rollback restores the pre-burst snapshot.  If a newer burst was started
// on top of the failed one, its projection is shifted back by the failed
// delta and it inherits the snapshot.
func (s *Session) rollback(carID uint64, snapshot, failed model.Car) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pending[carID]; ok {
		cur := s.cars[carID]
		cur.Quantity = max(0, cur.Quantity-(failed.Quantity-snapshot.Quantity))
		cur.Available = max(0, cur.Available-(failed.Available-snapshot.Available))
		s.cars[carID] = cur
		p.snapshot = snapshot
		return
	}
	s.cars[carID] = snapshot
}

// Notify queues a notification that is not tied to one car.
func (s *Session) Notify(level, title, msg string) {
	s.notify(level, title, msg, 0)
}

func (s *Session) notify(level, title, msg string, carID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifyLocked(level, title, msg, carID)
}

func (s *Session) notifyLocked(level, title, msg string, carID uint64) {
	s.notes = append(s.notes, Notification{Level: level, Title: title, Message: msg, CarID: carID, At: time.Now().UTC()})
	if len(s.notes) > maxNotifications {
		s.notes = s.notes[len(s.notes)-maxNotifications:]
	}
}
