package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/car-rental-booking/internal/model"
	"github.com/iliyamo/car-rental-booking/internal/repository"
)

type BookingStore struct {
	mu       sync.Mutex
	nextID   uint64
	bookings map[uint64]*model.Booking
}

func NewBookingStore() *BookingStore {
	return &BookingStore{bookings: make(map[uint64]*model.Booking)}
}

// newestFirst mirrors the ORDER BY created_at DESC, id DESC of the SQL repo.
func newestFirst(out []model.Booking) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
}

func (s *BookingStore) List(_ context.Context) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, *b)
	}
	newestFirst(out)
	return out, nil
}

func (s *BookingStore) ListByUser(_ context.Context, userID uint64) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Booking{}
	for _, b := range s.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	newestFirst(out)
	return out, nil
}

func (s *BookingStore) GetByID(_ context.Context, id uint64) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return model.Booking{}, repository.ErrBookingNotFound
	}
	return *b, nil
}

func (s *BookingStore) Create(_ context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	b.ID = s.nextID
	if b.Status == "" {
		b.Status = model.BookingPending
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	stored := *b
	s.bookings[b.ID] = &stored
	return nil
}

func (s *BookingStore) SetStatus(_ context.Context, id uint64, status string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return false, repository.ErrBookingNotFound
	}
	if b.Status == status {
		return false, nil
	}
	b.Status = status
	return true, nil
}

func (s *BookingStore) CountActiveByCar(_ context.Context, carID uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.bookings {
		if b.CarID == carID && b.IsActive() {
			n++
		}
	}
	return n, nil
}

// Seed stores b as-is, keeping its id and timestamps.
func (s *BookingStore) Seed(b model.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == 0 {
		s.nextID++
		b.ID = s.nextID
	} else if b.ID > s.nextID {
		s.nextID = b.ID
	}
	s.bookings[b.ID] = &b
}
