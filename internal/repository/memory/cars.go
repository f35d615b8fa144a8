// Package memory provides map-backed stores with the same contract as the
// MySQL repositories.  They serve STORE_BACKEND=memory and the tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/car-rental-booking/internal/model"
	"github.com/iliyamo/car-rental-booking/internal/repository"
)

type CarStore struct {
	mu     sync.Mutex
	nextID uint64
	cars   map[uint64]*model.Car
}

func NewCarStore() *CarStore {
	return &CarStore{cars: make(map[uint64]*model.Car)}
}

func copyCar(c *model.Car) model.Car {
	out := *c
	out.Features = append([]string{}, c.Features...)
	return out
}

func (s *CarStore) List(_ context.Context, f repository.CarFilter) ([]model.Car, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := []model.Car{}
	for _, c := range s.cars {
		if f.Category != "" && c.Category != f.Category {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(c.Name), q) && !strings.Contains(strings.ToLower(c.Model), q) {
			continue
		}
		out = append(out, copyCar(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *CarStore) GetByID(_ context.Context, id uint64) (model.Car, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cars[id]
	if !ok {
		return model.Car{}, repository.ErrCarNotFound
	}
	return copyCar(c), nil
}

func (s *CarStore) Create(_ context.Context, c *model.Car) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	now := time.Now().UTC()
	c.ID = s.nextID
	c.CreatedAt, c.UpdatedAt = now, now
	if c.Features == nil {
		c.Features = []string{}
	}
	stored := copyCar(c)
	s.cars[c.ID] = &stored
	return nil
}

func (s *CarStore) Update(_ context.Context, id uint64, p model.CarPatch) (model.Car, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cars[id]
	if !ok {
		return model.Car{}, repository.ErrCarNotFound
	}
	p.Apply(c)
	c.UpdatedAt = time.Now().UTC()
	return copyCar(c), nil
}

func (s *CarStore) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cars[id]; !ok {
		return repository.ErrCarNotFound
	}
	delete(s.cars, id)
	return nil
}

func (s *CarStore) UpdateAvailable(_ context.Context, id uint64, available int) error {
	return s.mutate(id, func(c *model.Car) { c.Available = available })
}

func (s *CarStore) UpdateInventory(_ context.Context, id uint64, quantity, available int) error {
	return s.mutate(id, func(c *model.Car) {
		c.Quantity = quantity
		c.Available = available
	})
}

func (s *CarStore) AdjustAvailable(_ context.Context, id uint64, delta int) error {
	return s.mutate(id, func(c *model.Car) {
		c.Available = min(c.Quantity, max(0, c.Available+delta))
	})
}

func (s *CarStore) mutate(id uint64, fn func(*model.Car)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cars[id]
	if !ok {
		return repository.ErrCarNotFound
	}
	fn(c)
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// Seed stores c as-is, keeping its id.  Used by tests and bootstrap code.
func (s *CarStore) Seed(c model.Car) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		s.nextID++
		c.ID = s.nextID
	} else if c.ID > s.nextID {
		s.nextID = c.ID
	}
	if c.Features == nil {
		c.Features = []string{}
	}
	s.cars[c.ID] = &c
}
