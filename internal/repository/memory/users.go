package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/car-rental-booking/internal/model"
	"github.com/iliyamo/car-rental-booking/internal/repository"
	"github.com/iliyamo/car-rental-booking/internal/utils"
)

type UserStore struct {
	mu      sync.Mutex
	nextID  uint64
	users   map[uint64]*model.User
	byEmail map[string]uint64
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[uint64]*model.User), byEmail: make(map[string]uint64)}
}

func (s *UserStore) Create(_ context.Context, u *model.User, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = repository.NormalizeEmail(u.Email)
	if _, taken := s.byEmail[u.Email]; taken {
		return repository.ErrEmailExists
	}
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	if u.Status == "" {
		u.Status = model.UserActive
	}
	s.nextID++
	u.ID = s.nextID
	u.PasswordHash = hash
	if u.JoinDate.IsZero() {
		u.JoinDate = time.Now().UTC()
	}
	stored := *u
	s.users[u.ID] = &stored
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[repository.NormalizeEmail(email)]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return *s.users[id], nil
}

func (s *UserStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return *u, nil
}

func (s *UserStore) List(_ context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinDate.Equal(out[j].JoinDate) {
			return out[i].JoinDate.Before(out[j].JoinDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *UserStore) Update(_ context.Context, id uint64, p model.UserPatch) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Status != nil {
		u.Status = *p.Status
	}
	return *u, nil
}

// Seed stores u with an already hashed password.
func (s *UserStore) Seed(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		s.nextID++
		u.ID = s.nextID
	} else if u.ID > s.nextID {
		s.nextID = u.ID
	}
	u.Email = repository.NormalizeEmail(u.Email)
	s.users[u.ID] = &u
	s.byEmail[u.Email] = u.ID
}
