package memory

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/car-rental-booking/internal/repository"
)

type refreshEntry struct {
	userID    uint64
	exp       time.Time
	revoked   bool
	revokedAt time.Time
}

type TokenStore struct {
	mu     sync.Mutex
	tokens map[string]*refreshEntry
}

func NewTokenStore() *TokenStore {
	return &TokenStore{tokens: make(map[string]*refreshEntry)}
}

func (s *TokenStore) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenHash] = &refreshEntry{userID: userID, exp: exp}
	return nil
}

func (s *TokenStore) ValidateRefresh(_ context.Context, tokenHash string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.tokens[tokenHash]
	if !ok || e.revoked || time.Now().UTC().After(e.exp) {
		return 0, repository.ErrTokenInvalid
	}
	return e.userID, nil
}

func (s *TokenStore) RevokeByHash(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.tokens[tokenHash]; ok && !e.revoked {
		e.revoked, e.revokedAt = true, time.Now().UTC()
	}
	return nil
}

func (s *TokenStore) RevokeAllForUser(_ context.Context, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.tokens {
		if e.userID == userID && !e.revoked {
			e.revoked, e.revokedAt = true, time.Now().UTC()
		}
	}
	return nil
}

func (s *TokenStore) PurgeExpired(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for h, e := range s.tokens {
		if e.exp.Before(cutoff) || (e.revoked && e.revokedAt.Before(cutoff)) {
			delete(s.tokens, h)
			n++
		}
	}
	return n, nil
}

var (
	_ repository.CarStore     = (*CarStore)(nil)
	_ repository.BookingStore = (*BookingStore)(nil)
	_ repository.UserStore    = (*UserStore)(nil)
	_ repository.TokenStore   = (*TokenStore)(nil)
)
