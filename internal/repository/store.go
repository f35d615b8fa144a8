package repository

import (
	"context"
	"time"

	"github.com/iliyamo/car-rental-booking/internal/model"
)

// CarFilter narrows a fleet listing.  Empty fields match everything.
type CarFilter struct {
	Category string // exact category match
	Query    string // case-insensitive substring of name or model
}

// CarStore persists fleet entries.
type CarStore interface {
	List(ctx context.Context, f CarFilter) ([]model.Car, error)
	GetByID(ctx context.Context, id uint64) (model.Car, error)
	Create(ctx context.Context, c *model.Car) error
	Update(ctx context.Context, id uint64, p model.CarPatch) (model.Car, error)
	Delete(ctx context.Context, id uint64) error
	// UpdateAvailable overwrites the available count.
	UpdateAvailable(ctx context.Context, id uint64, available int) error
	// UpdateInventory writes quantity and available together.
	UpdateInventory(ctx context.Context, id uint64, quantity, available int) error
	// AdjustAvailable adds delta to available, clamped to [0, quantity].
	AdjustAvailable(ctx context.Context, id uint64, delta int) error
}

// BookingStore persists bookings.
type BookingStore interface {
	List(ctx context.Context) ([]model.Booking, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
	GetByID(ctx context.Context, id uint64) (model.Booking, error)
	Create(ctx context.Context, b *model.Booking) error
	// SetStatus changes the status and reports whether the stored value
	// actually changed.  Setting the current status again is a no-op.
	SetStatus(ctx context.Context, id uint64, status string) (bool, error)
	// CountActiveByCar counts pending and confirmed bookings of a car.
	CountActiveByCar(ctx context.Context, carID uint64) (int, error)
}

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, u *model.User, password string, cost int) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, id uint64, p model.UserPatch) (model.User, error)
}

// TokenStore persists refresh token hashes.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
	// PurgeExpired deletes tokens expired or revoked before cutoff.
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// Compile-time checks for the MySQL implementations.
var (
	_ CarStore     = (*CarRepo)(nil)
	_ BookingStore = (*BookingRepo)(nil)
	_ UserStore    = (*UserRepo)(nil)
	_ TokenStore   = (*TokenRepo)(nil)
)
