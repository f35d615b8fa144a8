package inventory

import (
	"errors"
	"fmt"
)

var (
	// ErrCarUnavailable rejects a booking for a car with no free units.
	ErrCarUnavailable = errors.New("car is not available for booking")
	// ErrNegativeQuantity rejects an adjustment that would drop below zero.
	ErrNegativeQuantity = errors.New("quantity cannot be negative")
	// ErrInvalidStatus rejects an unknown booking status.
	ErrInvalidStatus = errors.New("invalid booking status")
)

// QuantityConflictError is reported when a settled quantity would fall
// below the number of active bookings of the car.
type QuantityConflictError struct {
	CarID  uint64
	Active int
}

func (e *QuantityConflictError) Error() string {
	return fmt.Sprintf("car %d has %d active bookings, cannot reduce quantity below %d", e.CarID, e.Active, e.Active)
}
