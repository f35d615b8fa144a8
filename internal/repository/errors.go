// Package repository holds the persistence layer.  The MySQL repos in this
// package and the in-memory ones under repository/memory satisfy the same
// store interfaces and report failures with the sentinels below, so
// handlers can map them to HTTP statuses without knowing the backend.
package repository

import "errors"

var (
	// ErrCarNotFound is returned when no car matches the given id.
	ErrCarNotFound = errors.New("car not found")
	// ErrBookingNotFound is returned when no booking matches the given id.
	ErrBookingNotFound = errors.New("booking not found")
	// ErrUserNotFound is returned for unknown user ids or emails.
	ErrUserNotFound = errors.New("user not found")
	// ErrTokenInvalid covers unknown, revoked and expired refresh tokens.
	ErrTokenInvalid = errors.New("refresh token invalid")
	// ErrEmailExists is returned when registering a duplicate email.
	ErrEmailExists = errors.New("email already exists")
)

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be
// performed because of conflicting state, such as attempting to
// delete a car that still has active bookings. Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
