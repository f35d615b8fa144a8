package inventory

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/iliyamo/car-rental-booking/internal/model"
	"github.com/iliyamo/car-rental-booking/internal/queue"
	"github.com/iliyamo/car-rental-booking/internal/repository"
)

// BookingRequest is the input of CreateBooking.
type BookingRequest struct {
	UserID        uint64
	CarID         uint64
	StartDate     string
	EndDate       string
	StartTime     string
	EndTime       string
	TotalAmount   float64
	NeedDriver    bool
	DriverContact *string
}

// CreateBooking inserts a pending booking and takes one unit of the car.
//
// The insert and the decrement are two separate writes.  If the decrement
// fails the booking stands and the next reconciliation pass fixes the
// count.  Two concurrent requests may both see available > 0.
func (s *Service) CreateBooking(ctx context.Context, req BookingRequest) (model.Booking, error) {
	ctx, span := tracer.Start(ctx, "inventory.CreateBooking")
	defer span.End()
	span.SetAttributes(attribute.Int64("car.id", int64(req.CarID)))

	car, err := s.cars.GetByID(ctx, req.CarID)
	if err != nil {
		return model.Booking{}, err
	}
	if car.Available <= 0 {
		return model.Booking{}, ErrCarUnavailable
	}

	b := model.Booking{
		UserID:        req.UserID,
		CarID:         req.CarID,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		TotalAmount:   req.TotalAmount,
		NeedDriver:    req.NeedDriver,
		DriverContact: req.DriverContact,
		Status:        model.BookingPending,
	}
	if !b.NeedDriver {
		b.DriverContact = nil
	}
	if err := s.bookings.Create(ctx, &b); err != nil {
		return model.Booking{}, err
	}
	if err := s.cars.AdjustAvailable(ctx, car.ID, -1); err != nil {
		s.log.Error("booking created but availability not decremented",
			zap.Uint64("booking_id", b.ID), zap.Uint64("car_id", car.ID), zap.Error(err))
	}

	s.events.Emit(queue.TypeBookingCreated, queue.BookingCreated{
		BookingID:   b.ID,
		UserID:      b.UserID,
		CarID:       b.CarID,
		StartDate:   b.StartDate,
		EndDate:     b.EndDate,
		StartTime:   b.StartTime,
		EndTime:     b.EndTime,
		TotalAmount: b.TotalAmount,
		NeedDriver:  b.NeedDriver,
	})
	return b, nil
}

// UpdateBookingStatus moves a booking to status.  Moving it to cancelled
// gives one unit back to the car, but only when the stored status actually
// changed, so a replayed cancel cannot restore twice.  No other transition
// touches availability.
func (s *Service) UpdateBookingStatus(ctx context.Context, id uint64, status string) (model.Booking, error) {
	ctx, span := tracer.Start(ctx, "inventory.UpdateBookingStatus", trace.WithAttributes(
		attribute.Int64("booking.id", int64(id)), attribute.String("booking.status", status)))
	defer span.End()

	if !model.ValidBookingStatus(status) {
		return model.Booking{}, ErrInvalidStatus
	}
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return model.Booking{}, err
	}
	changed, err := s.bookings.SetStatus(ctx, id, status)
	if err != nil {
		return model.Booking{}, err
	}
	from := b.Status
	b.Status = status

	restored := false
	if changed && status == model.BookingCancelled {
		err := s.cars.AdjustAvailable(ctx, b.CarID, 1)
		switch {
		case errors.Is(err, repository.ErrCarNotFound):
			s.log.Info("cancelled booking of a deleted car", zap.Uint64("booking_id", id), zap.Uint64("car_id", b.CarID))
		case err != nil:
			s.log.Error("booking cancelled but availability not restored",
				zap.Uint64("booking_id", id), zap.Uint64("car_id", b.CarID), zap.Error(err))
		default:
			restored = true
		}
	}
	if changed {
		s.events.Emit(queue.TypeBookingStatusChanged, queue.BookingStatusChanged{
			BookingID: id, CarID: b.CarID, From: from, To: status, Restored: restored,
		})
	}
	return b, nil
}
