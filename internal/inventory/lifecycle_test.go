package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/car-rental-booking/internal/model"
	"github.com/iliyamo/car-rental-booking/internal/queue"
	"github.com/iliyamo/car-rental-booking/internal/repository"
)

func req(carID uint64) BookingRequest {
	return BookingRequest{UserID: 7, CarID: carID, StartDate: "2024-06-01", EndDate: "2024-06-02",
		StartTime: "09:00", EndTime: "17:00", TotalAmount: 80}
}

func TestCreateBooking_DecrementsByOne(t *testing.T) {
	ctx := context.Background()
	cars, bs := fixture([]model.Car{{ID: 1, Quantity: 3, Available: 2}}, nil)
	em := &recordingEmitter{}
	svc := NewService(cars, bs, em, nil)

	b, err := svc.CreateBooking(ctx, req(1))
	require.NoError(t, err)
	assert.Equal(t, model.BookingPending, b.Status)
	assert.NotZero(t, b.ID)

	c, _ := cars.GetByID(ctx, 1)
	assert.Equal(t, 1, c.Available)
	assert.Len(t, mustList(t, bs), 1)
	assert.Equal(t, []string{queue.TypeBookingCreated}, em.types())
}

func TestCreateBooking_RejectsUnavailableWithoutSideEffects(t *testing.T) {
	ctx := context.Background()
	cars, bs := fixture([]model.Car{{ID: 1, Quantity: 2, Available: 0}}, nil)
	svc := NewService(cars, bs, nil, nil)

	_, err := svc.CreateBooking(ctx, req(1))
	assert.ErrorIs(t, err, ErrCarUnavailable)
	assert.Empty(t, mustList(t, bs))
	c, _ := cars.GetByID(ctx, 1)
	assert.Equal(t, 0, c.Available)

	_, err = svc.CreateBooking(ctx, req(42))
	assert.ErrorIs(t, err, repository.ErrCarNotFound)
}

func TestCreateBooking_DecrementFailureKeepsBooking(t *testing.T) {
	cars, bs := fixture([]model.Car{{ID: 1, Quantity: 1, Available: 1}}, nil)
	cars.failAdjust = errBoom
	_, err := NewService(cars, bs, nil, nil).CreateBooking(context.Background(), req(1))
	require.NoError(t, err)
	assert.Len(t, mustList(t, bs), 1)
}

func TestCreateBooking_DropsContactWithoutDriver(t *testing.T) {
	cars, bs := fixture([]model.Car{{ID: 1, Quantity: 1, Available: 1}}, nil)
	r := req(1)
	contact := "+100"
	r.DriverContact = &contact
	b, err := NewService(cars, bs, nil, nil).CreateBooking(context.Background(), r)
	require.NoError(t, err)
	assert.Nil(t, b.DriverContact)
}

func TestUpdateBookingStatus_CancelRestoresOnce(t *testing.T) {
	ctx := context.Background()
	cars, bs := fixture([]model.Car{{ID: 1, Quantity: 2, Available: 0}},
		[]model.Booking{{ID: 10, CarID: 1, Status: model.BookingConfirmed}, {ID: 11, CarID: 1, Status: model.BookingPending}})
	em := &recordingEmitter{}
	svc := NewService(cars, bs, em, nil)

	b, err := svc.UpdateBookingStatus(ctx, 10, model.BookingCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, b.Status)
	c, _ := cars.GetByID(ctx, 1)
	assert.Equal(t, 1, c.Available)

	_, err = svc.UpdateBookingStatus(ctx, 10, model.BookingCancelled)
	require.NoError(t, err)
	c, _ = cars.GetByID(ctx, 1)
	assert.Equal(t, 1, c.Available, "a replayed cancel must not restore twice")
	assert.Equal(t, []string{queue.TypeBookingStatusChanged}, em.types())
}

func TestUpdateBookingStatus_ConfirmLeavesAvailability(t *testing.T) {
	ctx := context.Background()
	cars, bs := fixture([]model.Car{{ID: 1, Quantity: 2, Available: 1}},
		[]model.Booking{{ID: 10, CarID: 1, Status: model.BookingPending}})
	svc := NewService(cars, bs, nil, nil)

	_, err := svc.UpdateBookingStatus(ctx, 10, model.BookingConfirmed)
	require.NoError(t, err)
	_, err = svc.UpdateBookingStatus(ctx, 10, model.BookingCompleted)
	require.NoError(t, err)
	c, _ := cars.GetByID(ctx, 1)
	assert.Equal(t, 1, c.Available)
}

func TestUpdateBookingStatus_Errors(t *testing.T) {
	cars, bs := fixture(nil, nil)
	svc := NewService(cars, bs, nil, nil)

	_, err := svc.UpdateBookingStatus(context.Background(), 1, "shipped")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.UpdateBookingStatus(context.Background(), 1, model.BookingCancelled)
	assert.ErrorIs(t, err, repository.ErrBookingNotFound)
}

func TestUpdateBookingStatus_CancelOfDeletedCar(t *testing.T) {
	cars, bs := fixture(nil, []model.Booking{{ID: 5, CarID: 99, Status: model.BookingPending}})
	em := &recordingEmitter{}
	b, err := NewService(cars, bs, em, nil).UpdateBookingStatus(context.Background(), 5, model.BookingCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, b.Status)

	require.Len(t, em.events, 1)
	changed := em.events[0].data.(queue.BookingStatusChanged)
	assert.False(t, changed.Restored, "nothing to restore on a deleted car")
}
