package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/car-rental-booking/internal/inventory"
	"github.com/iliyamo/car-rental-booking/internal/middleware"
	"github.com/iliyamo/car-rental-booking/internal/model"
	"github.com/iliyamo/car-rental-booking/internal/repository/memory"
)

func TestCars_PublicListAndGet(t *testing.T) {
	h := newHarness(t)
	h.cars.Seed(model.Car{ID: 1, Name: "Corolla", Model: "Toyota", Category: "sedan", Quantity: 1, Available: 1})
	h.cars.Seed(model.Car{ID: 2, Name: "RAV4", Model: "Toyota", Category: "suv", Quantity: 1, Available: 1})

	rec := h.do(http.MethodGet, "/v1/cars", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Car](t, rec), 2)

	rec = h.do(http.MethodGet, "/v1/cars?category=suv", nil, "")
	cars := decode[[]model.Car](t, rec)
	require.Len(t, cars, 1)
	assert.Equal(t, "RAV4", cars[0].Name)

	rec = h.do(http.MethodGet, "/v1/cars?q=coro", nil, "")
	assert.Len(t, decode[[]model.Car](t, rec), 1)

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/v1/cars/2", nil, "").Code)
	rec = h.do(http.MethodGet, "/v1/cars/9", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Car not found", errorOf(t, rec))
}

func TestCars_CreateStartsFullyAvailable(t *testing.T) {
	h := newHarness(t)
	admin := h.token(t, 1, model.RoleAdmin)

	rec := h.do(http.MethodPost, "/v1/admin/cars", obj{"name": "Model 3", "category": "Luxury", "quantity": 3, "pricePerHour": 40}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	car := decode[model.Car](t, rec)
	assert.Equal(t, 3, car.Available)
	assert.Equal(t, "luxury", car.Category)
	assert.Equal(t, []string{}, car.Features)

	rec = h.do(http.MethodPost, "/v1/admin/cars", obj{"name": "Bad", "quantity": -1}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = h.do(http.MethodPost, "/v1/admin/cars", obj{"quantity": 1}, admin)
	assert.Equal(t, "name is required", errorOf(t, rec))

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodPost, "/v1/admin/cars", obj{"name": "x"}, "").Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPost, "/v1/admin/cars", obj{"name": "x"}, h.token(t, 2, model.RoleUser)).Code)
}

func TestCars_UpdateQuantityRespectsActiveBookings(t *testing.T) {
	h := newHarness(t)
	h.cars.Seed(model.Car{ID: 1, Name: "Corolla", Quantity: 3, Available: 1})
	h.bookings.Seed(model.Booking{ID: 1, CarID: 1, Status: model.BookingPending})
	h.bookings.Seed(model.Booking{ID: 2, CarID: 1, Status: model.BookingConfirmed})
	h.bookings.Seed(model.Booking{ID: 3, CarID: 1, Status: model.BookingCancelled})
	admin := h.token(t, 1, model.RoleAdmin)

	rec := h.do(http.MethodPatch, "/v1/admin/cars/1", obj{"quantity": 1}, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "This car has 2 active bookings. Cannot reduce quantity below 2.", errorOf(t, rec))
	assert.Equal(t, 3, h.car(t, 1).Quantity)

	rec = h.do(http.MethodPatch, "/v1/admin/cars/1", obj{"quantity": 5, "name": "Corolla Cross"}, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	car := decode[model.Car](t, rec)
	assert.Equal(t, 5, car.Quantity)
	assert.Equal(t, 3, car.Available)
	assert.Equal(t, "Corolla Cross", car.Name)

	rec = h.do(http.MethodPatch, "/v1/admin/cars/1", obj{"available": 6}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPatch, "/v1/admin/cars/9", obj{"name": "x"}, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCars_DeleteRefusedWhileBooked(t *testing.T) {
	h := newHarness(t)
	h.cars.Seed(model.Car{ID: 1, Name: "Corolla", Quantity: 1, Available: 0})
	h.bookings.Seed(model.Booking{ID: 1, CarID: 1, Status: model.BookingConfirmed})
	admin := h.token(t, 1, model.RoleAdmin)

	rec := h.do(http.MethodDelete, "/v1/admin/cars/1", nil, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	require.Equal(t, http.StatusOK, h.do(http.MethodPatch, "/v1/admin/bookings/1", obj{"status": "completed"}, admin).Code)
	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/v1/admin/cars/1", nil, admin).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/v1/admin/cars/1", nil, admin).Code)

	// the completed booking keeps its dangling car id
	rec = h.do(http.MethodGet, "/v1/admin/bookings", nil, admin)
	list := decode[[]model.Booking](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, uint64(1), list[0].CarID)
}

func TestCars_AdminListReconciles(t *testing.T) {
	h := newHarness(t)
	h.cars.Seed(model.Car{ID: 1, Name: "Corolla", Quantity: 3, Available: 3})
	h.cars.Seed(model.Car{ID: 2, Name: "RAV4", Quantity: 2, Available: 0})
	h.bookings.Seed(model.Booking{ID: 1, CarID: 1, Status: model.BookingPending})
	admin := h.token(t, 1, model.RoleAdmin)

	rec := h.do(http.MethodGet, "/v1/admin/cars", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	cars := decode[[]model.Car](t, rec)
	require.Len(t, cars, 2)
	assert.Equal(t, 2, cars[0].Available)
	assert.Equal(t, 2, cars[1].Available)
	assert.Equal(t, 2, h.car(t, 1).Available)

	h.cars.Seed(model.Car{ID: 2, Name: "RAV4", Quantity: 2, Available: 1})
	rec = h.do(http.MethodPost, "/v1/admin/cars/sync", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Report inventory.Report `json:"report"`
	}](t, rec)
	assert.Equal(t, 2, body.Report.Checked)
	assert.Equal(t, 1, body.Report.Corrected)
}

func TestCars_AdjustQuantityIsDebounced(t *testing.T) {
	h := newHarness(t)
	h.cars.Seed(model.Car{ID: 1, Name: "Corolla", Quantity: 2, Available: 2})
	admin := h.token(t, 1, model.RoleAdmin)

	rec := h.do(http.MethodPost, "/v1/admin/cars/1/quantity", obj{"delta": 1}, admin)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	rec = h.do(http.MethodPost, "/v1/admin/cars/1/quantity", obj{"delta": 1}, admin)
	require.Equal(t, http.StatusAccepted, rec.Code)
	projected := decode[model.Car](t, rec)
	assert.Equal(t, 4, projected.Quantity)
	assert.Equal(t, 4, projected.Available)

	h.adj.Flush()
	assert.Equal(t, 4, h.car(t, 1).Quantity)
	assert.Equal(t, 4, h.car(t, 1).Available)

	rec = h.do(http.MethodGet, "/v1/admin/notifications", nil, admin)
	notes := decode[[]inventory.Notification](t, rec)
	require.Len(t, notes, 1)
	assert.Equal(t, "Quantity updated", notes[0].Title)
	rec = h.do(http.MethodGet, "/v1/admin/notifications", nil, admin)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = h.do(http.MethodPost, "/v1/admin/cars/1/quantity", obj{"delta": 3}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = h.do(http.MethodPost, "/v1/admin/cars/9/quantity", obj{"delta": 1}, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCars_AdjustQuantityBelowZero(t *testing.T) {
	h := newHarness(t)
	h.cars.Seed(model.Car{ID: 1, Name: "Corolla", Quantity: 0, Available: 0})
	admin := h.token(t, 1, model.RoleAdmin)

	rec := h.do(http.MethodPost, "/v1/admin/cars/1/quantity", obj{"delta": -1}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Quantity cannot be negative", errorOf(t, rec))
	assert.Equal(t, 0, h.car(t, 1).Quantity)
}

// stuckCars refuses every availability write.
type stuckCars struct{ *memory.CarStore }

func (stuckCars) UpdateAvailable(context.Context, uint64, int) error { return errors.New("disk full") }

func TestCars_AdminListReportsReconcileFailure(t *testing.T) {
	h := newHarness(t)
	h.cars.Seed(model.Car{ID: 1, Name: "Corolla", Quantity: 2, Available: 0})
	cars := stuckCars{h.cars}
	carH := NewCarHandler(cars, h.bookings, inventory.NewService(cars, h.bookings, nil, nil), h.adj, nil, nil)

	e := echo.New()
	g := e.Group("/v1/admin", middleware.JWTAuth(testSecret))
	g.GET("/cars", carH.AdminList)
	g.GET("/notifications", carH.Notifications)
	h.e = e
	admin := h.token(t, 1, model.RoleAdmin)

	rec := h.do(http.MethodGet, "/v1/admin/cars", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Car](t, rec), 1)

	notes := decode[[]inventory.Notification](t, h.do(http.MethodGet, "/v1/admin/notifications", nil, admin))
	require.Len(t, notes, 1)
	assert.Equal(t, inventory.LevelError, notes[0].Level)
	assert.Equal(t, "Error syncing availability", notes[0].Title)
	assert.Contains(t, notes[0].Message, "disk full")
}
