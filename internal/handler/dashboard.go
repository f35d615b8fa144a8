package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/car-rental-booking/internal/analytics"
	"github.com/iliyamo/car-rental-booking/internal/config"
	"github.com/iliyamo/car-rental-booking/internal/model"
	"github.com/iliyamo/car-rental-booking/internal/repository"
)

// DashboardHandler serves the admin stats and analytics views.  Both are
// computed in memory from full listings.
type DashboardHandler struct {
	Cars     repository.CarStore
	Bookings repository.BookingStore
	Users    repository.UserStore
	Inv      config.InventoryConfig
	Now      func() time.Time
}

func NewDashboardHandler(cars repository.CarStore, bookings repository.BookingStore, users repository.UserStore, inv config.InventoryConfig) *DashboardHandler {
	return &DashboardHandler{Cars: cars, Bookings: bookings, Users: users, Inv: inv, Now: time.Now}
}

func (h *DashboardHandler) load(ctx context.Context) ([]model.Booking, []model.Car, []model.User, error) {
	bookings, err := h.Bookings.List(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	cars, err := h.Cars.List(ctx, repository.CarFilter{})
	if err != nil {
		return nil, nil, nil, err
	}
	users, err := h.Users.List(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return bookings, cars, users, nil
}

// Stats: GET /v1/admin/stats
func (h *DashboardHandler) Stats(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	bookings, cars, users, err := h.load(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, analytics.DashboardStats(bookings, cars, users, h.Inv.LowStockThreshold))
}

// Analytics: GET /v1/admin/analytics?months=&days=&top=
func (h *DashboardHandler) Analytics(c echo.Context) error {
	opt := analytics.Options{
		Months: queryInt(c, "months", h.Inv.AnalyticsMonths),
		Days:   queryInt(c, "days", h.Inv.AnalyticsDays),
		TopN:   queryInt(c, "top", h.Inv.TopCars),
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	bookings, cars, users, err := h.load(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, analytics.Build(bookings, cars, users, h.Now().UTC(), opt))
}

// queryInt reads a positive integer query parameter, capped at 365.
func queryInt(c echo.Context, name string, def int) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || n < 1 {
		return def
	}
	return min(n, 365)
}
