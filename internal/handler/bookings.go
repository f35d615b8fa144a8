package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/car-rental-booking/internal/inventory"
	"github.com/iliyamo/car-rental-booking/internal/model"
	"github.com/iliyamo/car-rental-booking/internal/repository"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// BookingHandler exposes booking creation for customers and the booking
// console for admins.
type BookingHandler struct {
	Bookings  repository.BookingStore
	Inventory *inventory.Service
	Log       *zap.Logger
}

func NewBookingHandler(bookings repository.BookingStore, inv *inventory.Service, log *zap.Logger) *BookingHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingHandler{Bookings: bookings, Inventory: inv, Log: log.Named("bookings")}
}

type bookingReq struct {
	UserID        uint64  `json:"userId"`
	CarID         uint64  `json:"carId" validate:"required"`
	StartDate     string  `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate       string  `json:"endDate" validate:"required,datetime=2006-01-02"`
	StartTime     string  `json:"startTime" validate:"required,datetime=15:04"`
	EndTime       string  `json:"endTime" validate:"required,datetime=15:04"`
	TotalAmount   float64 `json:"totalAmount" validate:"gte=0"`
	NeedDriver    bool    `json:"needDriver"`
	DriverContact *string `json:"driverContact"`
}

type statusReq struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed cancelled completed"`
}

// window parses the rental period.  Layouts were checked by the validator.
func (r bookingReq) window() (time.Time, time.Time) {
	start, _ := time.Parse(dateLayout+" "+timeLayout, r.StartDate+" "+r.StartTime)
	end, _ := time.Parse(dateLayout+" "+timeLayout, r.EndDate+" "+r.EndTime)
	return start, end
}

// Create: POST /v1/bookings.  Non-admins always book for themselves; an
// admin may book on behalf of userId.
func (h *BookingHandler) Create(c echo.Context) error {
	uid, isAdmin, ok := caller(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req bookingReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	if start, end := req.window(); end.Before(start) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end must not be before start"})
	}
	if req.NeedDriver && (req.DriverContact == nil || strings.TrimSpace(*req.DriverContact) == "") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "driverContact is required"})
	}
	if !isAdmin || req.UserID == 0 {
		req.UserID = uid
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Inventory.CreateBooking(ctx, inventory.BookingRequest{
		UserID:        req.UserID,
		CarID:         req.CarID,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		TotalAmount:   req.TotalAmount,
		NeedDriver:    req.NeedDriver,
		DriverContact: req.DriverContact,
	})
	if err != nil {
		return writeError(c, err)
	}
	h.Log.Info("booking created", zap.Uint64("booking_id", b.ID), zap.Uint64("car_id", b.CarID), zap.Uint64("user_id", b.UserID))
	return c.JSON(http.StatusCreated, b)
}

// Mine: GET /v1/my-bookings
func (h *BookingHandler) Mine(c echo.Context) error {
	uid, _, ok := caller(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.Bookings.ListByUser(ctx, uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, nonNil(list))
}

// Get: GET /v1/bookings/:id.  Other users' bookings look missing.
func (h *BookingHandler) Get(c echo.Context) error {
	uid, isAdmin, ok := caller(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Bookings.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if !isAdmin && b.UserID != uid {
		return writeError(c, repository.ErrBookingNotFound)
	}
	return c.JSON(http.StatusOK, b)
}

// AdminList: GET /v1/admin/bookings, newest first.
func (h *BookingHandler) AdminList(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.Bookings.List(ctx)
	if err != nil {
		return writeError(c, err)
	}
	if st := c.QueryParam("status"); st != "" {
		filtered := list[:0]
		for _, b := range list {
			if b.Status == st {
				filtered = append(filtered, b)
			}
		}
		list = filtered
	}
	return c.JSON(http.StatusOK, nonNil(list))
}

// UpdateStatus: PATCH /v1/admin/bookings/:id
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req statusReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Inventory.UpdateBookingStatus(ctx, id, req.Status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

func nonNil(list []model.Booking) []model.Booking {
	if list == nil {
		return []model.Booking{}
	}
	return list
}
