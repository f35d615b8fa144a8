package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/car-rental-booking/internal/inventory"
	"github.com/iliyamo/car-rental-booking/internal/middleware"
	"github.com/iliyamo/car-rental-booking/internal/model"
	"github.com/iliyamo/car-rental-booking/internal/repository"
)

// CarHandler serves the public fleet listing and the admin fleet console.
type CarHandler struct {
	Cars      repository.CarStore
	Bookings  repository.BookingStore
	Inventory *inventory.Service
	Adjuster  *inventory.Adjuster
	Cache     CachePurger
	Log       *zap.Logger
}

func NewCarHandler(cars repository.CarStore, bookings repository.BookingStore, inv *inventory.Service,
	adj *inventory.Adjuster, cache CachePurger, log *zap.Logger) *CarHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CarHandler{Cars: cars, Bookings: bookings, Inventory: inv, Adjuster: adj, Cache: cache, Log: log.Named("cars")}
}

type carReq struct {
	Name         string   `json:"name" validate:"required"`
	Model        string   `json:"model"`
	Image        string   `json:"image"`
	PricePerHour float64  `json:"pricePerHour" validate:"gte=0"`
	Description  string   `json:"description"`
	Quantity     int      `json:"quantity" validate:"gte=0"`
	Category     string   `json:"category"`
	Type         string   `json:"type"`
	Transmission string   `json:"transmission"`
	Seats        int      `json:"seats" validate:"gte=0"`
	Features     []string `json:"features"`
}

type carPatchReq struct {
	Name         *string   `json:"name" validate:"omitnil,min=1"`
	Model        *string   `json:"model"`
	Image        *string   `json:"image"`
	PricePerHour *float64  `json:"pricePerHour" validate:"omitnil,gte=0"`
	Description  *string   `json:"description"`
	Quantity     *int      `json:"quantity" validate:"omitnil,gte=0"`
	Available    *int      `json:"available" validate:"omitnil,gte=0"`
	Category     *string   `json:"category"`
	Type         *string   `json:"type"`
	Transmission *string   `json:"transmission"`
	Seats        *int      `json:"seats" validate:"omitnil,gte=0"`
	Features     *[]string `json:"features"`
}

func (r carPatchReq) patch() model.CarPatch {
	return model.CarPatch{
		Name: r.Name, Model: r.Model, Image: r.Image, PricePerHour: r.PricePerHour,
		Description: r.Description, Quantity: r.Quantity, Available: r.Available,
		Category: r.Category, Type: r.Type, Transmission: r.Transmission,
		Seats: r.Seats, Features: r.Features,
	}
}

type quantityReq struct {
	Delta int `json:"delta" validate:"required,oneof=-1 1"`
}

// List: GET /v1/cars?category=&q=
func (h *CarHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	cars, err := h.Cars.List(ctx, repository.CarFilter{
		Category: strings.TrimSpace(c.QueryParam("category")),
		Query:    strings.TrimSpace(c.QueryParam("q")),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cars)
}

// Get: GET /v1/cars/:id
func (h *CarHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	car, err := h.Cars.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, car)
}

// AdminList reconciles availability, lists the fleet and refreshes the
// caller's adjustment session with the result.  Cars with a +/- burst in
// flight are returned with their optimistic values.
func (h *CarHandler) AdminList(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	adminID, _ := middleware.UserID(c)
	s := h.Adjuster.Session(adminID)
	if _, err := h.Inventory.Reconcile(ctx); err != nil {
		// the listing still goes out
		h.Log.Warn("reconcile before listing failed", zap.Error(err))
		s.Notify(inventory.LevelError, "Error syncing availability", err.Error())
	}
	cars, err := h.Cars.List(ctx, repository.CarFilter{})
	if err != nil {
		return writeError(c, err)
	}
	s.Load(cars)
	return c.JSON(http.StatusOK, s.Cars())
}

// Create: POST /v1/admin/cars.  A new car starts fully available.
func (h *CarHandler) Create(c echo.Context) error {
	var req carReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	car := model.Car{
		Name: strings.TrimSpace(req.Name), Model: req.Model, Image: req.Image,
		PricePerHour: req.PricePerHour, Description: req.Description,
		Quantity: req.Quantity, Available: req.Quantity,
		Category: strings.ToLower(strings.TrimSpace(req.Category)), Type: req.Type,
		Transmission: req.Transmission, Seats: req.Seats, Features: req.Features,
	}
	if car.Features == nil {
		car.Features = []string{}
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Cars.Create(ctx, &car); err != nil {
		return writeError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusCreated, car)
}

// Update: PATCH /v1/admin/cars/:id.  A quantity change is checked against
// the active bookings and recomputes available; an explicit available is
// only honoured when quantity is left alone, and must not exceed it.
func (h *CarHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req carPatchReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	p := req.patch()
	if p.Category != nil {
		cat := strings.ToLower(strings.TrimSpace(*p.Category))
		p.Category = &cat
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	cur, err := h.Cars.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if p.Quantity != nil && *p.Quantity != cur.Quantity {
		active, err := h.Bookings.CountActiveByCar(ctx, id)
		if err != nil {
			return writeError(c, err)
		}
		if *p.Quantity < active {
			return writeError(c, &inventory.QuantityConflictError{CarID: id, Active: active})
		}
		available := inventory.ExpectedAvailable(*p.Quantity, active)
		p.Available = &available
	} else if p.Available != nil {
		limit := cur.Quantity
		if p.Quantity != nil {
			limit = *p.Quantity
		}
		if *p.Available > limit {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "available cannot exceed quantity"})
		}
	}

	car, err := h.Cars.Update(ctx, id, p)
	if err != nil {
		return writeError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusOK, car)
}

// Delete: DELETE /v1/admin/cars/:id.  Refused while the car has pending or
// confirmed bookings.
func (h *CarHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Cars.GetByID(ctx, id); err != nil {
		return writeError(c, err)
	}
	active, err := h.Bookings.CountActiveByCar(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if active > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "Car has active bookings", "active": active})
	}
	if err := h.Cars.Delete(ctx, id); err != nil {
		return writeError(c, err)
	}
	h.purge(c)
	return c.NoContent(http.StatusNoContent)
}

// Sync: POST /v1/admin/cars/sync runs a reconciliation pass and returns its
// report.  Per-car failures do not fail the request.
func (h *CarHandler) Sync(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	rep, err := h.Inventory.Reconcile(ctx)
	if err != nil && rep.Checked == 0 {
		return writeError(c, err)
	}
	resp := echo.Map{"report": rep}
	if err != nil {
		resp["error"] = err.Error()
	}
	return c.JSON(http.StatusOK, resp)
}

// AdjustQuantity: POST /v1/admin/cars/:id/quantity.  Returns the projected
// car right away; the value is persisted once the admin stops clicking.
func (h *CarHandler) AdjustQuantity(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req quantityReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	adminID, _ := middleware.UserID(c)

	ctx, cancel := reqCtx(c)
	defer cancel()
	car, err := h.Adjuster.Session(adminID).Adjust(ctx, id, req.Delta)
	if err != nil {
		if errors.Is(err, inventory.ErrNegativeQuantity) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Quantity cannot be negative", "car": car})
		}
		return writeError(c, err)
	}
	return c.JSON(http.StatusAccepted, car)
}

// Notifications: GET /v1/admin/notifications drains the caller's session
// notifications.
func (h *CarHandler) Notifications(c echo.Context) error {
	adminID, _ := middleware.UserID(c)
	return c.JSON(http.StatusOK, h.Adjuster.Session(adminID).Notifications())
}

func (h *CarHandler) purge(c echo.Context) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Purge(c.Request().Context()); err != nil {
		h.Log.Warn("cache purge failed", zap.Error(err))
	}
}
