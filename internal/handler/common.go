package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/car-rental-booking/internal/inventory"
	"github.com/iliyamo/car-rental-booking/internal/middleware"
	"github.com/iliyamo/car-rental-booking/internal/model"
	"github.com/iliyamo/car-rental-booking/internal/repository"
)

// requestTimeout bounds the store calls of a single request.
const requestTimeout = 5 * time.Second

// Validator adapts go-playground/validator to echo.Validator.  Field names in
// messages are the JSON names.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return &Validator{v: v}
}

func (cv *Validator) Validate(i any) error {
	return cv.v.Struct(i)
}

// CachePurger drops cached fleet responses after a write.
type CachePurger interface {
	Purge(ctx context.Context) error
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// normalizer is implemented by request DTOs that clean their fields before
// validation.
type normalizer interface {
	normalize()
}

// bindValid binds the body into dst and runs the registered validator.
// On failure it has already written the 400 response.
func bindValid(c echo.Context, dst any) (bool, error) {
	if err := c.Bind(dst); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}
	if err := c.Validate(dst); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": validationMessage(err)})
	}
	return true, nil
}

func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return err.Error()
	}
	fe := ve[0]
	switch fe.Tag() {
	case "required", "required_if":
		return fe.Field() + " is required"
	case "datetime":
		return fmt.Sprintf("%s must match %s", fe.Field(), layoutHint(fe.Param()))
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "email":
		return fe.Field() + " must be a valid email"
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

func layoutHint(layout string) string {
	switch layout {
	case dateLayout:
		return "YYYY-MM-DD"
	case timeLayout:
		return "HH:MM"
	}
	return layout
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// caller returns the authenticated user id and whether they are an admin.
func caller(c echo.Context) (uint64, bool, bool) {
	uid, ok := middleware.UserID(c)
	if !ok {
		return 0, false, false
	}
	role, _ := middleware.Role(c)
	return uid, role == model.RoleAdmin, true
}

// writeError maps store and inventory errors to the JSON error contract.
func writeError(c echo.Context, err error) error {
	var qc *inventory.QuantityConflictError
	switch {
	case errors.Is(err, repository.ErrCarNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Car not found"})
	case errors.Is(err, repository.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Booking not found"})
	case errors.Is(err, repository.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
	case errors.Is(err, inventory.ErrCarUnavailable):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Car is not available for booking"})
	case errors.Is(err, inventory.ErrNegativeQuantity):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Quantity cannot be negative"})
	case errors.Is(err, inventory.ErrInvalidStatus):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid booking status"})
	case errors.As(err, &qc):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":  fmt.Sprintf("This car has %d active bookings. Cannot reduce quantity below %d.", qc.Active, qc.Active),
			"active": qc.Active,
		})
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "request timed out"})
	}
	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
