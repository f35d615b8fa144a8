package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/car-rental-booking/internal/config"
	"github.com/iliyamo/car-rental-booking/internal/inventory"
	"github.com/iliyamo/car-rental-booking/internal/middleware"
	"github.com/iliyamo/car-rental-booking/internal/model"
	"github.com/iliyamo/car-rental-booking/internal/repository/memory"
	"github.com/iliyamo/car-rental-booking/internal/utils"
)

const testSecret = "test-secret"

type harness struct {
	e        *echo.Echo
	cfg      config.Config
	cars     *memory.CarStore
	bookings *memory.BookingStore
	users    *memory.UserStore
	tokens   *memory.TokenStore
	auth     *AuthHandler
	adj      *inventory.Adjuster
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		cfg: config.Config{
			Env:            "test",
			JWTSecret:      testSecret,
			AccessTTLMin:   5,
			RefreshTTLDays: 1,
			BcryptCost:     bcrypt.MinCost,
			Admin:          config.AdminSeed{Name: "Admin", Email: "admin@rentcar.com", Password: "admin123"},
			Inventory: config.InventoryConfig{
				QuantityDebounce: time.Second, AnalyticsMonths: 12, AnalyticsDays: 30,
				TopCars: 5, LowStockThreshold: 2,
			},
		},
		cars:     memory.NewCarStore(),
		bookings: memory.NewBookingStore(),
		users:    memory.NewUserStore(),
		tokens:   memory.NewTokenStore(),
	}
	inv := inventory.NewService(h.cars, h.bookings, nil, nil)
	h.adj = inventory.NewAdjuster(h.cars, h.bookings, nil, nil, h.cfg.Inventory.QuantityDebounce)
	t.Cleanup(h.adj.Flush)

	h.auth = NewAuthHandler(h.cfg, h.users, h.tokens, nil)
	cars := NewCarHandler(h.cars, h.bookings, inv, h.adj, nil, nil)
	bookings := NewBookingHandler(h.bookings, inv, nil)
	users := NewUserHandler(h.users, h.tokens, nil)
	dash := NewDashboardHandler(h.cars, h.bookings, h.users, h.cfg.Inventory)

	e := echo.New()
	e.Validator = NewValidator()
	authn := middleware.JWTAuth(testSecret)
	anyone := middleware.RequireRole(model.RoleUser, model.RoleAdmin)
	admin := middleware.RequireRole(model.RoleAdmin)

	e.POST("/v1/auth/register", h.auth.Register)
	e.POST("/v1/auth/login", h.auth.Login)
	e.POST("/v1/auth/refresh", h.auth.Refresh)
	e.POST("/v1/auth/logout", h.auth.Logout)
	e.GET("/v1/me", h.auth.Me, authn, anyone)
	e.POST("/v1/admin/activate", h.auth.Activate)

	e.GET("/v1/cars", cars.List)
	e.GET("/v1/cars/:id", cars.Get)
	e.POST("/v1/bookings", bookings.Create, authn, anyone)
	e.GET("/v1/bookings/:id", bookings.Get, authn, anyone)
	e.GET("/v1/my-bookings", bookings.Mine, authn, anyone)

	a := e.Group("/v1/admin", authn, admin)
	a.GET("/cars", cars.AdminList)
	a.POST("/cars", cars.Create)
	a.POST("/cars/sync", cars.Sync)
	a.PATCH("/cars/:id", cars.Update)
	a.DELETE("/cars/:id", cars.Delete)
	a.POST("/cars/:id/quantity", cars.AdjustQuantity)
	a.GET("/notifications", cars.Notifications)
	a.GET("/bookings", bookings.AdminList)
	a.PATCH("/bookings/:id", bookings.UpdateStatus)
	a.GET("/users", users.List)
	a.PATCH("/users/:id", users.Update)
	a.GET("/stats", dash.Stats)
	a.GET("/analytics", dash.Analytics)

	h.e = e
	return h
}

// token mints an access token for id/role.
func (h *harness) token(t *testing.T, id uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, id, role, 5)
	require.NoError(t, err)
	return tok.Token
}

func (h *harness) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

func (h *harness) car(t *testing.T, id uint64) model.Car {
	t.Helper()
	c, err := h.cars.GetByID(context.Background(), id)
	require.NoError(t, err)
	return c
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]any](t, rec)["error"].(string)
}
