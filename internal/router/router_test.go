package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/car-rental-booking/internal/config"
	"github.com/iliyamo/car-rental-booking/internal/handler"
	"github.com/iliyamo/car-rental-booking/internal/inventory"
	"github.com/iliyamo/car-rental-booking/internal/middleware"
	"github.com/iliyamo/car-rental-booking/internal/model"
	"github.com/iliyamo/car-rental-booking/internal/repository/memory"
	"github.com/iliyamo/car-rental-booking/internal/service"
	"github.com/iliyamo/car-rental-booking/internal/utils"
)

const secret = "router-secret"

func newServer(t *testing.T, env string) *echo.Echo {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cache := middleware.NewResponseCache(config.CacheConfig{
		Enabled: true, Methods: map[string]bool{http.MethodGet: true}, TTL: time.Minute,
		KeyStrategy: "route_query", Prefix: "cache:cars", MaxBodyBytes: 1 << 20,
	}, rdb, zap.NewNop())
	limit := middleware.NewTokenBucket(config.RateLimitConfig{
		Enabled: true, Capacity: 100, RefillTokens: 1, RefillInterval: time.Second,
		TTL: time.Minute, KeyStrategy: "ip", Prefix: "rl",
	}, rdb, zap.NewNop())

	cfg := config.Config{Env: env, JWTSecret: secret, AccessTTLMin: 5, RefreshTTLDays: 1, BcryptCost: bcrypt.MinCost,
		Admin:     config.AdminSeed{Name: "Admin", Email: "admin@rentcar.com", Password: "admin123"},
		Inventory: config.InventoryConfig{QuantityDebounce: time.Second, LowStockThreshold: 2}}
	cars, bookings := memory.NewCarStore(), memory.NewBookingStore()
	users, tokens := memory.NewUserStore(), memory.NewTokenStore()

	emitter := service.Invalidating{Cache: cache}
	inv := inventory.NewService(cars, bookings, emitter, nil)
	adj := inventory.NewAdjuster(cars, bookings, emitter, nil, cfg.Inventory.QuantityDebounce)
	t.Cleanup(adj.Flush)

	auth := handler.NewAuthHandler(cfg, users, tokens, nil)
	carH := handler.NewCarHandler(cars, bookings, inv, adj, cache, nil)
	bookingH := handler.NewBookingHandler(bookings, inv, nil)

	e := New(zap.NewNop(), config.TelemetryConfig{})
	RegisterRoutes(e, handler.Health(nil))
	RegisterAuth(e, auth, secret, limit)
	RegisterPublic(e, carH, cache)
	RegisterCustomer(e, bookingH, secret, limit)
	RegisterRecovery(e, auth, env)
	RegisterAdmin(e, Admin{
		Auth: auth, Cars: carH, Bookings: bookingH,
		Users:     handler.NewUserHandler(users, tokens, nil),
		Dashboard: handler.NewDashboardHandler(cars, bookings, users, cfg.Inventory),
	}, secret)
	return e
}

func call(e *echo.Echo, method, path string, body any, token string) *httptest.ResponseRecorder {
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
	e.ServeHTTP(rec, req)
	return rec
}

func listCars(t *testing.T, e *echo.Echo) ([]model.Car, string) {
	t.Helper()
	rec := call(e, http.MethodGet, "/v1/cars", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cars []model.Car
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cars))
	return cars, rec.Header().Get("X-Cache")
}

func TestRouter_BookingFlowKeepsCacheFresh(t *testing.T) {
	e := newServer(t, "dev")
	admin, err := utils.NewAccessToken(secret, 1000, model.RoleAdmin, 5)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, call(e, http.MethodGet, "/healthz", nil, "").Code)

	cars, state := listCars(t, e)
	assert.Empty(t, cars)
	assert.Equal(t, "MISS", state)
	_, state = listCars(t, e)
	assert.Equal(t, "HIT", state)

	rec := call(e, http.MethodPost, "/v1/admin/cars", map[string]any{"name": "Corolla", "quantity": 2}, admin.Token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	cars, state = listCars(t, e)
	assert.Equal(t, "MISS", state)
	require.Len(t, cars, 1)
	assert.Equal(t, 2, cars[0].Available)

	rec = call(e, http.MethodPost, "/v1/auth/register", map[string]any{"name": "Sara", "email": "sara@example.com", "password": "secret1"}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var reg struct {
		Access struct {
			Token string `json:"token"`
		} `json:"access"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))

	rec = call(e, http.MethodPost, "/v1/bookings", map[string]any{
		"carId": cars[0].ID, "startDate": "2025-03-01", "endDate": "2025-03-02",
		"startTime": "10:00", "endTime": "10:00", "totalAmount": 80,
	}, reg.Access.Token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// the booking event purged the listing
	cars, state = listCars(t, e)
	assert.Equal(t, "MISS", state)
	assert.Equal(t, 1, cars[0].Available)

	assert.Equal(t, http.StatusForbidden, call(e, http.MethodGet, "/v1/admin/bookings", nil, reg.Access.Token).Code)
	assert.Equal(t, http.StatusOK, call(e, http.MethodGet, "/v1/my-bookings", nil, reg.Access.Token).Code)
	assert.Equal(t, http.StatusOK, call(e, http.MethodGet, "/v1/me", nil, reg.Access.Token).Code)
}

func TestRouter_RecoveryOnlyOutsideProduction(t *testing.T) {
	dev := newServer(t, "dev")
	assert.Equal(t, http.StatusNotFound, call(dev, http.MethodPost, "/v1/admin/activate", nil, "").Code)

	prod := newServer(t, "prod")
	assert.Equal(t, http.StatusUnauthorized, call(prod, http.MethodPost, "/v1/admin/activate", nil, "").Code)
}
