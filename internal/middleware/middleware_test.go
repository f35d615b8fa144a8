package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/car-rental-booking/internal/config"
	"github.com/iliyamo/car-rental-booking/internal/utils"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func do(e *echo.Echo, method, target string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAndRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/admin", func(c echo.Context) error {
		id, _ := UserID(c)
		return c.JSON(http.StatusOK, echo.Map{"id": id})
	}, JWTAuth("k"), RequireRole("admin"))

	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/admin", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/admin", map[string]string{"Authorization": "Bearer junk"}).Code)

	user, err := utils.NewAccessToken("k", 3, "user", 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodGet, "/admin", map[string]string{"Authorization": "Bearer " + user.Token}).Code)

	admin, err := utils.NewAccessToken("k", 9, "admin", 5)
	require.NoError(t, err)
	rec := do(e, http.MethodGet, "/admin", map[string]string{"Authorization": "Bearer " + admin.Token})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":9}`, rec.Body.String())
}

func TestResponseCache_HitMissAndPurge(t *testing.T) {
	_, rdb := setupTestRedis(t)
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute,
		KeyStrategy: "route_query", Prefix: "cache:cars", MaxBodyBytes: 1 << 20}
	rc := NewResponseCache(cfg, rdb, zap.NewNop())

	var calls atomic.Int32
	e := echo.New()
	e.GET("/cars", func(c echo.Context) error {
		calls.Add(1)
		return c.JSON(http.StatusOK, echo.Map{"n": calls.Load()})
	}, rc.Middleware())

	first := do(e, http.MethodGet, "/cars?category=suv", nil)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := do(e, http.MethodGet, "/cars?category=suv", nil)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, echo.MIMEApplicationJSON, second.Header().Get(echo.HeaderContentType))
	assert.EqualValues(t, 1, calls.Load())

	other := do(e, http.MethodGet, "/cars?category=sedan", nil)
	assert.Equal(t, "MISS", other.Header().Get("X-Cache"))

	require.NoError(t, rc.Purge(context.Background()))
	again := do(e, http.MethodGet, "/cars?category=suv", nil)
	assert.Equal(t, "MISS", again.Header().Get("X-Cache"))
	assert.EqualValues(t, 3, calls.Load())
}

func TestResponseCache_SkipsErrorsAndDisabled(t *testing.T) {
	_, rdb := setupTestRedis(t)
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "cache:cars"}
	rc := NewResponseCache(cfg, rdb, nil)

	e := echo.New()
	e.GET("/boom", func(c echo.Context) error {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "x"})
	}, rc.Middleware())
	do(e, http.MethodGet, "/boom", nil)
	assert.Equal(t, "MISS", do(e, http.MethodGet, "/boom", nil).Header().Get("X-Cache"))

	var disabled *ResponseCache
	assert.NoError(t, disabled.Purge(context.Background()))
}

func TestTokenBucket_BlocksAfterCapacity(t *testing.T) {
	_, rdb := setupTestRedis(t)
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Hour,
		TTL: 2 * time.Hour, KeyStrategy: "ip", Prefix: "rl"}

	e := echo.New()
	e.Use(NewTokenBucket(cfg, rdb, zap.NewNop()))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/", nil).Code)
	rec := do(e, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	blocked := do(e, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))
}

func TestTokenBucket_FailsOpenWhenRedisDown(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	mr.Close()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute}
	e := echo.New()
	e.Use(NewTokenBucket(cfg, rdb, nil))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/", nil).Code)
	}
}

func TestRequestLogger_LevelsByOutcome(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	e := echo.New()
	e.Use(RequestLogger(zap.New(core)))
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusInternalServerError, "boom") })

	assert.Equal(t, http.StatusNoContent, do(e, http.MethodGet, "/ok", nil).Code)
	assert.Equal(t, http.StatusInternalServerError, do(e, http.MethodGet, "/boom", nil).Code)

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "/ok", entries[0].ContextMap()["uri"])
	assert.Equal(t, int64(http.StatusNoContent), entries[0].ContextMap()["status"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
}
