package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/car-rental-booking/internal/config"
	"github.com/iliyamo/car-rental-booking/internal/handler"
	"github.com/iliyamo/car-rental-booking/internal/middleware"
	"github.com/iliyamo/car-rental-booking/internal/model"
	"github.com/iliyamo/car-rental-booking/internal/telemetry"
)

// New returns an Echo instance with the shared middleware chain installed:
// panic recovery, request ids, tracing and structured access logs.
func New(log *zap.Logger, tel config.TelemetryConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(telemetry.Middleware(tel))
	e.Use(middleware.RequestLogger(log))
	return e
}

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, health echo.HandlerFunc) {
	e.GET("/healthz", health)
}

// RegisterAuth registers all authentication-related routes.  Unauthenticated
// operations live under /v1/auth, while /v1/me requires an access token.
// limit guards the credential endpoints.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limit)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// logout accepts either a refresh_token body or a bearer token
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleUser, model.RoleAdmin))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the unauthenticated fleet browse endpoints.  The
// responses go through the Redis response cache when it is enabled.
func RegisterPublic(e *echo.Echo, h *handler.CarHandler, cache *middleware.ResponseCache) {
	g := e.Group("/v1/cars", cache.Middleware())
	g.GET("", h.List)
	g.GET("/:id", h.Get)
}

// RegisterCustomer registers the booking endpoints of signed-in users.
// Admins may use them too.
func RegisterCustomer(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RoleAdmin),
	)
	g.POST("/bookings", h.Create, limit)
	g.GET("/bookings/:id", h.Get)
	g.GET("/my-bookings", h.Mine)
}

// Admin groups the handlers behind /v1/admin.
type Admin struct {
	Auth      *handler.AuthHandler
	Cars      *handler.CarHandler
	Bookings  *handler.BookingHandler
	Users     *handler.UserHandler
	Dashboard *handler.DashboardHandler
}

// RegisterAdmin registers the admin console.  Every route requires the
// admin role.
func RegisterAdmin(e *echo.Echo, h Admin, jwtSecret string) {
	g := e.Group("/v1/admin", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin))

	g.GET("/cars", h.Cars.AdminList)
	g.POST("/cars", h.Cars.Create)
	g.POST("/cars/sync", h.Cars.Sync)
	g.PATCH("/cars/:id", h.Cars.Update)
	g.DELETE("/cars/:id", h.Cars.Delete)
	g.POST("/cars/:id/quantity", h.Cars.AdjustQuantity)
	g.GET("/notifications", h.Cars.Notifications)

	g.GET("/bookings", h.Bookings.AdminList)
	g.PATCH("/bookings/:id", h.Bookings.UpdateStatus)

	g.GET("/users", h.Users.List)
	g.PATCH("/users/:id", h.Users.Update)

	g.GET("/stats", h.Dashboard.Stats)
	g.GET("/analytics", h.Dashboard.Analytics)
}

// RegisterRecovery exposes POST /v1/admin/activate without authentication
// so a suspended seeded admin can be brought back.  It is only mounted
// outside production.
func RegisterRecovery(e *echo.Echo, a *handler.AuthHandler, env string) {
	if env == "prod" || env == "production" {
		return
	}
	e.POST("/v1/admin/activate", a.Activate)
}
