package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is anything Health can probe (*sql.DB, a redis client wrapper).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health is used by load balancers and monitoring systems.  It answers
// "ok" when every probe succeeds and 503 with the failing probe otherwise.
// Probes are optional; the in-memory backend has none.
func Health(probes map[string]Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		for name, p := range probes {
			if p == nil {
				continue
			}
			if err := p.PingContext(ctx); err != nil {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "down", "failing": name})
			}
		}
		return c.String(http.StatusOK, "ok")
	}
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }
