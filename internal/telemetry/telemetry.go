// Package telemetry sets up OpenTelemetry tracing for the API.  Spans are
// written to stdout; an OTLP exporter can replace it without touching the
// callers.
package telemetry

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/iliyamo/car-rental-booking/internal/config"
)

// Shutdown flushes and stops the tracer provider.
type Shutdown func(ctx context.Context) error

func noop(context.Context) error { return nil }

// Setup installs a global tracer provider when tracing is enabled.  The
// returned Shutdown is always safe to call.
func Setup(cfg config.TelemetryConfig) (Shutdown, error) {
	return setup(cfg, os.Stdout)
}

func setup(cfg config.TelemetryConfig, w io.Writer) (Shutdown, error) {
	if !cfg.Enabled {
		return noop, nil
	}
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return noop, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
		)),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Middleware starts a server span per request.  Health probes are not
// traced.
func Middleware(cfg config.TelemetryConfig) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return echo.WrapMiddleware(otelhttp.NewMiddleware(cfg.ServiceName,
		otelhttp.WithFilter(func(r *http.Request) bool { return r.URL.Path != "/healthz" }),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	))
}
