package cmd

import (
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"

	"github.com/boq-project/notify-dispatch/config"
	amqphandler "github.com/boq-project/notify-dispatch/internal/handler/amqp"
	httphandler "github.com/boq-project/notify-dispatch/internal/handler/http"
	"github.com/boq-project/notify-dispatch/internal/domain/registry"
	"github.com/boq-project/notify-dispatch/internal/service"
	"github.com/boq-project/notify-dispatch/internal/shutdown"
)

// NewApp builds the fx application graph for the server command.
func NewApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			ProvideShutdownLatch,
		),
		registry.Module,
		service.Module,
		amqphandler.Module,
		httphandler.Module,
	)
}

// ProvideLogger constructs the process-wide structured logger, bridged to
// OpenTelemetry so every log record carries the active trace context. It
// builds an SDK tracer provider with no exporter registered and installs it
// as the global provider itself; the provider is not taken from the fx
// graph, and no configuration option selects an exporter.
func ProvideLogger() *slog.Logger {
	tp := trace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	bridge := otelslog.NewHandler(ServiceName)
	base := slog.New(bridge)

	return base.With("service", ServiceName, "version", version)
}

// ProvideShutdownLatch provides the single shutdown.Latch shared by every
// background task (AMQP consume loop, HTTP server) so any one of them can
// bring the whole process down on an unrecoverable error.
func ProvideShutdownLatch() *shutdown.Latch {
	return shutdown.New()
}
