// Package http serves the two non-long-poll routes this service exposes: a
// health check and an alternate notice-ingestion endpoint that exercises
// the identical Dispatcher.ProcessNotice path the AMQP consumer uses. The
// long-poll event-retrieval endpoints themselves are out of scope — no
// queue-registration or event-drain HTTP surface is implemented here.
package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"

	"github.com/boq-project/notify-dispatch/config"
	"github.com/boq-project/notify-dispatch/internal/domain/registry"
	"github.com/boq-project/notify-dispatch/internal/service"
)

// Handler implements the HTTP surface.
type Handler struct {
	dispatcher *service.Dispatcher
	registry   *registry.Registry
	logger     *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(d *service.Dispatcher, reg *registry.Registry, logger *slog.Logger) *Handler {
	return &Handler{dispatcher: d, registry: reg, logger: logger}
}

// Router builds the chi router for this surface.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.health)
	r.Post("/notify_tornado", h.notifyTornado)
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	stats := h.registry.Stats()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok","queues":` + strconv.Itoa(stats.TotalQueues) + `}`))
}

func (h *Handler) notifyTornado(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 10<<20))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if err := h.dispatcher.ProcessNotice(r.Context(), body); err != nil {
		if service.IsDeserializationError(err) {
			http.Error(w, "malformed notice", http.StatusBadRequest)
			return
		}
		h.logger.ErrorContext(r.Context(), "http: notify_tornado failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Module wires the HTTP handler and its server lifecycle into fx.
var Module = fx.Module("http-handler",
	fx.Provide(NewHandler),
	fx.Invoke(registerServer),
)

func registerServer(lc fx.Lifecycle, h *Handler, cfg *config.Config, logger *slog.Logger) {
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: h.Router()}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("http: server error", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
