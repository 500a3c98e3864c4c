// Package httpapi assembles the public HTTP surface: middleware chain,
// registry routes, health and metrics endpoints.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"strdep/internal/platform/middleware"
	"strdep/internal/registry/handler"
)

// ReadyCheck reports whether the service's backing dependencies are reachable.
type ReadyCheck func(ctx context.Context) error

// NewRouter wires all endpoints. The registry routes sit behind bearer
// authentication; health, readiness and metrics stay open for the platform.
// A nil ready check makes /readyz always succeed.
func NewRouter(h *handler.Handler, validator middleware.PrincipalValidator, logger *zap.Logger, ready ReadyCheck) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if ready != nil {
			if err := ready(req.Context()); err != nil {
				logger.Warn("readiness check failed", zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusNoContent)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, logger))
		h.Register(r)
	})

	return r
}
