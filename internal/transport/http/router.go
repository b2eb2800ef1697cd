// Package httptransport is the thin HTTP layer over the auth service. It
// delegates to domain services without embedding business logic so transport
// concerns remain isolated; compliance outcomes surface here only as status
// codes.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"auditflow/internal/platform/middleware"
)

// NewRouter wires all public endpoints.
func NewRouter(h *Handler, validator middleware.JWTValidator, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/refresh", h.handleRefresh)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, logger))
		r.Post("/auth/password", h.handleChangePassword)
		r.Post("/auth/authorize", h.handleAuthorize)
		r.Post("/auth/logout", h.handleLogout)
	})

	return r
}
