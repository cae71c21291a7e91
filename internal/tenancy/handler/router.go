package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stratus/internal/platform/middleware"
)

// NewRouter assembles the full HTTP surface: the authenticated admin API,
// the health probe, and the Prometheus scrape endpoint.
func NewRouter(h *Handler, validator middleware.JWTValidator, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/admin", func(admin chi.Router) {
		admin.Use(middleware.RequireAuth(validator, logger))
		h.Routes(admin)
	})

	return r
}
