// Package httptransport wires the public and admin HTTP surfaces. Handlers
// stay thin; domain decisions live in the services they delegate to.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"leadgate/internal/platform/middleware"
	"leadgate/internal/transport/http/shared"
)

// RouterConfig carries the transport-level knobs.
type RouterConfig struct {
	// AdminAPIKeys maps API key to the label recorded as the acting user.
	AdminAPIKeys map[string]string
	// RequestTimeout bounds handler execution. Zero disables the timeout.
	RequestTimeout time.Duration
}

// NewRouter assembles the full route tree: applicant endpoints at the root,
// the sales surface under /admin behind API keys, plus health and metrics.
func NewRouter(cfg RouterConfig, intakeH *IntakeHandler, adminH *AdminHandler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RequestTime,
		middleware.ClientMetadata,
		middleware.Recovery(logger),
		middleware.Logger(logger),
	)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		intakeH.Register(r)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAdmin(cfg.AdminAPIKeys, logger))
		adminH.Register(r)
	})
	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
