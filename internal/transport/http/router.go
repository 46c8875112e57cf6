package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/middleware"
)

// RouterConfig holds the handlers and cross-cutting middleware for the API
type RouterConfig struct {
	License *LicenseHandler
	Config  *ConfigHandler
	Export  *ExportHandler
	Health  *HealthHandler
	Metrics http.Handler
	// WebSocket is mounted at /ws outside the request timeout.
	WebSocket http.Handler

	// Gate guards every route that needs an active license.
	Gate *middleware.LicenseGate
	// Middleware runs for every request, outermost first.
	Middleware     []func(http.Handler) http.Handler
	RequestTimeout time.Duration
}

// NewRouter assembles the command API.
//
// License, health and metrics routes are always reachable. Settings,
// configs, export and ark data answer 403 until the session is licensed.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()
	for _, mw := range cfg.Middleware {
		r.Use(mw)
	}

	if cfg.WebSocket != nil {
		r.Handle("/ws", cfg.WebSocket)
	}
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		if cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
		}

		r.Get("/health", cfg.Health.HealthCheck)
		r.Get("/health/ready", cfg.Health.ReadinessCheck)
		r.Mount("/license", cfg.License.Routes())

		r.Group(func(r chi.Router) {
			if cfg.Gate != nil {
				r.Use(cfg.Gate.Handler)
			}
			r.Mount("/settings", cfg.Config.SettingsRoutes())
			r.Mount("/configs", cfg.Config.Routes())
			r.Mount("/export", cfg.Export.Routes())
			r.Get("/ark-data", cfg.Export.ArkData)
		})
	})

	return r
}
