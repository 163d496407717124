package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/intelvis/intelvis/internal/server/config"
	"github.com/intelvis/intelvis/internal/server/metrics"
	"github.com/intelvis/intelvis/internal/server/services"
	"github.com/rs/zerolog"
)

// Deps are the collaborators the HTTP layer needs. Metrics may be nil.
type Deps struct {
	Config        *config.Config
	Logger        zerolog.Logger
	AuthService   *services.AuthService
	DeviceService *services.DeviceService
	Metrics       *metrics.Metrics
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	cookie := NewSessionCookie(cfg.Cookie)

	authHandler := NewAuthHandler(deps.AuthService, cookie, deps.Metrics)
	provisionHandler := NewProvisionHandler(deps.DeviceService, deps.Metrics)
	deviceHandler := NewDeviceHandler(deps.DeviceService, deps.Metrics)

	requireSession := SessionMiddleware(deps.AuthService, cookie)
	requireAPIKey := ProvisioningKeyMiddleware(cfg.ProvisioningAPIKey)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(deps.Logger))
	r.Use(RecovererMiddleware)
	r.Use(CORSMiddleware(cfg.CORSOrigins))
	if deps.Metrics != nil {
		r.Use(MetricsMiddleware(deps.Metrics))
	}

	r.Get("/health", health)

	if deps.Metrics != nil && cfg.MetricsEnabled {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.With(requireSession).Get("/me", authHandler.Me)
		})

		r.With(requireAPIKey).Post("/provision", provisionHandler.Provision)

		r.Route("/devices", func(r chi.Router) {
			if cfg.PingRequireAPIKey {
				r.With(requireAPIKey).Post("/ping", deviceHandler.Ping)
			} else {
				r.Post("/ping", deviceHandler.Ping)
			}

			r.Group(func(r chi.Router) {
				r.Use(requireSession)
				r.Get("/", deviceHandler.ListDevices)
				r.Post("/", deviceHandler.ClaimDevice)
				r.Put("/{device_id}", deviceHandler.RenameDevice)
			})
		})
	})

	return r
}

func health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
