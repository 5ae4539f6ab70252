package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flockly/event-platform/internal/config"
	"github.com/flockly/event-platform/internal/middleware"
	"github.com/flockly/event-platform/pkg/logger"
)

// Deps bundles everything the router needs.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	Resolver      *middleware.Resolver
	Queries       *QueryHandler
	Events        *EventHandler
	Registrations *RegistrationHandler
	Auth          *AuthHandler
	Health        *HealthHandler
}

// NewRouter assembles the full HTTP surface.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(d.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{d.Config.ClientURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(d.Resolver.Middleware())

	// Health endpoints (no auth required)
	r.Get("/health", d.Health.Health)
	r.Get("/ready", d.Health.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Session surface
	r.Route("/auth", func(r chi.Router) {
		r.Get("/user", d.Auth.CurrentUser)
		r.Post("/logout", d.Auth.Logout)
		r.Post("/dev-login", d.Auth.DevLogin)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(d.Config.RateLimitRequests, d.Config.RateLimitWindow))

		r.Route("/events", func(r chi.Router) {
			r.Get("/", d.Events.List)
			r.With(middleware.RequireManager).Post("/", d.Events.Create)
			r.With(middleware.RequireManager).Get("/manager", d.Events.ListMine)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", d.Events.Get)
				r.With(middleware.RequireManager).Put("/", d.Events.Update)
				r.With(middleware.RequireManager).Delete("/", d.Events.Delete)
			})
		})

		r.Route("/registrations", func(r chi.Router) {
			r.Post("/", d.Registrations.Create)
			r.With(middleware.RequireManager).Get("/event/{eventId}", d.Registrations.ListByEvent)
		})

		r.Route("/queries", func(r chi.Router) {
			r.Get("/", d.Queries.List)
			r.With(middleware.RequireAuth).Post("/", d.Queries.Create)
			r.With(middleware.RequireAuth).Post("/resolve", d.Queries.Resolve)
			r.With(middleware.RequireManager).Get("/manager/all", d.Queries.ManagerAll)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", d.Queries.Get)
				r.With(middleware.RequireAuth).Post("/messages", d.Queries.AppendMessage)
				r.With(middleware.RequireManager).Post("/close", d.Queries.Close)
			})
		})
	})

	return r
}
