package http

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/auth"
	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/domain"
	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/service"
	"github.com/jteerlink/SymptomSentinelAI-sub001/pkg/health"
	"github.com/jteerlink/SymptomSentinelAI-sub001/pkg/middleware"
)

// RouterConfig carries everything the router needs.
type RouterConfig struct {
	Resolver       *auth.Resolver
	Users          *service.UserService
	Scans          *service.ScanService
	Limits         domain.QuotaLimits
	SecureCookies  bool
	RefreshTTL     time.Duration
	RateLimitRPS   int
	RateLimitBurst int
	Health         *health.Handler
	Logger         *slog.Logger
}

// NewRouter assembles the HTTP routing tree.
func NewRouter(cfg RouterConfig) *chi.Mux {
	log := cfg.Logger
	cookies := cookieWriter{secure: cfg.SecureCookies, refreshTTL: cfg.RefreshTTL}

	authHandler := NewAuthHandler(cfg.Users, cookies, log)
	userHandler := NewUserHandler(cfg.Users, cfg.Scans, cfg.Limits, cookies, log)
	scanHandler := NewScanHandler(cfg.Scans, log)
	authMW := NewAuthMiddleware(cfg.Resolver, cookies, log)

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestLogging(log))
	r.Use(middleware.PrometheusMetrics("symptomsentinel-api"))

	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoints are rate limited per IP to slow down
		// credential stuffing.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, log))
			r.Post("/auth/register", authHandler.Register)
			r.Post("/auth/login", authHandler.Login)
			r.Post("/auth/refresh", authHandler.Refresh)
			r.Post("/auth/logout", authHandler.Logout)
		})

		r.With(authMW.OptionalAuth).Get("/tiers", userHandler.ListTiers)

		r.Group(func(r chi.Router) {
			r.Use(authMW.RequireAuth)

			r.Get("/users/me", userHandler.GetProfile)
			r.Patch("/users/me", userHandler.UpdateProfile)
			r.Delete("/users/me", userHandler.DeleteAccount)
			r.Put("/users/me/password", userHandler.ChangePassword)
			r.Put("/users/me/subscription", userHandler.ChangeSubscription)
			r.Get("/users/me/quota", userHandler.GetQuota)

			r.Post("/scans", scanHandler.Create)
		})
	})

	return r
}
