package handler

import (
	"context"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/portfolio/backend/internal/service"
	"github.com/portfolio/backend/pkg/auth"
)

// RouterConfig holds everything NewRouter wires together.
type RouterConfig struct {
	Contact service.ContactService
	Visit   service.VisitService

	AllowedOrigins     []string
	AdminToken         string // empty leaves /api/messages open
	RateLimitPerMinute int    // 0 disables
	TrustedProxyCount  int
	MaxBodyBytes       int64
}

// NewRouter creates and configures the HTTP router. ctx bounds the
// background goroutines of the rate limiters.
func NewRouter(ctx context.Context, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Order matters: ids first so every log line and panic report has one.
	r.Use(RequestID)
	r.Use(RequestLogger)
	r.Use(Recoverer)
	r.Use(chimw.CleanPath)
	r.Use(SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader, "Retry-After"},
		MaxAge:         86400,
	}))
	r.Use(MaxBodySize(cfg.MaxBodyBytes))

	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)

	health := NewHealthHandler()
	contact := NewContactHandler(cfg.Contact)
	visit := NewVisitHandler(cfg.Visit)

	r.Get("/health", health.Health)
	r.Handle("/metrics", promhttp.Handler())

	contactLimiter := NewRateLimiter(ctx, cfg.RateLimitPerMinute, cfg.TrustedProxyCount, "contact")
	visitLimiter := NewRateLimiter(ctx, cfg.RateLimitPerMinute, cfg.TrustedProxyCount, "visit")
	r.With(contactLimiter.Middleware).Post("/api/contact", contact.Submit)
	r.With(visitLimiter.Middleware).Post("/api/visit", visit.Track)

	// 管理 API
	r.Group(func(r chi.Router) {
		r.Use(chimw.NoCache)
		r.Use(auth.Guard(cfg.AdminToken))
		r.Get("/api/messages", contact.List)
		r.Patch("/api/messages/{id}/read", contact.MarkRead)
	})

	return r
}
