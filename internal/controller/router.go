package controller

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/goldshop/checkout/internal/domain/order"
	"github.com/goldshop/checkout/internal/infrastructure/config"
	"github.com/goldshop/checkout/internal/infrastructure/observability"
	customMW "github.com/goldshop/checkout/internal/middleware"
	"github.com/goldshop/checkout/internal/repository/postgres"
	"github.com/goldshop/checkout/internal/service"
)

type RouterDeps struct {
	Pool            *pgxpool.Pool
	RedisClient     *redis.Client
	OrderRepo       order.Repository
	CheckoutService *service.CheckoutService
	RefundService   *service.RefundService
	IdempotencyRepo *postgres.IdempotencyRepository
	Metrics         *observability.Metrics
	Config          *config.Config
	Logger          zerolog.Logger
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(customMW.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: deps.Config.Server.CORS.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))
	r.Use(customMW.RateLimit(deps.Config.Server.RateLimitPerMin))

	healthH := NewHealthController(deps.Pool, deps.RedisClient)
	checkoutH := NewCheckoutController(deps.CheckoutService, deps.Config.Checkout, deps.Logger)
	orderH := NewOrderController(deps.RefundService, deps.OrderRepo)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	// Buyer-facing checkout; guests allowed, claims attached when present.
	r.With(customMW.OptionalAuth(deps.Config.Auth.JWTSecret)).
		Post("/checkout", checkoutH.Checkout)

	// Operator API.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(customMW.RequireAuth(deps.Config.Auth.JWTSecret))

		idempotencyMW := customMW.Idempotency(deps.IdempotencyRepo)

		r.Get("/orders/{id}", orderH.Get)
		r.Get("/orders/number/{number}", orderH.GetByNumber)
		r.With(idempotencyMW).Post("/orders/{id}/refund", orderH.Refund)
	})

	return r
}
