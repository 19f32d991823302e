package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"pipedrill/internal/client"
	"pipedrill/internal/config"
	"pipedrill/internal/database"
	custommiddleware "pipedrill/internal/middleware"
	"pipedrill/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Dependencies are the components the server routes to and closes on shutdown
type Dependencies struct {
	Handler    *transport.CartHandler
	Storefront client.StorefrontClient
	DB         *sql.DB       // nil unless carts are stored in Postgres
	Redis      *redis.Client // nil disables checkout rate limiting
}

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	deps   Dependencies
}

func NewServer(cfg *config.Config, logger *zap.Logger, deps Dependencies) *Server {
	server := &Server{
		config: cfg,
		logger: logger,
		deps:   deps,
	}

	server.Server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      server.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}

func (s *Server) routes() http.Handler {
	router := chi.NewRouter()

	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.ErrorHandlingMiddleware(s.logger))
	router.Use(custommiddleware.CORSMiddleware(s.config.Server.AllowedOrigins, s.config.IsDevelopment()))

	router.Get("/health", s.health)
	router.Handle("/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		r.Use(custommiddleware.SessionMiddleware(custommiddleware.SessionConfig{
			MaxAge: s.config.Cart.TTL,
			Secure: s.config.Cart.SecureCookies,
		}, s.logger))
		r.Use(custommiddleware.LoggingMiddleware(s.logger))
		r.Use(custommiddleware.MetricsMiddleware)
		r.Use(custommiddleware.RequireJSON(s.logger))

		var checkoutLimiter func(http.Handler) http.Handler
		if s.deps.Redis != nil && s.config.Checkout.RateLimit > 0 {
			checkoutLimiter = custommiddleware.RateLimitMiddleware(s.deps.Redis, custommiddleware.RateLimitConfig{
				RequestsPerWindow: s.config.Checkout.RateLimit,
				Window:            s.config.Checkout.RateWindow,
				KeyPrefix:         "checkout_rate_limit",
			}, s.logger)
		}

		s.deps.Handler.RegisterRoutes(r, checkoutLimiter)
	})

	return router
}

// health reports the cart storage and the storefront breaker. An open
// breaker degrades the service but does not fail the check.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]interface{}{
		"status": "ok",
	}

	if s.deps.Storefront != nil {
		state := s.deps.Storefront.State()
		body["storefront"] = state.String()
		if state == gobreaker.StateOpen {
			body["status"] = "degraded"
		}
	}

	if s.deps.DB != nil {
		dbHealth := database.Health(r.Context(), s.deps.DB)
		body["database"] = dbHealth
		if dbHealth["status"] != "up" {
			status = http.StatusServiceUnavailable
			body["status"] = "down"
		}
	}

	if s.deps.Redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		if err := s.deps.Redis.Ping(ctx).Err(); err != nil {
			body["redis"] = "down"
			if s.config.Cart.Backend == config.BackendRedis {
				status = http.StatusServiceUnavailable
				body["status"] = "down"
			}
		} else {
			body["redis"] = "up"
		}
	}

	custommiddleware.RespondWithJSON(w, status, body)
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	// Close database connection
	if s.deps.DB != nil {
		if err := s.deps.DB.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	if s.deps.Redis != nil {
		if err := s.deps.Redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
