package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"pipedrill/internal/catalog"
	"pipedrill/internal/client"
	"pipedrill/internal/config"
	"pipedrill/internal/database"
	"pipedrill/internal/logger"
	"pipedrill/internal/repository"
	"pipedrill/internal/server"
	"pipedrill/internal/service"
	"pipedrill/internal/transport"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *server.Server, logger *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Close server resources
	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

// openCartStorage connects the configured cart backend. The redis client is
// returned whenever one was opened so checkout rate limiting can share it.
func openCartStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.SlotStore, *sql.DB, *redis.Client, error) {
	var redisClient *redis.Client
	if cfg.Cart.Backend == config.BackendRedis || cfg.Checkout.RateLimit > 0 {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			if cfg.Cart.Backend == config.BackendRedis {
				return nil, nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
			}
			log.Warn("Redis unavailable, checkout rate limiting fails open", zap.Error(err))
		}
	}

	switch cfg.Cart.Backend {
	case config.BackendRedis:
		return repository.NewRedisSlotStore(redisClient, cfg.Cart.TTL), nil, redisClient, nil
	case config.BackendPostgres:
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return nil, nil, redisClient, err
		}
		log.Info("Database health check", zap.Any("health", database.Health(ctx, db)))

		if err := database.RunMigrations(db, database.MigrationsDir, log); err != nil {
			db.Close()
			return nil, nil, redisClient, err
		}
		log.Info("Database migrations completed successfully")
		return repository.NewPostgresSlotStore(db), db, redisClient, nil
	case config.BackendMemory:
		log.Warn("Carts are kept in memory and lost on restart")
		return repository.NewMemorySlotStore(), nil, redisClient, nil
	default:
		return nil, nil, redisClient, fmt.Errorf("unknown cart backend %q", cfg.Cart.Backend)
	}
}

// sweepSessions evicts idle cart sessions from memory until ctx is done
func sweepSessions(ctx context.Context, registry *service.Registry, idle time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if evicted := registry.Sweep(idle); evicted > 0 {
				log.Debug("Evicted idle cart sessions",
					zap.Int("evicted", evicted),
					zap.Int("active", registry.Len()),
				)
			}
		}
	}
}

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(logger.Options{
		Env:     cfg.Server.Env,
		Level:   cfg.Server.LogLevel,
		Service: logger.ServiceName,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting pipedrill cart API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("cart_backend", cfg.Cart.Backend),
		zap.String("storefront", cfg.Storefront.BaseURL),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slots, db, redisClient, err := openCartStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open cart storage", zap.Error(err))
	}

	clientCfg := client.DefaultConfig(cfg.Storefront.BaseURL)
	clientCfg.Timeout = cfg.Storefront.Timeout
	clientCfg.MaxConnsPerHost = cfg.Storefront.MaxConnsPerHost
	clientCfg.BreakerFailureRatio = cfg.Breaker.FailureRatio
	clientCfg.BreakerMinRequests = cfg.Breaker.MinRequests
	clientCfg.BreakerOpenTimeout = cfg.Breaker.OpenTimeout
	storefront := client.New(clientCfg, log)

	products := catalog.New(storefront, cfg.Storefront.CatalogMaxAge, log)
	history := catalog.NewHistory(storefront, log)

	// The API starts without a catalog; lookups retry the load lazily
	if err := products.Refresh(ctx); err != nil {
		log.Warn("Initial catalog load failed", zap.Error(err))
	}
	if err := history.Refresh(ctx); err != nil {
		log.Warn("Initial order history load failed", zap.Error(err))
	}

	registry := service.NewRegistry(repository.NewCartRepository(slots, log), log)
	if cfg.Cart.SessionIdle > 0 {
		go sweepSessions(ctx, registry, cfg.Cart.SessionIdle, log)
	}

	handler := transport.NewCartHandler(
		registry,
		products,
		service.NewOrderSubmitter(storefront, history, log),
		service.NewServiceRequestSubmitter(storefront, products, history, log),
		history,
		log,
	)

	srv := server.NewServer(cfg, log, server.Dependencies{
		Handler:    handler,
		Storefront: storefront,
		DB:         db,
		Redis:      redisClient,
	})

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(srv, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	cancel()
	log.Info("Graceful shutdown complete")
}
