package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Cart storage backends
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Server     ServerConfig
	Storefront StorefrontConfig
	Cart       CartConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Breaker    BreakerConfig
	Checkout   CheckoutConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

// StorefrontConfig points at the catalog and order-processing API
type StorefrontConfig struct {
	BaseURL         string
	Timeout         time.Duration
	CatalogMaxAge   time.Duration
	MaxConnsPerHost int
}

type CartConfig struct {
	Backend       string
	TTL           time.Duration
	SessionIdle   time.Duration
	SecureCookies bool
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type BreakerConfig struct {
	FailureRatio float64
	MinRequests  uint32
	OpenTimeout  time.Duration
}

type CheckoutConfig struct {
	RateLimit  int
	RateWindow time.Duration
}

// IsDevelopment reports whether the server runs outside production
func (c *Config) IsDevelopment() bool {
	return c.Server.Env != "production"
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5000")
	viper.SetDefault("STOREFRONT_API_BASE_URL", "http://localhost:5000")
	viper.SetDefault("STOREFRONT_API_TIMEOUT", "10s")
	viper.SetDefault("STOREFRONT_MAX_CONNS_PER_HOST", 32)
	viper.SetDefault("CATALOG_REFRESH_INTERVAL", "30s")
	viper.SetDefault("CART_BACKEND", BackendRedis)
	viper.SetDefault("CART_TTL", "720h")
	viper.SetDefault("CART_SESSION_IDLE", "30m")
	viper.SetDefault("LOG_LEVEL", "")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("BREAKER_FAILURE_RATIO", 0.5)
	viper.SetDefault("BREAKER_MIN_REQUESTS", 5)
	viper.SetDefault("BREAKER_OPEN_TIMEOUT", "30s")
	viper.SetDefault("CHECKOUT_RATE_LIMIT", 10)
	viper.SetDefault("CHECKOUT_RATE_WINDOW", "1m")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Env:            viper.GetString("SERVER_ENV"),
			LogLevel:       viper.GetString("LOG_LEVEL"),
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Storefront: StorefrontConfig{
			BaseURL:         strings.TrimRight(viper.GetString("STOREFRONT_API_BASE_URL"), "/"),
			Timeout:         viper.GetDuration("STOREFRONT_API_TIMEOUT"),
			CatalogMaxAge:   viper.GetDuration("CATALOG_REFRESH_INTERVAL"),
			MaxConnsPerHost: viper.GetInt("STOREFRONT_MAX_CONNS_PER_HOST"),
		},
		Cart: CartConfig{
			Backend:       strings.ToLower(viper.GetString("CART_BACKEND")),
			TTL:           viper.GetDuration("CART_TTL"),
			SessionIdle:   viper.GetDuration("CART_SESSION_IDLE"),
			SecureCookies: viper.GetString("SERVER_ENV") == "production",
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Breaker: BreakerConfig{
			FailureRatio: viper.GetFloat64("BREAKER_FAILURE_RATIO"),
			MinRequests:  viper.GetUint32("BREAKER_MIN_REQUESTS"),
			OpenTimeout:  viper.GetDuration("BREAKER_OPEN_TIMEOUT"),
		},
		Checkout: CheckoutConfig{
			RateLimit:  viper.GetInt("CHECKOUT_RATE_LIMIT"),
			RateWindow: viper.GetDuration("CHECKOUT_RATE_WINDOW"),
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
