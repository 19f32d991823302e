package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"pipedrill/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DSN builds a pgx connection string from configuration
func DSN(cfg config.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   cfg.Host + ":" + cfg.Port,
		Path:   cfg.Database,
	}
	q := u.Query()
	q.Set("sslmode", "disable")
	if cfg.Schema != "" {
		q.Set("search_path", cfg.Schema)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Open connects to Postgres through the pgx stdlib driver and verifies the connection
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Health returns basic connection pool statistics
func Health(ctx context.Context, db *sql.DB) map[string]string {
	stats := map[string]string{}

	pingCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		stats["status"] = "down"
		stats["error"] = err.Error()
		return stats
	}

	dbStats := db.Stats()
	stats["status"] = "up"
	stats["open_connections"] = fmt.Sprint(dbStats.OpenConnections)
	stats["in_use"] = fmt.Sprint(dbStats.InUse)
	stats["idle"] = fmt.Sprint(dbStats.Idle)
	return stats
}
