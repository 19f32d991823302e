package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerWindow int           // Number of requests allowed per window
	Window            time.Duration // Time window for rate limiting
	KeyPrefix         string        // Redis key prefix
}

// fixedWindow increments the counter and starts its window on first use.
// Returns {count, pttl in milliseconds}.
var fixedWindow = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return {count, redis.call('PTTL', KEYS[1])}
`)

// RateLimitMiddleware implements fixed-window rate limiting using Redis.
// Requests are counted per shopper session, falling back to the client
// address. Redis failures let the request through.
func RateLimitMiddleware(redisClient *redis.Client, config RateLimitConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	limit := strconv.Itoa(config.RequestsPerWindow)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := r.RemoteAddr
			if sessionID, ok := GetSessionID(r.Context()); ok {
				clientID = sessionID
			}
			key := config.KeyPrefix + ":" + clientID

			result, err := fixedWindow.Run(r.Context(), redisClient, []string{key}, config.Window.Milliseconds()).Int64Slice()
			if err != nil || len(result) != 2 {
				logger.Error("Failed to count rate limited request",
					zap.Error(err),
					zap.String("key", key),
				)
				next.ServeHTTP(w, r)
				return
			}

			count := result[0]
			ttl := time.Duration(result[1]) * time.Millisecond
			if ttl <= 0 {
				ttl = config.Window
			}

			remaining := int64(config.RequestsPerWindow) - count
			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(max(remaining, 0), 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(ttl).Unix(), 10))

			if remaining < 0 {
				logger.Warn("Rate limit exceeded",
					zap.String("client_id", clientID),
					zap.Int64("count", count),
					zap.Int("limit", config.RequestsPerWindow),
				)
				rateLimitedTotal.WithLabelValues(config.KeyPrefix).Inc()

				w.Header().Set("Retry-After", strconv.Itoa(int(ttl.Round(time.Second).Seconds())))
				RespondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
