package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggingMiddleware logs one entry per request. Server errors are logged at
// Error, everything else at Info. Must run after SessionMiddleware.
func LoggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			sessionID, _ := GetSessionID(r.Context())
			reqLogger := logger.With(
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("session_id", sessionID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
			)
			reqLogger.Debug("Request started",
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
			)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			level := zapcore.InfoLevel
			if status >= http.StatusInternalServerError {
				level = zapcore.ErrorLevel
			}

			fields := []zap.Field{
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			}
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				fields = append(fields, zap.String("route", rctx.RoutePattern()))
			}

			if ce := reqLogger.Check(level, "Request completed"); ce != nil {
				ce.Write(fields...)
			}
		})
	}
}
