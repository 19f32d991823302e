package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const (
	SessionIDKey contextKey = "session_id"

	// SessionCookieName is the cookie that carries the shopper session
	SessionCookieName = "pipedrill_session"
	// SessionHeader lets non-browser clients pass the session explicitly
	SessionHeader = "X-Session-ID"
)

// SessionConfig controls the session cookie
type SessionConfig struct {
	MaxAge time.Duration
	Secure bool
}

// SessionMiddleware resolves the shopper session from the X-Session-ID
// header or the session cookie. Missing or malformed ids start a new
// session, which is announced through the cookie and response header.
func SessionMiddleware(cfg SessionConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, ok := sessionFromRequest(r)
			if !ok {
				sessionID = uuid.NewString()
				logger.Debug("Session started", zap.String("session_id", sessionID))
			}

			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookieName,
				Value:    sessionID,
				Path:     "/",
				MaxAge:   int(cfg.MaxAge.Seconds()),
				HttpOnly: true,
				Secure:   cfg.Secure,
				SameSite: http.SameSiteLaxMode,
			})
			w.Header().Set(SessionHeader, sessionID)

			ctx := context.WithValue(r.Context(), SessionIDKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionFromRequest(r *http.Request) (string, bool) {
	if id := r.Header.Get(SessionHeader); id != "" {
		return normalizeSessionID(id)
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return normalizeSessionID(cookie.Value)
	}
	return "", false
}

func normalizeSessionID(raw string) (string, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// GetSessionID extracts the session ID from request context
func GetSessionID(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(SessionIDKey).(string)
	return sessionID, ok
}
