package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sessionHandler(seen *string) http.Handler {
	mw := SessionMiddleware(SessionConfig{MaxAge: time.Hour}, zap.NewNop())
	return mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen, _ = GetSessionID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
}

func TestSessionMiddleware_StartsNewSession(t *testing.T) {
	var seen string
	w := httptest.NewRecorder()
	sessionHandler(&seen).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, w.Header().Get(SessionHeader))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.Equal(t, seen, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, 3600, cookies[0].MaxAge)
}

func TestSessionMiddleware_ReusesCookie(t *testing.T) {
	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: id})

	var seen string
	sessionHandler(&seen).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, id, seen)
}

func TestSessionMiddleware_HeaderWinsOverCookie(t *testing.T) {
	headerID := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set(SessionHeader, headerID)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: uuid.NewString()})

	var seen string
	sessionHandler(&seen).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, headerID, seen)
}

func TestGetSessionID_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := GetSessionID(req.Context())
	assert.False(t, ok)
}

// Feature: storefront-cart, Property 10: Malformed session ids never reach the cart
func TestProperty_MalformedSessionIDsAreReplaced(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("non-uuid session values start a fresh session", prop.ForAll(
		func(raw string) bool {
			if _, err := uuid.Parse(raw); err == nil {
				return true
			}

			req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
			req.Header.Set(SessionHeader, raw)

			var seen string
			sessionHandler(&seen).ServeHTTP(httptest.NewRecorder(), req)

			_, err := uuid.Parse(seen)
			return err == nil && seen != raw
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
