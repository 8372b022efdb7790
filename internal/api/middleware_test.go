package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/crmsuite/relay/internal/database"
	"github.com/stretchr/testify/assert"
)

func Test_authMiddleware(t *testing.T) {
	app := newTestApp(t, &database.MockCrmRepository{}, nil)

	handler := app.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
		userId, ok := UserId(r.Context())
		assert.True(t, ok, "expected user id in context")
		assert.Equal(t, 7, userId)
		w.WriteHeader(http.StatusOK)
	})

	t.Run("no cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
		rr := httptest.NewRecorder()
		handler(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
		req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: "garbage"})
		rr := httptest.NewRecorder()
		handler(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := NewSessionToken(app.signingKey, 7, -time.Hour)
		assert.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
		req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: token})
		rr := httptest.NewRecorder()
		handler(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := NewSessionToken(app.signingKey, 7, time.Hour)
		assert.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
		req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: token})
		rr := httptest.NewRecorder()
		handler(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func Test_errorHandler(t *testing.T) {
	app := newTestApp(t, &database.MockCrmRepository{}, nil)

	handler := app.errorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()

	assert.NotPanics(t, func() {
		handler.ServeHTTP(rr, req)
	})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func Test_ServiceAuthHeader(t *testing.T) {
	app := newTestApp(t, &database.MockCrmRepository{}, nil)

	header, err := ServiceAuthHeader(app.signingKey)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header = header

	cookie, err := req.Cookie(TokenCookieName)
	assert.NoError(t, err, "expected the header to carry a session cookie")

	userId, err := extractUserIdFromToken(cookie.Value, app.signingKey)
	assert.NoError(t, err)
	assert.Equal(t, 0, userId, "expected the bridge to authenticate as the system identity")
}
