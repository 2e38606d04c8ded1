package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_authMiddleware(t *testing.T) {
	s := newTestApp(t)

	next := func(w http.ResponseWriter, r *http.Request) {
		id, ok := ConnectionId(r.Context())
		require.True(t, ok, "expected connection id in request context")
		assert.Equal(t, "conn-1", id)
		w.WriteHeader(http.StatusOK)
	}

	t.Run("missing cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		s.authMiddleware(next)(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: "garbage"})
		rec := httptest.NewRecorder()
		s.authMiddleware(next)(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		tokenString, err := s.generateToken("conn-1")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: tokenString})
		rec := httptest.NewRecorder()
		s.authMiddleware(next)(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")
	})
}

func Test_errorHandler(t *testing.T) {
	s := newTestApp(t)

	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.errorHandler(panicking).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code, "expected panic to become a 500")
	assert.Contains(t, rec.Body.String(), "internal server error")
}
