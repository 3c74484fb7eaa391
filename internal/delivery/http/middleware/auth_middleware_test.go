package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clinic-dashboard/config"
	"clinic-dashboard/pkg/jwt"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roleEcho(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := GetRoleFromContext(r.Context())
		require.True(t, ok)
		subject, _ := GetSubjectFromContext(r.Context())
		w.Header().Set("X-Role", role)
		w.Header().Set("X-Subject", subject)
		w.WriteHeader(http.StatusNoContent)
	})
}

func serve(h http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticate_DisabledPassesThroughAsAdmin(t *testing.T) {
	m := NewAuthMiddleware(jwt.NewJWTService(config.JWTConfig{}))

	rec := serve(m.Authenticate(roleEcho(t)), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, jwt.RoleAdmin, rec.Header().Get("X-Role"))
}

func TestAuthenticate_Enabled(t *testing.T) {
	svc := jwt.NewJWTService(config.JWTConfig{Secret: "secret", AccessExpiry: time.Minute})
	m := NewAuthMiddleware(svc)
	h := m.Authenticate(roleEcho(t))

	token, err := svc.GenerateAccessToken("host", jwt.RoleViewer)
	require.NoError(t, err)

	rec := serve(h, "Bearer "+token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, jwt.RoleViewer, rec.Header().Get("X-Role"))
	assert.Equal(t, "host", rec.Header().Get("X-Subject"))

	assert.Equal(t, http.StatusUnauthorized, serve(h, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(h, "Token "+token).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(h, "Bearer nope").Code)
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	svc := jwt.NewJWTService(config.JWTConfig{Secret: "secret", AccessExpiry: time.Minute})
	h := NewAuthMiddleware(svc).Authenticate(RequireAdmin(ok))

	viewer, err := svc.GenerateAccessToken("host", jwt.RoleViewer)
	require.NoError(t, err)
	admin, err := svc.GenerateAccessToken("ops", jwt.RoleAdmin)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, serve(h, "Bearer "+viewer).Code)
	assert.Equal(t, http.StatusOK, serve(h, "Bearer "+admin).Code)

	// Without the auth middleware there is no role in context.
	assert.Equal(t, http.StatusUnauthorized, serve(RequireAdmin(ok), "").Code)
}

func TestLoggingMiddleware_RequestID(t *testing.T) {
	m := NewLoggingMiddleware(testLogger())
	h := m.Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := serve(h, "")
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	called := false
	h := NewCORSMiddleware().Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, called)
	assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
