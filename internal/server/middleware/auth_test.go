package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/shopkeeper/internal/server/handlers"
)

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAuthMiddleware(t *testing.T) {
	jwtConfig := handlers.JWTConfig{
		Secret:         []byte("test-secret-key"),
		AccessTokenTTL: 15 * time.Minute,
	}
	now := time.Now()

	valid, _, err := handlers.GenerateAccessToken(jwtConfig, "admin", now)
	require.NoError(t, err)
	expired, _, err := handlers.GenerateAccessToken(jwtConfig, "admin", now.Add(-time.Hour))
	require.NoError(t, err)
	foreign, _, err := handlers.GenerateAccessToken(handlers.JWTConfig{
		Secret:         []byte("wrong-secret"),
		AccessTokenTTL: time.Minute,
	}, "admin", now)
	require.NoError(t, err)
	readOnly, err := jwt.NewWithClaims(jwt.SigningMethodHS256, handlers.CatalogClaims{
		Username: "viewer",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    handlers.Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString(jwtConfig.Secret)
	require.NoError(t, err)

	tests := []struct {
		name          string
		header        string
		wantStatus    int
		wantChallenge string
	}{
		{name: "valid token", header: "Bearer " + valid, wantStatus: http.StatusOK},
		{name: "lowercase scheme", header: "bearer " + valid, wantStatus: http.StatusOK},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized, wantChallenge: `Bearer realm="catalog"`},
		{name: "no scheme", header: valid, wantStatus: http.StatusUnauthorized, wantChallenge: `Bearer realm="catalog"`},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz", wantStatus: http.StatusUnauthorized, wantChallenge: `Bearer realm="catalog"`},
		{name: "empty token", header: "Bearer ", wantStatus: http.StatusUnauthorized, wantChallenge: `Bearer realm="catalog"`},
		{name: "garbage token", header: "Bearer abc.def.ghi", wantStatus: http.StatusUnauthorized, wantChallenge: `error="invalid_token"`},
		{name: "expired token", header: "Bearer " + expired, wantStatus: http.StatusUnauthorized, wantChallenge: `error_description="token expired"`},
		{name: "wrong secret", header: "Bearer " + foreign, wantStatus: http.StatusUnauthorized, wantChallenge: `error="invalid_token"`},
		{name: "no write scope", header: "Bearer " + readOnly, wantStatus: http.StatusForbidden, wantChallenge: `error="insufficient_scope"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				username, ok := handlers.GetUsername(r.Context())
				assert.True(t, ok, "username should be in context")
				assert.Equal(t, "admin", username)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/api/products", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			AuthMiddleware(setupTestLogger(), jwtConfig)(next).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantStatus == http.StatusOK, called)
			if tt.wantStatus != http.StatusOK {
				assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
				assert.Contains(t, w.Header().Get("WWW-Authenticate"), tt.wantChallenge)
			}
		})
	}
}
