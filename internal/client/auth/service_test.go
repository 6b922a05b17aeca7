package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/shopkeeper/internal/client/storage/boltdb"
	"github.com/iudanet/shopkeeper/pkg/api"
)

const testCatalog = "http://catalog.test"

func newTestStore(t *testing.T) *boltdb.Storage {
	t.Helper()

	store, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestService(t *testing.T, authenticator Authenticator) (*Service, *time.Time) {
	t.Helper()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewService(authenticator, newTestStore(t), testCatalog, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return now }
	return s, &now
}

func TestService_LoginAndToken(t *testing.T) {
	ctx := context.Background()
	mock := &AuthenticatorMock{
		LoginFunc: func(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error) {
			return &api.TokenResponse{AccessToken: "jwt-token", ExpiresIn: 3600}, nil
		},
	}
	s, now := newTestService(t, mock)

	_, err := s.Token(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	data, err := s.Login(ctx, "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, "admin", data.Username)
	assert.Equal(t, now.Add(time.Hour).Unix(), data.ExpiresAt)

	require.Len(t, mock.LoginCalls(), 1)
	assert.Equal(t, api.LoginRequest{Username: "admin", Password: "secret"}, mock.LoginCalls()[0].Req)

	token, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", token)

	*now = now.Add(time.Hour)
	_, err = s.Token(ctx)
	assert.ErrorIs(t, err, ErrSessionExpired)

	session, err := s.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, "admin", session.Username)

	require.NoError(t, s.Logout(ctx))
	_, err = s.Token(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	// повторный logout не ошибка
	assert.NoError(t, s.Logout(ctx))
}

func TestService_Login_Errors(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		apiErr   error
		wantCall bool
	}{
		{name: "invalid username", username: "a", password: "secret"},
		{name: "empty password", username: "admin", password: ""},
		{name: "server rejects", username: "admin", password: "wrong", apiErr: errors.New("401"), wantCall: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &AuthenticatorMock{
				LoginFunc: func(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error) {
					return nil, tt.apiErr
				},
			}
			s, _ := newTestService(t, mock)

			_, err := s.Login(context.Background(), tt.username, tt.password)
			assert.Error(t, err)
			assert.Equal(t, tt.wantCall, len(mock.LoginCalls()) == 1)

			_, err = s.Token(context.Background())
			assert.ErrorIs(t, err, ErrNotAuthenticated)
		})
	}
}

func TestService_Login_NoExpiry(t *testing.T) {
	mock := &AuthenticatorMock{
		LoginFunc: func(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error) {
			return &api.TokenResponse{AccessToken: "forever"}, nil
		},
	}
	s, now := newTestService(t, mock)

	_, err := s.Login(context.Background(), "admin", "secret")
	require.NoError(t, err)

	*now = now.Add(365 * 24 * time.Hour)
	token, err := s.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "forever", token)
}

func TestService_SessionsArePerCatalog(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	login := func(token string) *AuthenticatorMock {
		return &AuthenticatorMock{
			LoginFunc: func(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error) {
				return &api.TokenResponse{AccessToken: token}, nil
			},
		}
	}
	prod := NewService(login("prod-token"), store, "https://catalog.example.com/", logger)
	staging := NewService(login("staging-token"), store, "https://staging.example.com", logger)

	_, err := prod.Login(ctx, "admin", "secret")
	require.NoError(t, err)
	_, err = staging.Token(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = staging.Login(ctx, "ops", "secret")
	require.NoError(t, err)

	// слэш в конце URL не создает отдельную сессию
	same := NewService(login(""), store, "https://catalog.example.com", logger)
	token, err := same.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "prod-token", token)

	require.NoError(t, prod.Logout(ctx))
	_, err = prod.Token(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	token, err = staging.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "staging-token", token)
}
