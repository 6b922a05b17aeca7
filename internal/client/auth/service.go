// Package auth keeps the operator's catalog API session on the device.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/shopkeeper/internal/client/storage"
	"github.com/iudanet/shopkeeper/internal/validation"
	"github.com/iudanet/shopkeeper/pkg/api"
)

var (
	// ErrNotAuthenticated indicates that login was never performed or logout was called
	ErrNotAuthenticated = errors.New("not authenticated, run 'shopkeeper login' first")

	// ErrSessionExpired indicates that the stored token is past its expiry
	ErrSessionExpired = errors.New("session expired, run 'shopkeeper login' again")
)

//go:generate moq -out authenticator_mock.go . Authenticator

// Authenticator exchanges credentials for a token (see internal/client/api.Client)
type Authenticator interface {
	Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error)
}

// Service хранит сессию оператора для одного catalog URL
type Service struct {
	api        Authenticator
	store      storage.SessionStorage
	logger     *slog.Logger
	now        func() time.Time
	catalogURL string
}

// NewService создает сервис авторизации для каталога catalogURL
func NewService(authenticator Authenticator, store storage.SessionStorage, catalogURL string, logger *slog.Logger) *Service {
	return &Service{
		api:        authenticator,
		store:      store,
		logger:     logger,
		now:        time.Now,
		catalogURL: catalogURL,
	}
}

// CatalogURL returns the catalog server the session belongs to
func (s *Service) CatalogURL() string {
	return s.catalogURL
}

// Login выполняет аутентификацию и сохраняет токен локально
func (s *Service) Login(ctx context.Context, username, password string) (*storage.Session, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("invalid username: %w", err)
	}
	if password == "" {
		return nil, fmt.Errorf("password cannot be empty")
	}

	resp, err := s.api.Login(ctx, api.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	now := s.now()
	session := &storage.Session{
		CatalogURL:  s.catalogURL,
		Username:    username,
		AccessToken: resp.AccessToken,
		IssuedAt:    now.Unix(),
	}
	if resp.ExpiresIn > 0 {
		session.ExpiresAt = now.Add(time.Duration(resp.ExpiresIn) * time.Second).Unix()
	}

	if err := s.store.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.InfoContext(ctx, "logged in",
		slog.String("username", username),
		slog.String("catalog", s.catalogURL))

	return session, nil
}

// Token возвращает сохраненный токен, если он еще действителен
func (s *Service) Token(ctx context.Context) (string, error) {
	session, err := s.Session(ctx)
	if err != nil {
		return "", err
	}

	if session.AccessToken == "" {
		return "", ErrNotAuthenticated
	}
	if session.Expired(s.now()) {
		return "", ErrSessionExpired
	}

	return session.AccessToken, nil
}

// Session возвращает сохраненную сессию без проверки срока
func (s *Service) Session(ctx context.Context) (*storage.Session, error) {
	session, err := s.store.GetSession(ctx, s.catalogURL)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	return session, nil
}

// Logout удаляет сессию этого каталога, остальные остаются
func (s *Service) Logout(ctx context.Context) error {
	if err := s.store.DeleteSession(ctx, s.catalogURL); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
