package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/iudanet/shopkeeper/internal/validation"
	"github.com/iudanet/shopkeeper/pkg/api"
)

// AdminCredentials учетная запись оператора каталога.
// PasswordHash хранится в конфиге как bcrypt хеш.
type AdminCredentials struct {
	Username     string
	PasswordHash string
}

// AuthHandler обрабатывает запросы авторизации
type AuthHandler struct {
	logger    *slog.Logger
	now       func() time.Time
	admin     AdminCredentials
	jwtConfig JWTConfig
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(logger *slog.Logger, admin AdminCredentials, jwtConfig JWTConfig) *AuthHandler {
	return &AuthHandler{
		logger:    logger,
		now:       time.Now,
		admin:     admin,
		jwtConfig: jwtConfig,
	}
}

// Login обрабатывает POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode login request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateUsername(req.Username); err != nil {
		h.logger.WarnContext(ctx, "invalid username", slog.String("username", req.Username), slog.Any("error", err))
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Password == "" {
		sendError(h.logger, w, "password is required", http.StatusBadRequest)
		return
	}

	if h.admin.Username == "" || h.admin.PasswordHash == "" {
		h.logger.ErrorContext(ctx, "login attempted but admin account is not configured")
		sendError(h.logger, w, "login is disabled", http.StatusServiceUnavailable)
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.admin.Username)) == 1
	err := bcrypt.CompareHashAndPassword([]byte(h.admin.PasswordHash), []byte(req.Password))
	if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		h.logger.ErrorContext(ctx, "failed to compare password hash", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}
	if !userOK || err != nil {
		h.logger.WarnContext(ctx, "login failed: invalid credentials", slog.String("username", req.Username))
		sendError(h.logger, w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	accessToken, expiresIn, err := GenerateAccessToken(h.jwtConfig, req.Username, h.now())
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate access token", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "admin logged in successfully", slog.String("username", req.Username))

	sendJSON(h.logger, w, api.TokenResponse{
		AccessToken: accessToken,
		ExpiresIn:   expiresIn,
	}, http.StatusOK)
}
