package handlers

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// Issuer пишется в claims каждого токена
	Issuer = "shopkeeper"

	// ScopeCatalogWrite разрешает POST и DELETE /api/products
	ScopeCatalogWrite = "catalog:write"

	// clockSkew допустимое расхождение часов клиента и сервера
	clockSkew = 5 * time.Second
)

var (
	// ErrTokenExpired is returned for a well-formed token past its expiry
	ErrTokenExpired = errors.New("token expired")

	// ErrMissingScope is returned for a valid token without catalog write access
	ErrMissingScope = errors.New("token lacks catalog write scope")
)

// CatalogClaims are the claims of an operator access token
type CatalogClaims struct {
	Username string   `json:"username"`
	Scopes   []string `json:"scopes"`
	jwt.RegisteredClaims
}

// JWTConfig содержит конфигурацию для JWT
type JWTConfig struct {
	Secret         []byte
	AccessTokenTTL time.Duration
}

// GenerateAccessToken выдает токен с правом записи в каталог.
// Возвращает токен и время жизни в секундах.
func GenerateAccessToken(cfg JWTConfig, username string, now time.Time) (string, int64, error) {
	claims := CatalogClaims{
		Username: username,
		Scopes:   []string{ScopeCatalogWrite},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    Issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.Secret)
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, int64(cfg.AccessTokenTTL.Seconds()), nil
}

// ValidateAccessToken проверяет подпись, issuer, срок и scope токена
func ValidateAccessToken(cfg JWTConfig, tokenString string) (*CatalogClaims, error) {
	claims := &CatalogClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return cfg.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !slices.Contains(claims.Scopes, ScopeCatalogWrite) {
		return nil, ErrMissingScope
	}

	return claims, nil
}
