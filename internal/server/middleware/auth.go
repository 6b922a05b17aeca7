package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/shopkeeper/internal/server/handlers"
)

// AuthMiddleware пропускает только запросы с действующим токеном записи в каталог.
// Ошибки описаны в WWW-Authenticate (RFC 6750), клиент отличает истекший токен от чужого.
func AuthMiddleware(logger *slog.Logger, jwtConfig handlers.JWTConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.With("method", r.Method, "path", r.URL.Path, "request_id", RequestID(r.Context()))

			scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				log.Warn("Catalog write without bearer token")
				w.Header().Set("WWW-Authenticate", `Bearer realm="catalog"`)
				writeError(w, "missing token", http.StatusUnauthorized)
				return
			}

			claims, err := handlers.ValidateAccessToken(jwtConfig, token)
			switch {
			case errors.Is(err, handlers.ErrTokenExpired):
				log.Info("Expired catalog token")
				w.Header().Set("WWW-Authenticate", `Bearer realm="catalog", error="invalid_token", error_description="token expired"`)
				writeError(w, "token expired, log in again", http.StatusUnauthorized)
				return
			case errors.Is(err, handlers.ErrMissingScope):
				log.Warn("Catalog token without write scope")
				w.Header().Set("WWW-Authenticate", `Bearer realm="catalog", error="insufficient_scope", scope="`+handlers.ScopeCatalogWrite+`"`)
				writeError(w, "token cannot modify the catalog", http.StatusForbidden)
				return
			case err != nil:
				log.Warn("Invalid catalog token", "error", err)
				w.Header().Set("WWW-Authenticate", `Bearer realm="catalog", error="invalid_token"`)
				writeError(w, "invalid token", http.StatusUnauthorized)
				return
			}

			log.Debug("Catalog write authorized", "username", claims.Username)

			next.ServeHTTP(w, r.WithContext(handlers.WithUsername(r.Context(), claims.Username)))
		})
	}
}
