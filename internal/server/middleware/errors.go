package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/iudanet/shopkeeper/pkg/api"
)

// writeError отправляет api.ErrorResponse; тело ошибки не содержит деталей запроса
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}

// Chain применяет middleware в порядке перечисления: первый оборачивает все остальные
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
