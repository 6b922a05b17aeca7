package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/iudanet/shopkeeper/pkg/api"
)

// ProductCounter отдает размер каталога для health check
type ProductCounter interface {
	CountProducts(ctx context.Context) (int, error)
}

// HealthHandler обрабатывает health check запросы
type HealthHandler struct {
	logger  *slog.Logger
	counter ProductCounter
}

// NewHealthHandler создает новый handler для health check
func NewHealthHandler(logger *slog.Logger, counter ProductCounter) *HealthHandler {
	return &HealthHandler{
		logger:  logger,
		counter: counter,
	}
}

// Health обрабатывает GET /api/health.
// Недоступная база дает 503 и статус "degraded".
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	n, err := h.counter.CountProducts(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "health check: storage unavailable", slog.Any("error", err))
		sendJSON(h.logger, w, api.HealthResponse{Status: "degraded"}, http.StatusServiceUnavailable)
		return
	}

	sendJSON(h.logger, w, api.HealthResponse{Status: "ok", Products: n}, http.StatusOK)
}
