package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/iudanet/shopkeeper/internal/models"
	"github.com/iudanet/shopkeeper/internal/server/storage"
	"github.com/iudanet/shopkeeper/internal/validation"
	"github.com/iudanet/shopkeeper/pkg/api"
)

// maxProductBody ограничивает размер тела POST /api/products
const maxProductBody = 1 << 20

// ProductStorage определяет интерфейс для работы с каталогом
type ProductStorage interface {
	ListProducts(ctx context.Context) ([]models.Record, error)
	SaveProduct(ctx context.Context, record models.Record) (models.Record, bool, error)
	DeleteProduct(ctx context.Context, id string) error
}

// ProductsHandler handles catalog requests
type ProductsHandler struct {
	logger    *slog.Logger
	storage   ProductStorage
	validator *validation.Validator
	now       func() time.Time
}

// NewProductsHandler creates a new catalog handler
func NewProductsHandler(logger *slog.Logger, storage ProductStorage) *ProductsHandler {
	return &ProductsHandler{
		logger:    logger,
		storage:   storage,
		validator: validation.New(),
		now:       time.Now,
	}
}

// List обрабатывает GET /api/products и всегда отдает JSON массив
func (h *ProductsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.storage.ListProducts(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list products", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []models.Record{}
	}

	sendJSON(h.logger, w, records, http.StatusOK)
}

// Save обрабатывает POST /api/products.
// Запись без lastUpdated получает время сервера; более старая версия не перезаписывает хранимую.
func (h *ProductsHandler) Save(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var record models.Record
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxProductBody)).Decode(&record); err != nil {
		h.logger.WarnContext(ctx, "failed to decode product", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	if record.ID == "" {
		sendError(h.logger, w, "id is required", http.StatusBadRequest)
		return
	}

	var product models.Product
	if err := record.Decode(&product); err != nil {
		sendError(h.logger, w, "invalid product: "+err.Error(), http.StatusBadRequest)
		return
	}

	fields, err := h.validator.Struct(product)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to validate product", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}
	if len(fields) > 0 {
		msgs := make([]string, 0, len(fields))
		for _, f := range fields {
			msgs = append(msgs, f.String())
		}
		sendError(h.logger, w, strings.Join(msgs, "; "), http.StatusUnprocessableEntity)
		return
	}

	if record.LastUpdated == 0 {
		record = record.Stamped(h.now().UnixMilli())
	}

	stored, applied, err := h.storage.SaveProduct(ctx, record)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidRecord) {
			sendError(h.logger, w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.ErrorContext(ctx, "failed to save product", slog.String("id", record.ID), slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	if !applied {
		h.logger.InfoContext(ctx, "stale product write ignored",
			slog.String("id", record.ID),
			slog.Int64("incoming", record.LastUpdated),
			slog.Int64("stored", stored.LastUpdated))
	}

	sendJSON(h.logger, w, api.SaveResponse{
		ID:          stored.ID,
		LastUpdated: stored.LastUpdated,
		Applied:     applied,
	}, http.StatusOK)
}

// Delete обрабатывает DELETE /api/products/{id}
func (h *ProductsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	if id == "" {
		sendError(h.logger, w, "id is required", http.StatusBadRequest)
		return
	}

	if err := h.storage.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			sendError(h.logger, w, "product not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to delete product", slog.String("id", id), slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	username, _ := GetUsername(ctx)
	h.logger.InfoContext(ctx, "product deleted", slog.String("id", id), slog.String("by", username))

	w.WriteHeader(http.StatusNoContent)
}
