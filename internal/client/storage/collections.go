package storage

import (
	"context"

	"github.com/iudanet/shopkeeper/internal/models"
)

// LocalCache is the synchronous per-device store: one named slot per collection.
// Every call is atomic; callers do read-full / mutate / write-full.
type LocalCache interface {
	// GetCollection returns the records of the slot.
	// A missing slot is returned as an empty (non-nil) slice.
	GetCollection(ctx context.Context, name string) ([]models.Record, error)

	// PutCollection replaces the whole slot.
	// Returns ErrQuotaExceeded if the write would exceed the configured size.
	PutCollection(ctx context.Context, name string, records []models.Record) error
}
