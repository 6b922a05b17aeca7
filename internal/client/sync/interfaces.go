package sync

import (
	"context"
	"encoding/json"
	"io"

	"github.com/iudanet/shopkeeper/internal/models"
	"github.com/iudanet/shopkeeper/pkg/api"
)

//go:generate moq -out remote_mock.go . RemoteStore

// RemoteStore is the authoritative catalog over HTTP (see internal/client/api).
type RemoteStore interface {
	// ListProducts returns the whole catalog; a non-array answer is an error
	ListProducts(ctx context.Context) ([]models.Record, error)

	// SaveProduct upserts one record
	SaveProduct(ctx context.Context, record models.Record) (*api.SaveResponse, error)

	// DeleteProduct removes one record; a missing record is not an error
	DeleteProduct(ctx context.Context, id string) error
}

//go:generate moq -out backup_mock.go . BackupStore

// BackupStore is the push-replicated backup (see internal/client/backup).
type BackupStore interface {
	// Set replaces the collection snapshot and notifies subscribers
	Set(ctx context.Context, collection string, snapshot json.RawMessage) error

	// Subscribe delivers the current snapshot and every later push to onChange
	Subscribe(ctx context.Context, collection string, onChange func(json.RawMessage)) (io.Closer, error)
}
