package storage

import (
	"context"

	"github.com/iudanet/shopkeeper/internal/models"
)

// ProductStorage defines interface for catalog persistence
type ProductStorage interface {
	// ListProducts returns every catalog record ordered by sortOrder, then id
	// Returns empty slice if catalog is empty
	ListProducts(ctx context.Context) ([]models.Record, error)

	// GetProduct retrieves a single record by ID
	// Returns ErrProductNotFound if record doesn't exist
	GetProduct(ctx context.Context, id string) (*models.Record, error)

	// SaveProduct creates or updates a record using last-writer-wins on lastUpdated.
	// Returns the stored version and false if the existing version is newer.
	SaveProduct(ctx context.Context, record models.Record) (models.Record, bool, error)

	// DeleteProduct removes record by ID
	// Returns ErrProductNotFound if record doesn't exist
	DeleteProduct(ctx context.Context, id string) error

	// CountProducts returns number of stored records
	CountProducts(ctx context.Context) (int, error)
}
