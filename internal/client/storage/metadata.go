package storage

import "context"

// MetadataStorage defines interface for storing client metadata
type MetadataStorage interface {
	// SaveLastSyncTimestamp saves the timestamp of the last successful catalog read
	SaveLastSyncTimestamp(ctx context.Context, timestamp int64) error

	// GetLastSyncTimestamp retrieves the timestamp of the last successful catalog read
	// Returns 0 if no sync has been performed yet
	GetLastSyncTimestamp(ctx context.Context) (int64, error)

	// SaveCartSession stores the storefront session id of the current cart
	SaveCartSession(ctx context.Context, sessionID string) error

	// GetCartSession returns the stored session id or "" if there is none
	GetCartSession(ctx context.Context) (string, error)

	// DeleteCartSession forgets the session id. Missing session is not an error.
	DeleteCartSession(ctx context.Context) error
}
