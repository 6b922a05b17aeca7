package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"
)

var (
	// BoltDB bucket names
	bucketCollections = []byte("collections")
	bucketMetadata    = []byte("metadata")
	bucketOutbox      = []byte("outbox")
	bucketSessions    = []byte("sessions")

	allBuckets = [][]byte{bucketCollections, bucketMetadata, bucketOutbox, bucketSessions}
)

// Option configures Storage.
type Option func(*Storage)

// WithQuota limits the total size of all collection slots in bytes.
// Zero means unlimited.
func WithQuota(bytes int64) Option {
	return func(s *Storage) {
		s.quotaBytes = bytes
	}
}

// Storage represents BoltDB storage implementation for client
type Storage struct {
	db         *bbolt.DB
	quotaBytes int64
}

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string, opts ...Option) (*Storage, error) {
	// Открываем BoltDB
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	storage := &Storage{db: db}
	for _, opt := range opts {
		opt(storage)
	}

	// Инициализируем buckets
	if err := storage.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return storage, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// initBuckets создает необходимые buckets если они не существуют
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}
