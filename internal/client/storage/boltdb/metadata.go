package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"
)

const (
	keyLastSyncTimestamp = "last_sync_timestamp"
	keyCartSession       = "cart_session_id"
)

// SaveLastSyncTimestamp saves the timestamp of the last successful catalog read
func (s *Storage) SaveLastSyncTimestamp(ctx context.Context, timestamp int64) error {
	// Конвертируем int64 в bytes
	timestampBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(timestampBytes, uint64(timestamp))

	return s.putMetadata(keyLastSyncTimestamp, timestampBytes)
}

// GetLastSyncTimestamp retrieves the timestamp of the last successful catalog read
// Returns 0 if no sync has been performed yet
func (s *Storage) GetLastSyncTimestamp(ctx context.Context) (int64, error) {
	timestampBytes, err := s.getMetadata(keyLastSyncTimestamp)
	if err != nil {
		return 0, fmt.Errorf("failed to get last sync timestamp: %w", err)
	}
	if len(timestampBytes) != 8 {
		// первая синхронизация
		return 0, nil
	}

	return int64(binary.BigEndian.Uint64(timestampBytes)), nil
}

// SaveCartSession stores the session id of the current cart
func (s *Storage) SaveCartSession(ctx context.Context, sessionID string) error {
	return s.putMetadata(keyCartSession, []byte(sessionID))
}

// GetCartSession returns the stored cart session id or ""
func (s *Storage) GetCartSession(ctx context.Context) (string, error) {
	data, err := s.getMetadata(keyCartSession)
	if err != nil {
		return "", fmt.Errorf("failed to get cart session: %w", err)
	}
	return string(data), nil
}

// DeleteCartSession removes the cart session id
func (s *Storage) DeleteCartSession(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("failed to delete cart session: storage is closed")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}
		return bucket.Delete([]byte(keyCartSession))
	})
}

func (s *Storage) putMetadata(key string, value []byte) error {
	if s.db == nil {
		return fmt.Errorf("failed to save %s: storage is closed", key)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		if err := bucket.Put([]byte(key), value); err != nil {
			return fmt.Errorf("failed to save %s: %w", key, err)
		}

		return nil
	})
}

func (s *Storage) getMetadata(key string) ([]byte, error) {
	if s.db == nil {
		return nil, fmt.Errorf("storage is closed")
	}

	var value []byte

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		// значение валидно только внутри транзакции, копируем
		if v := bucket.Get([]byte(key)); v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})

	return value, err
}
