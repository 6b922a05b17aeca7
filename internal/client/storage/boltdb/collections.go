package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/shopkeeper/internal/client/storage"
	"github.com/iudanet/shopkeeper/internal/models"
)

// GetCollection returns the records stored in the collection slot
func (s *Storage) GetCollection(ctx context.Context, name string) ([]models.Record, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	col, err := lookup(name)
	if err != nil {
		return nil, err
	}

	records := []models.Record{}

	err = s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketCollections)
		if bucket == nil {
			return fmt.Errorf("collections bucket not found")
		}

		data := bucket.Get([]byte(name))
		if data == nil {
			return nil
		}

		decoded, err := decodeSlot(col, data)
		if err != nil {
			return err
		}
		records = decoded

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("transaction failed: %w", err)
	}

	return records, nil
}

// PutCollection replaces the collection slot
func (s *Storage) PutCollection(ctx context.Context, name string, records []models.Record) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	col, err := lookup(name)
	if err != nil {
		return err
	}

	data, err := encodeSlot(col, records)
	if err != nil {
		return err
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketCollections)
		if bucket == nil {
			return fmt.Errorf("collections bucket not found")
		}

		if s.quotaBytes > 0 {
			// размер всех слотов после записи
			var total int64
			err := bucket.ForEach(func(k, v []byte) error {
				if string(k) != name {
					total += int64(len(v))
				}
				return nil
			})
			if err != nil {
				return err
			}
			if total+int64(len(data)) > s.quotaBytes {
				return storage.ErrQuotaExceeded
			}
		}

		if err := bucket.Put([]byte(name), data); err != nil {
			return fmt.Errorf("failed to save collection %q: %w", name, err)
		}

		return nil
	})

	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

func lookup(name string) (models.Collection, error) {
	col, err := models.Lookup(name)
	if err != nil {
		return models.Collection{}, fmt.Errorf("%w: %q", storage.ErrUnknownCollection, name)
	}
	return col, nil
}

func encodeSlot(col models.Collection, records []models.Record) ([]byte, error) {
	return models.EncodeSnapshot(col, records)
}

func decodeSlot(col models.Collection, data []byte) ([]models.Record, error) {
	return models.DecodeSnapshot(col, data)
}
