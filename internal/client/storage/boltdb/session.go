package boltdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.etcd.io/bbolt"

	"github.com/iudanet/shopkeeper/internal/client/storage"
)

// sessionKey нормализует URL: "http://host/" и "http://host" это один каталог
func sessionKey(catalogURL string) ([]byte, error) {
	key := strings.TrimRight(strings.TrimSpace(catalogURL), "/")
	if key == "" {
		return nil, errors.New("catalog url is empty")
	}
	return []byte(key), nil
}

// SaveSession stores the session under its catalog URL
func (s *Storage) SaveSession(ctx context.Context, session *storage.Session) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	key, err := sessionKey(session.CatalogURL)
	if err != nil {
		return err
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSessions)
		if bucket == nil {
			return fmt.Errorf("sessions bucket not found")
		}
		if err := bucket.Put(key, data); err != nil {
			return fmt.Errorf("failed to save session for %s: %w", key, err)
		}
		return nil
	})
}

// GetSession returns the session of catalogURL
func (s *Storage) GetSession(ctx context.Context, catalogURL string) (*storage.Session, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}
	key, err := sessionKey(catalogURL)
	if err != nil {
		return nil, err
	}

	var session *storage.Session
	err = s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSessions)
		if bucket == nil {
			return fmt.Errorf("sessions bucket not found")
		}

		data := bucket.Get(key)
		if data == nil {
			return storage.ErrSessionNotFound
		}

		session = &storage.Session{}
		if err := json.Unmarshal(data, session); err != nil {
			return fmt.Errorf("failed to unmarshal session for %s: %w", key, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}

// DeleteSession removes the session of catalogURL
func (s *Storage) DeleteSession(ctx context.Context, catalogURL string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}
	key, err := sessionKey(catalogURL)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSessions)
		if bucket == nil {
			return fmt.Errorf("sessions bucket not found")
		}
		// bbolt не возвращает ошибку для отсутствующего ключа
		return bucket.Delete(key)
	})
}

// ListSessions returns every stored session; bbolt iterates keys in byte order
func (s *Storage) ListSessions(ctx context.Context) ([]*storage.Session, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var sessions []*storage.Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSessions)
		if bucket == nil {
			return fmt.Errorf("sessions bucket not found")
		}
		return bucket.ForEach(func(k, v []byte) error {
			session := &storage.Session{}
			if err := json.Unmarshal(v, session); err != nil {
				return fmt.Errorf("failed to unmarshal session for %s: %w", k, err)
			}
			sessions = append(sessions, session)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return sessions, nil
}
