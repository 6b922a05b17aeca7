package boltdb

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"go.etcd.io/bbolt"

	"github.com/iudanet/shopkeeper/internal/client/storage"
	"github.com/iudanet/shopkeeper/internal/models"
)

// EnqueueJob stores a courier job
func (s *Storage) EnqueueJob(ctx context.Context, job *models.CourierJob) error {
	return s.putJob(job, false)
}

// UpdateJob overwrites an existing courier job
func (s *Storage) UpdateJob(ctx context.Context, job *models.CourierJob) error {
	return s.putJob(job, true)
}

// DueJobs returns jobs whose next attempt is due
func (s *Storage) DueJobs(ctx context.Context, now int64) ([]*models.CourierJob, error) {
	jobs, err := s.ListJobs(ctx)
	if err != nil {
		return nil, err
	}

	due := jobs[:0]
	for _, job := range jobs {
		if job.NextAttemptAt <= now {
			due = append(due, job)
		}
	}

	return due, nil
}

// ListJobs returns all queued jobs ordered by creation time
func (s *Storage) ListJobs(ctx context.Context) ([]*models.CourierJob, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var jobs []*models.CourierJob

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketOutbox)
		if bucket == nil {
			return fmt.Errorf("outbox bucket not found")
		}

		return bucket.ForEach(func(k, v []byte) error {
			job := &models.CourierJob{}
			if err := json.Unmarshal(v, job); err != nil {
				return fmt.Errorf("failed to unmarshal job %s: %w", k, err)
			}
			jobs = append(jobs, job)
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("transaction failed: %w", err)
	}

	slices.SortStableFunc(jobs, func(a, b *models.CourierJob) int {
		return cmp.Compare(a.CreatedAt, b.CreatedAt)
	})

	return jobs, nil
}

// DeleteJob removes a job from the outbox
func (s *Storage) DeleteJob(ctx context.Context, id string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketOutbox)
		if bucket == nil {
			return fmt.Errorf("outbox bucket not found")
		}
		return bucket.Delete([]byte(id))
	})

	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

func (s *Storage) putJob(job *models.CourierJob, mustExist bool) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketOutbox)
		if bucket == nil {
			return fmt.Errorf("outbox bucket not found")
		}

		if mustExist && bucket.Get([]byte(job.ID)) == nil {
			return storage.ErrJobNotFound
		}

		if err := bucket.Put([]byte(job.ID), data); err != nil {
			return fmt.Errorf("failed to save job: %w", err)
		}

		return nil
	})

	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}
