package storage

import (
	"context"

	"github.com/iudanet/shopkeeper/internal/models"
)

// OutboxStorage is the durable queue of courier jobs.
type OutboxStorage interface {
	// EnqueueJob stores a new job or replaces a job with the same ID
	EnqueueJob(ctx context.Context, job *models.CourierJob) error

	// DueJobs returns jobs with NextAttemptAt <= now, oldest first
	DueJobs(ctx context.Context, now int64) ([]*models.CourierJob, error)

	// ListJobs returns every queued job, oldest first
	ListJobs(ctx context.Context) ([]*models.CourierJob, error)

	// UpdateJob overwrites an existing job
	// Returns ErrJobNotFound if the job is absent
	UpdateJob(ctx context.Context, job *models.CourierJob) error

	// DeleteJob removes a job. Missing job is not an error.
	DeleteJob(ctx context.Context, id string) error
}
