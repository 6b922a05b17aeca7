package shipping

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/iudanet/shopkeeper/internal/models"
)

// RetryPolicy bounds in-call retries of temporary courier failures
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy is three attempts starting at 500ms
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

type retryingProvider struct {
	next   Provider
	policy RetryPolicy
}

// Retrying wraps a provider so temporary failures are retried with exponential backoff.
// Permanent failures (4xx, missing configuration) are returned at once.
func Retrying(next Provider, policy RetryPolicy) Provider {
	if policy.MaxAttempts <= 1 {
		return next
	}
	return &retryingProvider{next: next, policy: policy}
}

func (r *retryingProvider) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if r.policy.InitialInterval > 0 {
		b.InitialInterval = r.policy.InitialInterval
	}
	if r.policy.MaxInterval > 0 {
		b.MaxInterval = r.policy.MaxInterval
	}
	b.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.policy.MaxAttempts-1)), ctx)
}

func (r *retryingProvider) CreateDelivery(ctx context.Context, order *models.Order) (*Delivery, error) {
	return backoff.RetryWithData(func() (*Delivery, error) {
		d, err := r.next.CreateDelivery(ctx, order)
		return d, classify(err)
	}, r.backOff(ctx))
}

func (r *retryingProvider) CancelDelivery(ctx context.Context, deliveryID string) error {
	return backoff.Retry(func() error {
		return classify(r.next.CancelDelivery(ctx, deliveryID))
	}, r.backOff(ctx))
}

func (r *retryingProvider) CreatePickup(ctx context.Context, deliveryIDs []string) (*PickupResult, error) {
	return backoff.RetryWithData(func() (*PickupResult, error) {
		res, err := r.next.CreatePickup(ctx, deliveryIDs)
		return res, classify(err)
	}, r.backOff(ctx))
}

// classify marks errors that must not be retried
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ce *CourierError
	if errors.As(err, &ce) && ce.Temporary() {
		return err
	}
	return backoff.Permanent(err)
}
