package orders

import (
	"context"
	"errors"
	"fmt"

	shopsync "github.com/iudanet/shopkeeper/internal/client/sync"
	"github.com/iudanet/shopkeeper/internal/models"
)

// TransitionResult is the order after a status change and the courier job it queued.
type TransitionResult struct {
	Order   *models.Order
	Job     *models.CourierJob // nil when no courier side effect is needed
	Changed bool
}

// TransitionStatus moves the order through the state machine, persists it and
// pushes orders to the backup store. Courier booking and cancellation are not
// done here: a job is queued in the outbox for CourierDispatcher.
//
// A backup failure returns the result together with a *sync.PartialSyncError;
// the new status stays applied locally.
func (s *Service) TransitionStatus(ctx context.Context, orderID string, next models.OrderStatus) (*TransitionResult, error) {
	var (
		order   *models.Order
		changed bool
	)

	_, err := s.engine.Mutate(ctx, models.CollectionOrders, func(b *shopsync.Batch) error {
		var err error
		if order, err = findOrder(b.Records(), orderID); err != nil {
			return err
		}
		if order.Status == next {
			return nil
		}
		if !order.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, next)
		}

		order.Status = next
		rec, err := models.NewRecord(order)
		if err != nil {
			return err
		}
		order.LastUpdated = b.Put(rec).LastUpdated
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &TransitionResult{Order: order, Changed: changed}
	if !changed {
		return result, nil
	}

	s.logger.Info("Order status changed", "order_id", order.ID, "status", order.Status)

	job, err := s.courierJobFor(ctx, order)
	if err != nil {
		return result, fmt.Errorf("status changed, failed to queue courier job: %w", err)
	}
	result.Job = job

	if err := s.engine.PushCollection(ctx, models.CollectionOrders); err != nil {
		partial := &shopsync.PartialSyncError{Failures: []shopsync.SyncFailure{{
			Collection: models.CollectionOrders, RecordID: order.ID, Store: shopsync.StoreBackup, Err: err,
		}}}
		s.engine.ReportFailures(ctx, partial)
		return result, partial
	}

	return result, nil
}

// courierJobFor queues the courier side effect of the order's new status, if any
func (s *Service) courierJobFor(ctx context.Context, order *models.Order) (*models.CourierJob, error) {
	switch {
	case order.Status == models.StatusConfirmed && (!order.HasBooking() || s.cancelQueued(ctx, order)):
		return s.enqueue(ctx, order.ID, models.CourierJobBook, "")
	case (order.Status == models.StatusPending || order.Status == models.StatusCancelled) && order.HasBooking():
		// бронирование, ожидающее в очереди, больше не нужно
		if err := s.outbox.DeleteJob(ctx, jobID(order.ID, models.CourierJobBook)); err != nil {
			return nil, err
		}
		return s.enqueue(ctx, order.ID, models.CourierJobCancel, order.CourierDeliveryID)
	case order.Status == models.StatusPending || order.Status == models.StatusCancelled:
		return nil, s.outbox.DeleteJob(ctx, jobID(order.ID, models.CourierJobBook))
	}
	return nil, nil
}

// cancelQueued reports whether the order's current booking is already waiting for cancellation
func (s *Service) cancelQueued(ctx context.Context, order *models.Order) bool {
	jobs, err := s.outbox.ListJobs(ctx)
	if err != nil {
		return false
	}
	for _, j := range jobs {
		if j.OrderID == order.ID && j.Kind == models.CourierJobCancel && j.DeliveryID == order.CourierDeliveryID {
			return true
		}
	}
	return false
}

func jobID(orderID string, kind models.CourierJobKind) string {
	return orderID + ":" + string(kind)
}

func (s *Service) enqueue(ctx context.Context, orderID string, kind models.CourierJobKind, deliveryID string) (*models.CourierJob, error) {
	now := s.now().UnixMilli()
	job := &models.CourierJob{
		ID:            jobID(orderID, kind),
		OrderID:       orderID,
		Kind:          kind,
		DeliveryID:    deliveryID,
		CreatedAt:     now,
		NextAttemptAt: now,
	}
	if err := s.outbox.EnqueueJob(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("Courier job queued", "order_id", orderID, "kind", kind, "delivery_id", deliveryID)
	s.publishJob(ctx, job)

	return job, nil
}

// DeleteOrder removes the order everywhere. A courier booking is cancelled
// through the outbox; a queued booking request is dropped.
// Deleting an unknown order is not an error.
func (s *Service) DeleteOrder(ctx context.Context, orderID string) error {
	records, err := s.engine.Snapshot(ctx, models.CollectionOrders)
	if err != nil {
		return err
	}

	order, err := findOrder(records, orderID)
	switch {
	case errors.Is(err, ErrOrderNotFound):
	case err != nil:
		return err
	case order.HasBooking():
		if _, err := s.enqueue(ctx, orderID, models.CourierJobCancel, order.CourierDeliveryID); err != nil {
			return fmt.Errorf("failed to queue courier cancellation: %w", err)
		}
	}

	if err := s.outbox.DeleteJob(ctx, jobID(orderID, models.CourierJobBook)); err != nil {
		return err
	}

	return s.engine.DeleteRecord(ctx, models.CollectionOrders, orderID)
}

// MarkRead flags the order as seen by the operator and pushes orders to the backup store.
func (s *Service) MarkRead(ctx context.Context, orderID string) error {
	res, err := s.engine.Mutate(ctx, models.CollectionOrders, func(b *shopsync.Batch) error {
		order, err := findOrder(b.Records(), orderID)
		if err != nil {
			return err
		}
		if order.IsRead {
			return nil
		}

		order.IsRead = true
		rec, err := models.NewRecord(order)
		if err != nil {
			return err
		}
		b.Put(rec)
		return nil
	})
	if err != nil {
		return err
	}
	if len(res.Changed) == 0 {
		return nil
	}

	if err := s.engine.PushCollection(ctx, models.CollectionOrders); err != nil {
		partial := &shopsync.PartialSyncError{Failures: []shopsync.SyncFailure{{
			Collection: models.CollectionOrders, RecordID: orderID, Store: shopsync.StoreBackup, Err: err,
		}}}
		s.engine.ReportFailures(ctx, partial)
		return partial
	}
	return nil
}
