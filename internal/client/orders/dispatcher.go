package orders

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/iudanet/shopkeeper/internal/bus"
	"github.com/iudanet/shopkeeper/internal/client/shipping"
	"github.com/iudanet/shopkeeper/internal/client/storage"
	shopsync "github.com/iudanet/shopkeeper/internal/client/sync"
	"github.com/iudanet/shopkeeper/internal/models"
)

// DispatcherConfig controls outbox polling and retries
type DispatcherConfig struct {
	PollInterval   time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxAttempts    int
}

// DefaultDispatcherConfig returns the default outbox settings
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		PollInterval:   30 * time.Second,
		InitialBackoff: 30 * time.Second,
		MaxBackoff:     30 * time.Minute,
		MaxAttempts:    5,
	}
}

// retryDelay returns InitialBackoff * 2^(attempt-1), capped at MaxBackoff
func (c DispatcherConfig) retryDelay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.InitialBackoff
	b.MaxInterval = c.MaxBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	delay := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		delay = b.NextBackOff()
	}
	return delay
}

// CourierDispatcher executes courier jobs queued by status transitions.
// Order status never depends on the outcome: failures become warnings and retries.
type CourierDispatcher struct {
	engine   *shopsync.Engine
	outbox   storage.OutboxStorage
	provider shipping.Provider
	logger   *slog.Logger
	now      func() time.Time
	cfg      DispatcherConfig
	mu       sync.Mutex // один проход по очереди за раз
}

// NewCourierDispatcher creates a dispatcher
func NewCourierDispatcher(engine *shopsync.Engine, outbox storage.OutboxStorage, provider shipping.Provider, cfg DispatcherConfig, logger *slog.Logger) *CourierDispatcher {
	return &CourierDispatcher{
		engine:   engine,
		outbox:   outbox,
		provider: provider,
		logger:   logger,
		now:      time.Now,
		cfg:      cfg,
	}
}

// Run processes due jobs on every tick and whenever a job is queued, until ctx is done.
func (d *CourierDispatcher) Run(ctx context.Context) error {
	wake := make(chan struct{}, 1)
	sub := d.engine.Bus().Subscribe(bus.CourierBookingRequested, func(context.Context, bus.Event) {
		select {
		case wake <- struct{}{}:
		default:
		}
	})
	defer sub.Unsubscribe()

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	d.logger.Info("Courier dispatcher started", "poll_interval", d.cfg.PollInterval)

	for {
		if _, err := d.ProcessPending(ctx); err != nil && ctx.Err() == nil {
			d.logger.Error("Failed to process courier jobs", "error", err)
		}

		select {
		case <-ctx.Done():
			d.logger.Info("Courier dispatcher stopped")
			return nil
		case <-ticker.C:
		case <-wake:
		}
	}
}

// ProcessPending runs every due job once and returns the warnings it produced.
// An error is returned only when the outbox itself cannot be read.
func (d *CourierDispatcher) ProcessPending(ctx context.Context) ([]Warning, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	jobs, err := d.outbox.DueJobs(ctx, d.now().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to read outbox: %w", err)
	}
	// отмена раньше бронирования: повторное подтверждение ждет освобождения старой доставки
	slices.SortStableFunc(jobs, func(a, b *models.CourierJob) int {
		return cmp.Compare(jobRank(a.Kind), jobRank(b.Kind))
	})

	var warnings []Warning
	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}

		var w []Warning
		switch job.Kind {
		case models.CourierJobBook:
			w = d.book(ctx, job)
		case models.CourierJobCancel:
			w = d.cancel(ctx, job)
		default:
			d.logger.Warn("Dropping courier job of unknown kind", "job_id", job.ID, "kind", job.Kind)
			w = d.drop(ctx, job)
		}
		warnings = append(warnings, w...)
	}

	for _, w := range warnings {
		d.logger.Warn("Courier warning", "kind", w.Kind, "order_id", w.OrderID, "message", w.Message, "error", w.Err)
	}

	return warnings, nil
}

func jobRank(kind models.CourierJobKind) int {
	if kind == models.CourierJobCancel {
		return 0
	}
	return 1
}

func (d *CourierDispatcher) book(ctx context.Context, job *models.CourierJob) []Warning {
	order, err := d.loadOrder(ctx, job.OrderID)
	if errors.Is(err, ErrOrderNotFound) {
		return d.drop(ctx, job)
	}
	if err != nil {
		return []Warning{{Kind: WarningCourierBook, OrderID: job.OrderID, Message: "failed to read order", Err: err}}
	}

	if order.Status != models.StatusConfirmed {
		d.logger.Info("Order no longer needs a booking", "order_id", order.ID, "status", order.Status)
		return d.drop(ctx, job)
	}
	if order.HasBooking() {
		// старое бронирование еще ждет отмены
		if d.pendingCancel(ctx, order.ID) {
			return d.postpone(ctx, job)
		}
		return d.drop(ctx, job)
	}

	delivery, err := d.provider.CreateDelivery(ctx, order)
	if err != nil {
		return d.fail(ctx, job, WarningCourierBook, "order is Confirmed without a courier booking", err)
	}

	var warnings []Warning
	stored, err := d.storeBooking(ctx, order.ID, delivery)
	switch {
	case err != nil:
		warnings = append(warnings, Warning{
			Kind: WarningCourierBook, OrderID: order.ID,
			Message: "delivery " + delivery.ID + " was booked but could not be saved to the order", Err: err,
		})
	case !stored:
		// статус поменялся пока ждали курьера
		if _, err := d.enqueueCancel(ctx, order.ID, delivery.ID); err != nil {
			warnings = append(warnings, Warning{
				Kind: WarningCourierCancel, OrderID: order.ID,
				Message: "unneeded delivery " + delivery.ID + " must be cancelled manually", Err: err,
			})
		}
	default:
		d.logger.Info("Courier delivery booked",
			"order_id", order.ID,
			"delivery_id", delivery.ID,
			"tracking_number", delivery.TrackingNumber,
		)
		warnings = append(warnings, d.pushOrders(ctx, order.ID)...)
		warnings = append(warnings, d.schedulePickup(ctx, order.ID, delivery.ID)...)
	}

	return append(warnings, d.drop(ctx, job)...)
}

// storeBooking writes the courier fields if the order is still Confirmed and unbooked
func (d *CourierDispatcher) storeBooking(ctx context.Context, orderID string, delivery *shipping.Delivery) (bool, error) {
	stored := false
	_, err := d.engine.Mutate(ctx, models.CollectionOrders, func(b *shopsync.Batch) error {
		order, err := findOrder(b.Records(), orderID)
		if err != nil {
			return err
		}
		if order.Status != models.StatusConfirmed || order.HasBooking() {
			return nil
		}

		order.CourierDeliveryID = delivery.ID
		order.TrackingNumber = delivery.TrackingNumber
		order.CourierCreatedAt = d.now().UnixMilli()

		rec, err := models.NewRecord(order)
		if err != nil {
			return err
		}
		b.Put(rec)
		stored = true
		return nil
	})
	return stored, err
}

func (d *CourierDispatcher) schedulePickup(ctx context.Context, orderID, deliveryID string) []Warning {
	res, err := d.provider.CreatePickup(ctx, []string{deliveryID})
	if err != nil {
		return []Warning{{Kind: WarningPickup, OrderID: orderID, Message: "pickup was not scheduled", Err: err}}
	}
	if res.AlreadyScheduled {
		d.logger.Info("Pickup already scheduled", "order_id", orderID)
	}
	return nil
}

func (d *CourierDispatcher) cancel(ctx context.Context, job *models.CourierJob) []Warning {
	if err := d.provider.CancelDelivery(ctx, job.DeliveryID); err != nil {
		return d.fail(ctx, job, WarningCourierCancel, "courier booking "+job.DeliveryID+" is still active", err)
	}

	var cleared bool
	_, err := d.engine.Mutate(ctx, models.CollectionOrders, func(b *shopsync.Batch) error {
		order, err := findOrder(b.Records(), job.OrderID)
		if errors.Is(err, ErrOrderNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if order.CourierDeliveryID != job.DeliveryID {
			return nil
		}

		order.ClearBooking()
		rec, err := models.NewRecord(order)
		if err != nil {
			return err
		}
		b.Put(rec)
		cleared = true
		return nil
	})

	d.logger.Info("Courier delivery cancelled", "order_id", job.OrderID, "delivery_id", job.DeliveryID)

	var warnings []Warning
	switch {
	case err != nil:
		warnings = append(warnings, Warning{
			Kind: WarningCourierCancel, OrderID: job.OrderID,
			Message: "delivery was cancelled but the order still shows it", Err: err,
		})
	case cleared:
		warnings = append(warnings, d.pushOrders(ctx, job.OrderID)...)
	}

	return append(warnings, d.drop(ctx, job)...)
}

// fail records a failed attempt: the job is retried later or, after MaxAttempts, dropped.
func (d *CourierDispatcher) fail(ctx context.Context, job *models.CourierJob, kind WarningKind, message string, cause error) []Warning {
	job.Attempts++
	job.LastError = cause.Error()

	warnings := []Warning{{Kind: kind, OrderID: job.OrderID, Message: message, Err: cause}}

	var ce *shipping.CourierError
	permanent := errors.As(cause, &ce) && !ce.Temporary()

	if permanent || job.Attempts >= d.cfg.MaxAttempts {
		warnings = append(warnings, Warning{
			Kind:    WarningManual,
			OrderID: job.OrderID,
			Message: fmt.Sprintf("courier %s gave up after %d attempts, manual follow-up required", job.Kind, job.Attempts),
			Err:     cause,
		})
		return append(warnings, d.drop(ctx, job)...)
	}

	job.NextAttemptAt = d.now().Add(d.cfg.retryDelay(job.Attempts)).UnixMilli()
	if err := d.outbox.UpdateJob(ctx, job); err != nil {
		warnings = append(warnings, Warning{Kind: kind, OrderID: job.OrderID, Message: "failed to reschedule courier job", Err: err})
	}
	return warnings
}

// postpone moves the job to the next retry slot without counting an attempt
func (d *CourierDispatcher) postpone(ctx context.Context, job *models.CourierJob) []Warning {
	job.NextAttemptAt = d.now().Add(d.cfg.InitialBackoff).UnixMilli()
	if err := d.outbox.UpdateJob(ctx, job); err != nil {
		return []Warning{{Kind: WarningCourierBook, OrderID: job.OrderID, Message: "failed to reschedule courier job", Err: err}}
	}
	return nil
}

func (d *CourierDispatcher) drop(ctx context.Context, job *models.CourierJob) []Warning {
	if err := d.outbox.DeleteJob(ctx, job.ID); err != nil {
		return []Warning{{Kind: WarningCourierBook, OrderID: job.OrderID, Message: "failed to remove courier job", Err: err}}
	}
	return nil
}

func (d *CourierDispatcher) pendingCancel(ctx context.Context, orderID string) bool {
	jobs, err := d.outbox.ListJobs(ctx)
	if err != nil {
		return false
	}
	for _, j := range jobs {
		if j.OrderID == orderID && j.Kind == models.CourierJobCancel {
			return true
		}
	}
	return false
}

func (d *CourierDispatcher) enqueueCancel(ctx context.Context, orderID, deliveryID string) (*models.CourierJob, error) {
	now := d.now().UnixMilli()
	job := &models.CourierJob{
		ID:            jobID(orderID, models.CourierJobCancel),
		OrderID:       orderID,
		Kind:          models.CourierJobCancel,
		DeliveryID:    deliveryID,
		CreatedAt:     now,
		NextAttemptAt: now,
	}
	return job, d.outbox.EnqueueJob(ctx, job)
}

func (d *CourierDispatcher) loadOrder(ctx context.Context, orderID string) (*models.Order, error) {
	records, err := d.engine.Snapshot(ctx, models.CollectionOrders)
	if err != nil {
		return nil, err
	}
	return findOrder(records, orderID)
}

func (d *CourierDispatcher) pushOrders(ctx context.Context, orderID string) []Warning {
	err := d.engine.PushCollection(ctx, models.CollectionOrders)
	if err == nil {
		return nil
	}

	d.engine.ReportFailures(ctx, &shopsync.PartialSyncError{Failures: []shopsync.SyncFailure{{
		Collection: models.CollectionOrders, RecordID: orderID, Store: shopsync.StoreBackup, Err: err,
	}}})
	return []Warning{{Kind: WarningSync, OrderID: orderID, Message: "courier fields saved locally only", Err: err}}
}
