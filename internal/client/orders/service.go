// Package orders turns carts into orders and drives their status transitions.
package orders

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iudanet/shopkeeper/internal/bus"
	"github.com/iudanet/shopkeeper/internal/client/storage"
	shopsync "github.com/iudanet/shopkeeper/internal/client/sync"
	"github.com/iudanet/shopkeeper/internal/models"
	"github.com/iudanet/shopkeeper/internal/validation"
)

// Draft is the checkout form.
type Draft struct {
	ShippingCost  decimal.Decimal    `json:"shippingCost" validate:"gte=0"`
	Customer      models.Customer    `json:"customer"`
	PaymentMethod string             `json:"paymentMethod,omitempty"`
	Notes         string             `json:"notes,omitempty"`
	Items         []models.OrderItem `json:"items" validate:"required,min=1,dive"`
}

// CommitResult is the created order and the problems met while propagating it.
type CommitResult struct {
	Order    *models.Order `json:"order"`
	Warnings []Warning     `json:"warnings,omitempty"`
}

// Service is the order commit pipeline.
type Service struct {
	engine    *shopsync.Engine
	outbox    storage.OutboxStorage
	meta      storage.MetadataStorage
	notifier  Notifier
	validator *validation.Validator
	logger    *slog.Logger
	now       func() time.Time
	notifyWG  sync.WaitGroup
}

// Option configures Service
type Option func(*Service)

// WithNow replaces the wall clock used for order ids and dates
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates the order pipeline. meta and notifier may be nil.
func NewService(engine *shopsync.Engine, outbox storage.OutboxStorage, meta storage.MetadataStorage, notifier Notifier, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		engine:    engine,
		outbox:    outbox,
		meta:      meta,
		notifier:  notifier,
		validator: validation.New(),
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder validates the draft, stores the order, deducts stock, clears the cart
// and then pushes orders and products to the shared stores, waiting for each push.
//
// Local changes are never rolled back. If any push fails the result is returned
// together with a *sync.PartialSyncError.
func (s *Service) CreateOrder(ctx context.Context, draft Draft) (*CommitResult, error) {
	if err := s.validate(draft); err != nil {
		return nil, err
	}

	products, err := s.engine.Snapshot(ctx, models.CollectionProducts)
	if err != nil {
		return nil, err
	}
	order := s.buildOrder(draft, productIndex(products))

	rec, err := models.NewRecord(order)
	if err != nil {
		return nil, err
	}
	if _, err := s.engine.Mutate(ctx, models.CollectionOrders, func(b *shopsync.Batch) error {
		order.LastUpdated = b.Put(rec).LastUpdated
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to store order: %w", err)
	}

	mutated, err := s.deductStock(ctx, order.Items)
	if err != nil {
		return nil, fmt.Errorf("order %s stored, failed to deduct stock: %w", order.ID, err)
	}

	cartsChanged, err := s.clearCart(ctx)
	if err != nil {
		return nil, fmt.Errorf("order %s stored, failed to clear cart: %w", order.ID, err)
	}

	s.logger.Info("Order stored locally",
		"order_id", order.ID,
		"items", len(order.Items),
		"total", order.Total.String(),
		"products_deducted", len(mutated),
	)

	result := &CommitResult{Order: order}

	partial := s.fanOut(ctx, mutated, cartsChanged)
	if partial != nil {
		s.engine.ReportFailures(ctx, partial)
		result.Warnings = append(result.Warnings, Warning{
			Kind:    WarningSync,
			OrderID: order.ID,
			Message: "order saved locally but cloud sync failed, verify stock manually",
			Err:     partial,
		})
	}

	s.notify(order)

	if partial != nil {
		return result, partial
	}
	return result, nil
}

// Wait blocks until started notifications have finished
func (s *Service) Wait() {
	s.notifyWG.Wait()
}

func (s *Service) validate(draft Draft) error {
	fields, err := s.validator.Struct(draft)
	if err != nil {
		return err
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func (s *Service) buildOrder(draft Draft, catalog map[string]*models.Product) *models.Order {
	now := s.now()

	items := make([]models.OrderItem, len(draft.Items))
	copy(items, draft.Items)

	subtotal := decimal.Zero
	weight := 0.0
	for i := range items {
		it := &items[i]
		// вес берется из каталога, товар не найден: 0.5
		it.Weight = catalog[it.ProductID].ItemWeight()
		if it.Name == "" && catalog[it.ProductID] != nil {
			it.Name = catalog[it.ProductID].Name
		}
		weight += it.Weight * float64(it.Quantity)
		subtotal = subtotal.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	return &models.Order{
		ID:            fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), uuid.NewString()[:8]),
		Date:          now.UTC(),
		Status:        models.StatusPending,
		Customer:      draft.Customer,
		Items:         items,
		Subtotal:      subtotal,
		ShippingCost:  draft.ShippingCost,
		Total:         subtotal.Add(draft.ShippingCost),
		PaymentMethod: draft.PaymentMethod,
		Notes:         draft.Notes,
		TotalWeight:   max(models.MinOrderWeight, weight),
	}
}

// deductStock decrements variant and aggregate quantities and returns the changed products
func (s *Service) deductStock(ctx context.Context, items []models.OrderItem) ([]models.Record, error) {
	res, err := s.engine.Mutate(ctx, models.CollectionProducts, func(b *shopsync.Batch) error {
		for _, it := range items {
			rec, ok := b.Get(it.ProductID)
			if !ok {
				s.logger.Warn("Ordered product is not in the local catalog", "product_id", it.ProductID)
				continue
			}

			var p models.Product
			if err := rec.Decode(&p); err != nil {
				return err
			}
			if !p.Deduct(it.Quantity, it.Size, it.Color) {
				continue
			}

			updated, err := models.NewRecord(p)
			if err != nil {
				return err
			}
			b.Put(updated)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return res.Changed, nil
}

// clearCart empties the local cart and drops the abandoned cart of the current session.
// Reports whether abandoned_carts changed.
func (s *Service) clearCart(ctx context.Context) (bool, error) {
	if _, err := s.engine.Mutate(ctx, models.CollectionCart, func(b *shopsync.Batch) error {
		for _, rec := range append([]models.Record(nil), b.Records()...) {
			b.Delete(rec.ID)
		}
		return nil
	}); err != nil {
		return false, err
	}

	if s.meta == nil {
		return false, nil
	}

	session, err := s.meta.GetCartSession(ctx)
	if err != nil {
		return false, err
	}
	if session == "" {
		return false, nil
	}

	res, err := s.engine.Mutate(ctx, models.CollectionAbandonedCarts, func(b *shopsync.Batch) error {
		for _, rec := range append([]models.Record(nil), b.Records()...) {
			if sessionOf(rec) == session {
				b.Delete(rec.ID)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	if err := s.meta.DeleteCartSession(ctx); err != nil {
		return false, err
	}

	return len(res.Deleted) > 0, nil
}

// fanOut pushes orders, products and (if changed) abandoned carts to the backup store,
// then each changed product to the remote catalog one by one.
func (s *Service) fanOut(ctx context.Context, products []models.Record, cartsChanged bool) *shopsync.PartialSyncError {
	partial := &shopsync.PartialSyncError{}

	push := func(name string) {
		if err := s.engine.PushCollection(ctx, name); err != nil {
			partial.Failures = append(partial.Failures, shopsync.SyncFailure{
				Collection: name, Store: shopsync.StoreBackup, Err: err,
			})
			return
		}
		partial.Succeeded++
	}

	push(models.CollectionOrders)
	if len(products) > 0 {
		push(models.CollectionProducts)
	}
	if cartsChanged {
		push(models.CollectionAbandonedCarts)
	}

	if s.engine.RemoteEnabled() {
		for _, rec := range products {
			if err := s.engine.PushRemote(ctx, models.CollectionProducts, rec); err != nil {
				partial.Failures = append(partial.Failures, shopsync.SyncFailure{
					Collection: models.CollectionProducts, RecordID: rec.ID, Store: shopsync.StoreRemote, Err: err,
				})
				continue
			}
			partial.Succeeded++
		}
	}

	if len(partial.Failures) == 0 {
		return nil
	}
	return partial
}

func (s *Service) notify(order *models.Order) {
	if s.notifier == nil {
		return
	}

	snapshot := *order
	s.notifyWG.Add(1)
	go func() {
		defer s.notifyWG.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.notifier.NotifyOrderCreated(ctx, &snapshot); err != nil {
			s.logger.Warn("Order notification failed", "order_id", snapshot.ID, "error", err)
		}
	}()
}

func (s *Service) publishJob(ctx context.Context, job *models.CourierJob) {
	s.engine.Bus().Publish(ctx, bus.Event{
		Topic:      bus.CourierBookingRequested,
		Collection: models.CollectionOrders,
		Source:     bus.SourceLocal,
		Payload:    *job,
	})
}
