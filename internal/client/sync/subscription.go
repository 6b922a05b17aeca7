package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/iudanet/shopkeeper/internal/bus"
	"github.com/iudanet/shopkeeper/internal/models"
)

// SubscriptionManager keeps one backup subscription per shared collection and
// turns pushes into local updates and change events.
type SubscriptionManager struct {
	engine  *Engine
	backup  BackupStore
	logger  *slog.Logger
	handles map[string]io.Closer
	mu      sync.Mutex
}

// NewSubscriptionManager creates a manager bound to the engine's local cache
func NewSubscriptionManager(engine *Engine, backup BackupStore, logger *slog.Logger) *SubscriptionManager {
	return &SubscriptionManager{
		engine:  engine,
		backup:  backup,
		logger:  logger,
		handles: make(map[string]io.Closer),
	}
}

// Start subscribes every shared collection. Collections that fail to subscribe
// are reported in the returned error; the others stay subscribed.
func (m *SubscriptionManager) Start(ctx context.Context) error {
	var errs []error

	for _, col := range models.SharedCollections() {
		if err := m.Subscribe(ctx, col.Name); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Subscribe attaches to one collection. Subscribing twice is a no-op.
func (m *SubscriptionManager) Subscribe(ctx context.Context, name string) error {
	col, err := models.Lookup(name)
	if err != nil {
		return err
	}
	if col.LocalOnly {
		return fmt.Errorf("collection %q is local-only", name)
	}

	m.mu.Lock()
	_, exists := m.handles[name]
	m.mu.Unlock()
	if exists {
		return nil
	}

	handle, err := m.backup.Subscribe(ctx, name, func(payload json.RawMessage) {
		m.HandlePush(context.WithoutCancel(ctx), name, payload)
	})
	if err != nil {
		return &RemoteUnavailableError{Store: StoreBackup, Collection: name, Err: err}
	}

	m.mu.Lock()
	m.handles[name] = handle
	m.mu.Unlock()

	return nil
}

// Stop closes every subscription
func (m *SubscriptionManager) Stop() error {
	m.mu.Lock()
	handles := m.handles
	m.handles = make(map[string]io.Closer)
	m.mu.Unlock()

	var errs []error
	for name, h := range handles {
		if err := h.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s subscription: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

// Active returns the number of live subscriptions
func (m *SubscriptionManager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handles)
}

// HandlePush applies one backup push to the local cache:
//   - empty push, catalog collection, local not empty: local is kept and re-published to backup
//   - any other empty push: local is cleared
//   - non-empty push, catalog collection: advisory only
//   - non-empty push, backup-authoritative collection: replaces local
//
// Undecodable payloads are logged and leave local untouched.
func (m *SubscriptionManager) HandlePush(ctx context.Context, name string, payload json.RawMessage) {
	col, err := models.Lookup(name)
	if err != nil {
		m.logger.Error("Push for unknown collection", "collection", name)
		return
	}

	records, err := models.DecodeSnapshot(col, payload)
	if err != nil {
		m.logger.Error("Failed to decode backup push", "collection", name, "error", err)
		return
	}

	if len(records) == 0 {
		m.handleEmpty(ctx, col)
		return
	}

	if col.IsCatalog() {
		m.logger.Debug("Advisory catalog push ignored", "collection", name, "records", len(records))
		return
	}

	m.apply(ctx, col, records)
}

func (m *SubscriptionManager) apply(ctx context.Context, col models.Collection, records []models.Record) {
	applied, err := m.engine.replaceFromBackup(ctx, col, records)
	if err != nil {
		m.logger.Error("Failed to apply backup push", "collection", col.Name, "error", err)
		return
	}

	if !applied {
		// локальные изменения еще не дошли до backup: отправляем их, они перекроют этот push
		m.logger.Debug("Backup push skipped, local changes pending", "collection", col.Name)
		if err := m.engine.PushCollection(ctx, col.Name); err != nil {
			m.engine.reportFailure(ctx, SyncFailure{Collection: col.Name, Store: StoreBackup, Err: err})
		}
		return
	}

	m.logger.Debug("Applied backup push", "collection", col.Name, "records", len(records))
	m.engine.publish(ctx, col, bus.SourceBackup, nil)
}

func (m *SubscriptionManager) handleEmpty(ctx context.Context, col models.Collection) {
	local, err := m.engine.Snapshot(ctx, col.Name)
	if err != nil {
		m.logger.Error("Failed to read local collection", "collection", col.Name, "error", err)
		return
	}

	if col.IsCatalog() && len(local) > 0 {
		// пустой push считаем устаревшим: заново засеваем backup из local
		m.logger.Info("Empty catalog push, re-seeding backup from local", "collection", col.Name, "records", len(local))
		if err := m.engine.PushCollection(ctx, col.Name); err != nil {
			m.engine.reportFailure(ctx, SyncFailure{Collection: col.Name, Store: StoreBackup, Err: err})
		}
		return
	}

	m.apply(ctx, col, []models.Record{})
}
