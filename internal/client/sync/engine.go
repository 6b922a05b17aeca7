// Package sync is the single authority for shared-collection I/O: it merges the
// remote catalog into the local cache on read and fans local writes out to the
// backup and remote stores.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/shopkeeper/internal/bus"
	"github.com/iudanet/shopkeeper/internal/client/storage"
	"github.com/iudanet/shopkeeper/internal/crdt"
	"github.com/iudanet/shopkeeper/internal/models"
)

// Config holds engine timeouts
type Config struct {
	RemoteTimeout  time.Duration // один запрос к remote store
	FanoutTimeout  time.Duration // вся фоновая рассылка одной записи
	GraceWindow    time.Duration
	RemoteParallel int // одновременных SaveProduct в SyncCatalog
}

// DefaultConfig returns the default engine timeouts
func DefaultConfig() Config {
	return Config{
		RemoteTimeout:  8 * time.Second,
		FanoutTimeout:  15 * time.Second,
		GraceWindow:    crdt.DefaultGraceWindow,
		RemoteParallel: 4,
	}
}

// Option configures Engine
type Option func(*Engine)

// WithConfig overrides timeouts
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithClock sets the write timestamp clock
func WithClock(clock *crdt.Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithMetrics sets prometheus counters
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithMetadata enables recording of the last successful catalog read
func WithMetadata(meta storage.MetadataStorage) Option {
	return func(e *Engine) {
		e.meta = meta
	}
}

type slot struct {
	mu        sync.Mutex // read-modify-write локального слота
	pushMu    sync.Mutex // порядок отправки snapshot в backup
	gen       uint64     // номер последнего локального изменения
	pushedGen uint64     // последнее изменение, подтвержденное backup
}

// unpushed reports local changes the backup has not acknowledged yet. Caller holds mu.
func (s *slot) unpushed() bool {
	return s.gen > s.pushedGen
}

// Engine orchestrates the local cache, the backup store and the remote catalog.
// backup and remote may be nil: the corresponding fan-out target is disabled.
type Engine struct {
	local   storage.LocalCache
	backup  BackupStore
	remote  RemoteStore
	meta    storage.MetadataStorage
	bus     *bus.Bus
	clock   *crdt.Clock
	metrics *Metrics
	logger  *slog.Logger
	slots   map[string]*slot
	cfg     Config
	fanout  sync.WaitGroup
	slotsMu sync.Mutex
}

// NewEngine creates a synchronization engine
func NewEngine(local storage.LocalCache, backup BackupStore, remote RemoteStore, eventBus *bus.Bus, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		local:  local,
		backup: backup,
		remote: remote,
		bus:    eventBus,
		logger: logger,
		cfg:    DefaultConfig(),
		slots:  make(map[string]*slot),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.clock == nil {
		e.clock = crdt.NewClock()
	}
	if e.metrics == nil {
		e.metrics = NewMetrics(nil)
	}
	if e.bus == nil {
		e.bus = bus.New(logger)
	}

	return e
}

// Bus returns the change notification bus the engine publishes to
func (e *Engine) Bus() *bus.Bus {
	return e.bus
}

// Clock returns the write timestamp clock
func (e *Engine) Clock() *crdt.Clock {
	return e.clock
}

// RemoteEnabled reports whether catalog writes are pushed to the remote store
func (e *Engine) RemoteEnabled() bool {
	return e.remote != nil
}

func (e *Engine) slot(name string) *slot {
	e.slotsMu.Lock()
	defer e.slotsMu.Unlock()

	s, ok := e.slots[name]
	if !ok {
		s = &slot{}
		e.slots[name] = s
	}
	return s
}

// Snapshot returns the local records of a collection without touching the network
func (e *Engine) Snapshot(ctx context.Context, name string) ([]models.Record, error) {
	if _, err := models.Lookup(name); err != nil {
		return nil, err
	}

	records, err := e.local.GetCollection(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read local %s: %w", name, err)
	}
	return records, nil
}

// ReadCollection returns the collection. Catalog collections are fetched from the
// remote store and merged into the local cache; if the remote store fails the
// unchanged local snapshot is returned without an error.
// Backup-authoritative collections are kept current by the subscription manager
// and are served from the local cache.
func (e *Engine) ReadCollection(ctx context.Context, name string) ([]models.Record, error) {
	col, err := models.Lookup(name)
	if err != nil {
		return nil, err
	}

	if !col.IsCatalog() || e.remote == nil {
		return e.Snapshot(ctx, name)
	}

	rctx, cancel := context.WithTimeout(ctx, e.cfg.RemoteTimeout)
	remote, err := e.remote.ListProducts(rctx)
	cancel()

	if err != nil {
		e.metrics.degradedReads.WithLabelValues(name).Inc()
		e.logger.Warn("Remote catalog unavailable, serving local snapshot",
			"collection", name,
			"error", &RemoteUnavailableError{Store: StoreRemote, Collection: name, Err: err},
		)
		return e.Snapshot(ctx, name)
	}

	merged, err := e.mergeRemote(ctx, col, remote)
	if err != nil {
		return nil, err
	}

	if e.meta != nil {
		if err := e.meta.SaveLastSyncTimestamp(ctx, e.clock.Now().UnixMilli()); err != nil {
			e.logger.Warn("Failed to save last sync timestamp", "error", err)
		}
	}

	e.publish(ctx, col, bus.SourceRemote, nil)

	return merged, nil
}

func (e *Engine) mergeRemote(ctx context.Context, col models.Collection, remote []models.Record) ([]models.Record, error) {
	s := e.slot(col.Name)
	s.mu.Lock()
	defer s.mu.Unlock()

	local, err := e.local.GetCollection(ctx, col.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to read local %s: %w", col.Name, err)
	}

	merged, decisions := crdt.MergeCollection(local, remote, e.clock.Now(), e.cfg.GraceWindow)

	conflicts := 0
	for _, d := range decisions {
		e.metrics.mergeDecisions.WithLabelValues(string(d.Chosen), string(d.Reason)).Inc()
		if d.Reason == crdt.ReasonGraceWindow {
			conflicts++
		}
	}
	for _, r := range remote {
		e.clock.Observe(r.LastUpdated)
	}

	if err := e.local.PutCollection(ctx, col.Name, merged); err != nil {
		return nil, fmt.Errorf("failed to persist merged %s: %w", col.Name, err)
	}

	e.logger.Debug("Merged remote catalog",
		"collection", col.Name,
		"local", len(local),
		"remote", len(remote),
		"merged", len(merged),
		"grace_window_kept", conflicts,
	)

	return cloneRecords(merged), nil
}

// Mutate runs fn on the local slot under the collection lock and persists the result
// if fn changed anything. Nothing is fanned out; callers decide how to propagate.
// A change event with SourceLocal is emitted after the lock is released.
func (e *Engine) Mutate(ctx context.Context, name string, fn func(b *Batch) error) (*MutateResult, error) {
	col, err := models.Lookup(name)
	if err != nil {
		return nil, err
	}

	res, err := e.mutate(ctx, col, fn)
	if err != nil {
		return nil, err
	}

	if len(res.Changed) > 0 || len(res.Deleted) > 0 {
		e.publish(ctx, col, bus.SourceLocal, res.Changed)
	}

	return res, nil
}

func (e *Engine) mutate(ctx context.Context, col models.Collection, fn func(b *Batch) error) (*MutateResult, error) {
	s := e.slot(col.Name)
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := e.local.GetCollection(ctx, col.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to read local %s: %w", col.Name, err)
	}

	b := &Batch{records: records, stamp: e.clock.Tick}
	if err := fn(b); err != nil {
		return nil, err
	}

	if !b.Dirty() {
		return b.result(), nil
	}

	if err := e.local.PutCollection(ctx, col.Name, b.records); err != nil {
		return nil, fmt.Errorf("failed to write local %s: %w", col.Name, err)
	}
	s.gen++

	return b.result(), nil
}

// replaceFromBackup overwrites the local slot with a backup snapshot as it is,
// without stamping or fan-out. While local changes are waiting for their own
// backup push the snapshot is stale (usually an echo) and is skipped: applied is false.
func (e *Engine) replaceFromBackup(ctx context.Context, col models.Collection, records []models.Record) (applied bool, err error) {
	s := e.slot(col.Name)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unpushed() {
		return false, nil
	}

	if err := e.local.PutCollection(ctx, col.Name, records); err != nil {
		return false, fmt.Errorf("failed to write local %s: %w", col.Name, err)
	}
	for _, r := range records {
		e.clock.Observe(r.LastUpdated)
	}
	return true, nil
}

// WriteRecord stamps the record, stores it locally and returns as soon as the
// local write is done. Backup (and remote, for catalog collections) are updated
// in the background; failures are reported on the bus as SyncFailed.
func (e *Engine) WriteRecord(ctx context.Context, name string, rec models.Record) (models.Record, error) {
	if rec.ID == "" {
		return models.Record{}, ErrMissingID
	}

	var stamped models.Record
	res, err := e.Mutate(ctx, name, func(b *Batch) error {
		stamped = b.Put(rec)
		return nil
	})
	if err != nil {
		return models.Record{}, err
	}

	e.fanOutAsync(name, res.Changed, nil)

	return stamped, nil
}

// DeleteRecord removes the record locally and from the shared stores.
// Deleting an id that does not exist succeeds; for catalog collections the
// remote delete is still attempted so a record that only exists remotely goes away.
func (e *Engine) DeleteRecord(ctx context.Context, name, id string) error {
	col, err := models.Lookup(name)
	if err != nil {
		return err
	}

	res, err := e.Mutate(ctx, name, func(b *Batch) error {
		b.Delete(id)
		return nil
	})
	if err != nil {
		return err
	}

	switch {
	case len(res.Deleted) > 0:
		e.fanOutAsync(name, nil, res.Deleted)
	case col.IsCatalog() && e.remote != nil:
		e.fanOutRemoteOnly(name, id)
	}

	return nil
}

// Wait blocks until background fan-out started so far has finished
func (e *Engine) Wait() {
	e.fanout.Wait()
}

func (e *Engine) publish(ctx context.Context, col models.Collection, source bus.Source, changed []models.Record) {
	var payload any
	if len(changed) > 0 {
		payload = changed
	}
	e.bus.Publish(ctx, bus.Event{
		Topic:      col.Topic,
		Collection: col.Name,
		Source:     source,
		Payload:    payload,
	})
}
