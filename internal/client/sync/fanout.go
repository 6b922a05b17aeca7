package sync

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/iudanet/shopkeeper/internal/bus"
	"github.com/iudanet/shopkeeper/internal/models"
)

// fanOutAsync propagates a committed local change in the background.
// The caller's context is not used: the local write has already succeeded and
// fan-out must not be cut short by the caller going away.
func (e *Engine) fanOutAsync(name string, changed []models.Record, deleted []string) {
	e.fanout.Add(1)
	go func() {
		defer e.fanout.Done()

		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.FanoutTimeout)
		defer cancel()

		if err := e.fanOut(ctx, name, changed, deleted); err != nil {
			e.logger.Debug("Background fan-out incomplete", "collection", name, "error", err)
		}
	}()
}

func (e *Engine) fanOutRemoteOnly(name, id string) {
	e.fanout.Add(1)
	go func() {
		defer e.fanout.Done()

		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.FanoutTimeout)
		defer cancel()

		if err := e.deleteRemote(ctx, name, id); err != nil {
			e.reportFailure(ctx, SyncFailure{Collection: name, RecordID: id, Store: StoreRemote, Err: err})
		}
	}()
}

// fanOut pushes the collection snapshot to backup and, for catalog collections,
// the changed records to the remote store. Every target is attempted.
func (e *Engine) fanOut(ctx context.Context, name string, changed []models.Record, deleted []string) error {
	col, err := models.Lookup(name)
	if err != nil {
		return err
	}

	var partial *PartialSyncError

	if err := e.PushCollection(ctx, name); err != nil {
		partial = partial.Merge(&PartialSyncError{Failures: []SyncFailure{
			{Collection: name, Store: StoreBackup, Err: err},
		}})
	} else if e.backup != nil && !col.LocalOnly {
		partial = partial.Merge(&PartialSyncError{Succeeded: 1})
	}

	if col.IsCatalog() && e.remote != nil {
		partial = partial.Merge(e.pushRemoteAll(ctx, name, changed))

		for _, id := range deleted {
			if err := e.deleteRemote(ctx, name, id); err != nil {
				partial = partial.Merge(&PartialSyncError{Failures: []SyncFailure{
					{Collection: name, RecordID: id, Store: StoreRemote, Err: err},
				}})
				continue
			}
			partial = partial.Merge(&PartialSyncError{Succeeded: 1})
		}
	}

	if partial != nil {
		for _, f := range partial.Failures {
			e.reportFailure(ctx, f)
		}
	}

	return partial.asError()
}

// PushCollection sends the current local snapshot of the collection to the backup
// store and waits for the answer. Local-only collections are not sent.
func (e *Engine) PushCollection(ctx context.Context, name string) error {
	col, err := models.Lookup(name)
	if err != nil {
		return err
	}
	if e.backup == nil || col.LocalOnly {
		return nil
	}

	s := e.slot(name)
	s.pushMu.Lock()
	defer s.pushMu.Unlock()

	// snapshot берется под pushMu, поэтому более поздний Set никогда не отправит старые данные
	s.mu.Lock()
	records, err := e.local.GetCollection(ctx, name)
	gen := s.gen
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to read local %s: %w", name, err)
	}

	snapshot, err := models.EncodeSnapshot(col, records)
	if err != nil {
		return err
	}

	if err := e.backup.Set(ctx, name, snapshot); err != nil {
		return &RemoteUnavailableError{Store: StoreBackup, Collection: name, Err: err}
	}

	s.mu.Lock()
	s.pushedGen = max(s.pushedGen, gen)
	s.mu.Unlock()

	return nil
}

// PushRemote saves one catalog record to the remote store and waits for the answer.
func (e *Engine) PushRemote(ctx context.Context, name string, rec models.Record) error {
	if e.remote == nil {
		return nil
	}

	rctx, cancel := context.WithTimeout(ctx, e.cfg.RemoteTimeout)
	defer cancel()

	if _, err := e.remote.SaveProduct(rctx, rec); err != nil {
		return &RemoteUnavailableError{Store: StoreRemote, Collection: name, Err: err}
	}

	return nil
}

func (e *Engine) deleteRemote(ctx context.Context, name, id string) error {
	rctx, cancel := context.WithTimeout(ctx, e.cfg.RemoteTimeout)
	defer cancel()

	if err := e.remote.DeleteProduct(rctx, id); err != nil {
		return &RemoteUnavailableError{Store: StoreRemote, Collection: name, Err: err}
	}
	return nil
}

// pushRemoteAll saves records concurrently and waits for all of them;
// one failure does not cancel the others.
func (e *Engine) pushRemoteAll(ctx context.Context, name string, records []models.Record) *PartialSyncError {
	if len(records) == 0 {
		return nil
	}

	var (
		mu      sync.Mutex
		partial = &PartialSyncError{}
		g       errgroup.Group
	)
	g.SetLimit(max(1, e.cfg.RemoteParallel))

	for _, rec := range records {
		g.Go(func() error {
			err := e.PushRemote(ctx, name, rec)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				partial.Failures = append(partial.Failures, SyncFailure{
					Collection: name, RecordID: rec.ID, Store: StoreRemote, Err: err,
				})
			} else {
				partial.Succeeded++
			}
			return nil
		})
	}
	_ = g.Wait()

	return partial
}

// SyncCatalog pushes every local product to the remote store, all-settled.
// Returns the number of records that were saved and a *PartialSyncError if any failed.
func (e *Engine) SyncCatalog(ctx context.Context) (int, error) {
	if e.remote == nil {
		return 0, nil
	}

	records, err := e.Snapshot(ctx, models.CollectionProducts)
	if err != nil {
		return 0, err
	}

	partial := e.pushRemoteAll(ctx, models.CollectionProducts, records)
	if partial == nil {
		return 0, nil
	}
	for _, f := range partial.Failures {
		e.reportFailure(ctx, f)
	}

	e.logger.Info("Catalog pushed to remote store",
		"saved", partial.Succeeded,
		"failed", len(partial.Failures),
	)

	return partial.Succeeded, partial.asError()
}

// reportFailure turns a fan-out failure into an operator warning
func (e *Engine) reportFailure(ctx context.Context, f SyncFailure) {
	e.metrics.fanoutFailures.WithLabelValues(f.Collection, f.Store).Inc()
	e.logger.Warn("Fan-out write failed",
		"collection", f.Collection,
		"record_id", f.RecordID,
		"store", f.Store,
		"error", f.Err,
	)
	e.bus.Publish(ctx, bus.Event{
		Topic:      bus.SyncFailed,
		Collection: f.Collection,
		Source:     bus.SourceLocal,
		Payload:    f,
	})
}

// ReportFailures emits an operator warning for every failure in err
func (e *Engine) ReportFailures(ctx context.Context, err *PartialSyncError) {
	if err == nil {
		return
	}
	for _, f := range err.Failures {
		e.reportFailure(ctx, f)
	}
}
