package sync

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/shopkeeper/internal/bus"
	"github.com/iudanet/shopkeeper/internal/client/storage"
	"github.com/iudanet/shopkeeper/internal/client/storage/boltdb"
	"github.com/iudanet/shopkeeper/internal/crdt"
	"github.com/iudanet/shopkeeper/internal/models"
	"github.com/iudanet/shopkeeper/pkg/api"
)

// fakeTime управляемое время для часов движка
type fakeTime struct {
	t  time.Time
	mu sync.Mutex
}

func (f *fakeTime) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeTime) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

// eventRecorder собирает события шины
type eventRecorder struct {
	events []bus.Event
	mu     sync.Mutex
}

func (r *eventRecorder) handle(_ context.Context, ev bus.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) Events() []bus.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bus.Event(nil), r.events...)
}

type testEnv struct {
	engine *Engine
	local  *boltdb.Storage
	bus    *bus.Bus
	time   *fakeTime
	events *eventRecorder
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// okBackup возвращает backup mock, который принимает любые Set
func okBackup() *BackupStoreMock {
	return &BackupStoreMock{
		SetFunc: func(ctx context.Context, collection string, snapshot json.RawMessage) error {
			return nil
		},
		SubscribeFunc: func(ctx context.Context, collection string, onChange func(json.RawMessage)) (io.Closer, error) {
			return io.NopCloser(nil), nil
		},
	}
}

func newTestEnv(t *testing.T, backup BackupStore, remote RemoteStore, cfg ...Config) *testEnv {
	t.Helper()

	local, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)

	ft := &fakeTime{t: time.UnixMilli(1_700_000_000_000)}
	logger := testLogger()
	eventBus := bus.New(logger)
	recorder := &eventRecorder{}
	for _, topic := range []bus.Topic{bus.CatalogChanged, bus.OrdersChanged, bus.SettingsChanged, bus.CollectionChanged, bus.SyncFailed} {
		eventBus.Subscribe(topic, recorder.handle)
	}

	opts := []Option{WithClock(crdt.NewClockWithSource("test-node", ft.Now))}
	if len(cfg) > 0 {
		opts = append(opts, WithConfig(cfg[0]))
	}

	engine := NewEngine(local, backup, remote, eventBus, logger, opts...)

	t.Cleanup(func() {
		engine.Wait()
		require.NoError(t, local.Close())
	})

	return &testEnv{engine: engine, local: local, bus: eventBus, time: ft, events: recorder}
}

func product(id string, ts int64, name string) models.Record {
	return models.Record{
		ID:          id,
		LastUpdated: ts,
		Payload:     json.RawMessage(`{"name":"` + name + `","quantity":1}`),
	}
}

func seed(t *testing.T, env *testEnv, name string, records ...models.Record) {
	t.Helper()
	require.NoError(t, env.local.PutCollection(context.Background(), name, records))
}

func TestEngine_ReadCollection_RemoteUnavailable(t *testing.T) {
	remote := &RemoteStoreMock{
		ListProductsFunc: func(ctx context.Context) ([]models.Record, error) {
			return nil, errors.New("502 bad gateway")
		},
	}
	env := newTestEnv(t, okBackup(), remote)
	ctx := context.Background()

	seed(t, env, models.CollectionProducts, product("p1", 100, "Hat"), product("p2", 200, "Mug"))
	before, err := env.local.GetCollection(ctx, models.CollectionProducts)
	require.NoError(t, err)

	got, err := env.engine.ReadCollection(ctx, models.CollectionProducts)
	require.NoError(t, err)

	// Возвращается точный предыдущий snapshot
	assert.Equal(t, before, got)
	assert.Empty(t, env.events.Events(), "degraded read must not emit change events")

	after, err := env.local.GetCollection(ctx, models.CollectionProducts)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestEngine_ReadCollection_RemoteTimeout(t *testing.T) {
	remote := &RemoteStoreMock{
		ListProductsFunc: func(ctx context.Context) ([]models.Record, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	cfg := DefaultConfig()
	cfg.RemoteTimeout = 50 * time.Millisecond
	env := newTestEnv(t, okBackup(), remote, cfg)

	seed(t, env, models.CollectionProducts, product("p1", 100, "Hat"))

	start := time.Now()
	got, err := env.engine.ReadCollection(context.Background(), models.CollectionProducts)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].ID)
}

func TestEngine_ReadCollection_Merge(t *testing.T) {
	remote := &RemoteStoreMock{
		ListProductsFunc: func(ctx context.Context) ([]models.Record, error) {
			return []models.Record{product("p1", 200, "remote-hat"), product("p3", 50, "Scarf")}, nil
		},
	}
	env := newTestEnv(t, okBackup(), remote)
	ctx := context.Background()

	seed(t, env, models.CollectionProducts, product("p1", 100, "local-hat"), product("p2", 10, "Mug"))

	got, err := env.engine.ReadCollection(ctx, models.CollectionProducts)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "p1", got[0].ID)
	assert.Equal(t, int64(200), got[0].LastUpdated)
	assert.Equal(t, "p3", got[1].ID)
	assert.Equal(t, "p2", got[2].ID)

	// слитый вид сохранен локально
	stored, err := env.local.GetCollection(ctx, models.CollectionProducts)
	require.NoError(t, err)
	assert.Equal(t, got, stored)

	events := env.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, bus.CatalogChanged, events[0].Topic)
	assert.Equal(t, bus.SourceRemote, events[0].Source)

	// часы учитывают удаленные timestamps
	assert.GreaterOrEqual(t, env.engine.Clock().Last(), int64(200))
}

func TestEngine_WriteThenReadWithinGraceWindow(t *testing.T) {
	var remoteCopy models.Record
	var mu sync.Mutex

	remote := &RemoteStoreMock{
		SaveProductFunc: func(ctx context.Context, record models.Record) (*api.SaveResponse, error) {
			return nil, errors.New("edge store down")
		},
		ListProductsFunc: func(ctx context.Context) ([]models.Record, error) {
			mu.Lock()
			defer mu.Unlock()
			return []models.Record{remoteCopy}, nil
		},
	}
	env := newTestEnv(t, okBackup(), remote)
	ctx := context.Background()

	tests := []struct {
		name     string
		remoteTS func(written int64) int64
	}{
		{"remote stale", func(w int64) int64 { return w - 1000 }},
		{"remote newer but local inside grace", func(w int64) int64 { return w + 5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			written, err := env.engine.WriteRecord(ctx, models.CollectionProducts, product("p1", 0, "fresh"))
			require.NoError(t, err)
			env.engine.Wait()

			mu.Lock()
			remoteCopy = product("p1", tt.remoteTS(written.LastUpdated), "stale")
			mu.Unlock()

			env.time.Advance(10 * time.Second)

			got, err := env.engine.ReadCollection(ctx, models.CollectionProducts)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, written.LastUpdated, got[0].LastUpdated)
			assert.JSONEq(t, string(written.Payload), string(got[0].Payload))
		})
	}
}

func TestEngine_ReadCollection_BackupAuthoritativeServedLocally(t *testing.T) {
	remote := &RemoteStoreMock{}
	env := newTestEnv(t, okBackup(), remote)

	seed(t, env, models.CollectionOrders, product("o1", 1, "order"))

	got, err := env.engine.ReadCollection(context.Background(), models.CollectionOrders)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Empty(t, remote.ListProductsCalls())
}

func TestEngine_WriteRecord_FanOut(t *testing.T) {
	var (
		mu        sync.Mutex
		snapshots = map[string]json.RawMessage{}
	)
	backup := &BackupStoreMock{
		SetFunc: func(ctx context.Context, collection string, snapshot json.RawMessage) error {
			mu.Lock()
			defer mu.Unlock()
			snapshots[collection] = snapshot
			return nil
		},
	}
	remote := &RemoteStoreMock{
		SaveProductFunc: func(ctx context.Context, record models.Record) (*api.SaveResponse, error) {
			return &api.SaveResponse{ID: record.ID, LastUpdated: record.LastUpdated, Applied: true}, nil
		},
	}
	env := newTestEnv(t, backup, remote)
	ctx := context.Background()

	saved, err := env.engine.WriteRecord(ctx, models.CollectionProducts, product("p1", 0, "Hat"))
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_000_000_000), saved.LastUpdated)

	_, err = env.engine.WriteRecord(ctx, models.CollectionOrders, product("o1", 0, "order"))
	require.NoError(t, err)

	env.engine.Wait()

	// продукт ушел в remote, заказ только в backup
	calls := remote.SaveProductCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "p1", calls[0].Record.ID)
	assert.Equal(t, saved.LastUpdated, calls[0].Record.LastUpdated)

	mu.Lock()
	defer mu.Unlock()
	require.Contains(t, snapshots, models.CollectionProducts)
	require.Contains(t, snapshots, models.CollectionOrders)

	var pushed []models.Record
	require.NoError(t, json.Unmarshal(snapshots[models.CollectionProducts], &pushed))
	require.Len(t, pushed, 1)
	assert.Equal(t, saved.LastUpdated, pushed[0].LastUpdated)

	events := env.events.Events()
	require.Len(t, events, 2)
	assert.Equal(t, bus.CatalogChanged, events[0].Topic)
	assert.Equal(t, bus.SourceLocal, events[0].Source)
	assert.Equal(t, bus.OrdersChanged, events[1].Topic)
}

func TestEngine_WriteRecord_MonotonicTimestamps(t *testing.T) {
	env := newTestEnv(t, okBackup(), nil)
	ctx := context.Background()

	// время стоит на месте
	first, err := env.engine.WriteRecord(ctx, models.CollectionCoupons, product("c1", 0, "a"))
	require.NoError(t, err)
	second, err := env.engine.WriteRecord(ctx, models.CollectionCoupons, product("c1", 0, "b"))
	require.NoError(t, err)

	assert.Greater(t, second.LastUpdated, first.LastUpdated)

	records, err := env.engine.Snapshot(ctx, models.CollectionCoupons)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.JSONEq(t, `{"id":"c1","lastUpdated":`+jsonInt(second.LastUpdated)+`,"name":"b","quantity":1}`, mustJSON(t, records[0]))
}

func TestEngine_WriteRecord_BackupFailureIsWarning(t *testing.T) {
	backup := &BackupStoreMock{
		SetFunc: func(ctx context.Context, collection string, snapshot json.RawMessage) error {
			return errors.New("connection refused")
		},
	}
	env := newTestEnv(t, backup, nil)
	ctx := context.Background()

	_, err := env.engine.WriteRecord(ctx, models.CollectionStaff, product("s1", 0, "Ann"))
	require.NoError(t, err, "fan-out failure must not fail the local write")
	env.engine.Wait()

	var failure *SyncFailure
	for _, ev := range env.events.Events() {
		if ev.Topic == bus.SyncFailed {
			f := ev.Payload.(SyncFailure)
			failure = &f
		}
	}
	require.NotNil(t, failure)
	assert.Equal(t, models.CollectionStaff, failure.Collection)
	assert.Equal(t, StoreBackup, failure.Store)

	var unavailable *RemoteUnavailableError
	assert.ErrorAs(t, failure.Err, &unavailable)

	// локальная запись на месте
	records, err := env.engine.Snapshot(ctx, models.CollectionStaff)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestEngine_WriteRecord_QuotaExceeded(t *testing.T) {
	backup := okBackup()
	local, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "quota.db"), boltdb.WithQuota(64))
	require.NoError(t, err)
	defer func() { _ = local.Close() }()

	engine := NewEngine(local, backup, nil, nil, testLogger())

	big := models.Record{ID: "p1", Payload: json.RawMessage(`{"description":"0123456789012345678901234567890123456789012345678901234567890123456789"}`)}
	_, err = engine.WriteRecord(context.Background(), models.CollectionCustomers, big)
	assert.ErrorIs(t, err, storage.ErrQuotaExceeded)

	engine.Wait()
	assert.Empty(t, backup.SetCalls(), "aborted write must not fan out")
}

func TestEngine_WriteRecord_Validation(t *testing.T) {
	env := newTestEnv(t, okBackup(), nil)

	_, err := env.engine.WriteRecord(context.Background(), models.CollectionOrders, models.Record{})
	assert.ErrorIs(t, err, ErrMissingID)

	_, err = env.engine.WriteRecord(context.Background(), "unknown", product("x", 0, "x"))
	assert.Error(t, err)
}

func TestEngine_DeleteRecord_Idempotent(t *testing.T) {
	backup := okBackup()
	remote := &RemoteStoreMock{
		DeleteProductFunc: func(ctx context.Context, id string) error {
			return nil
		},
	}
	env := newTestEnv(t, backup, remote)
	ctx := context.Background()

	seed(t, env, models.CollectionProducts, product("p1", 1, "Hat"), product("p2", 1, "Mug"))

	require.NoError(t, env.engine.DeleteRecord(ctx, models.CollectionProducts, "p1"))
	require.NoError(t, env.engine.DeleteRecord(ctx, models.CollectionProducts, "p1"))
	env.engine.Wait()

	records, err := env.engine.Snapshot(ctx, models.CollectionProducts)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "p2", records[0].ID)

	// backup получил snapshot один раз, remote удаление запрошено оба раза
	assert.Len(t, backup.SetCalls(), 1)
	assert.Len(t, remote.DeleteProductCalls(), 2)
}

func TestEngine_DeleteRecord_NonCatalogMissingID(t *testing.T) {
	backup := okBackup()
	env := newTestEnv(t, backup, nil)

	require.NoError(t, env.engine.DeleteRecord(context.Background(), models.CollectionOrders, "nope"))
	env.engine.Wait()

	assert.Empty(t, backup.SetCalls())
	assert.Empty(t, env.events.Events())
}

func TestEngine_Mutate_NoChange(t *testing.T) {
	env := newTestEnv(t, okBackup(), nil)

	res, err := env.engine.Mutate(context.Background(), models.CollectionOrders, func(b *Batch) error {
		_, ok := b.Get("missing")
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, res.Changed)
	assert.Empty(t, env.events.Events())
}

func TestEngine_Mutate_ErrorAbortsWrite(t *testing.T) {
	env := newTestEnv(t, okBackup(), nil)
	boom := errors.New("boom")

	_, err := env.engine.Mutate(context.Background(), models.CollectionOrders, func(b *Batch) error {
		b.Put(product("o1", 0, "x"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	records, err := env.engine.Snapshot(context.Background(), models.CollectionOrders)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestEngine_SyncCatalog_AllSettled(t *testing.T) {
	remote := &RemoteStoreMock{
		SaveProductFunc: func(ctx context.Context, record models.Record) (*api.SaveResponse, error) {
			if record.ID == "p2" {
				return nil, errors.New("500")
			}
			return &api.SaveResponse{ID: record.ID, Applied: true}, nil
		},
	}
	env := newTestEnv(t, okBackup(), remote)

	seed(t, env, models.CollectionProducts, product("p1", 1, "a"), product("p2", 1, "b"), product("p3", 1, "c"))

	saved, err := env.engine.SyncCatalog(context.Background())
	assert.Equal(t, 2, saved)

	var partial *PartialSyncError
	require.ErrorAs(t, err, &partial)
	require.Len(t, partial.Failures, 1)
	assert.Equal(t, "p2", partial.Failures[0].RecordID)
	assert.Equal(t, StoreRemote, partial.Failures[0].Store)
	assert.Len(t, remote.SaveProductCalls(), 3)
}

func TestEngine_RemoteDisabled(t *testing.T) {
	env := newTestEnv(t, okBackup(), nil)
	assert.False(t, env.engine.RemoteEnabled())

	saved, err := env.engine.SyncCatalog(context.Background())
	require.NoError(t, err)
	assert.Zero(t, saved)

	require.NoError(t, env.engine.PushRemote(context.Background(), models.CollectionProducts, product("p1", 1, "a")))
}

func jsonInt(n int64) string {
	data, _ := json.Marshal(n)
	return string(data)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}
