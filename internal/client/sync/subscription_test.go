package sync

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/shopkeeper/internal/bus"
	"github.com/iudanet/shopkeeper/internal/models"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestSubscriptionManager_HandlePush(t *testing.T) {
	tests := []struct {
		name        string
		collection  string
		local       []models.Record
		payload     string
		wantLocal   []string
		wantEvent   bool
		wantReseed  bool
	}{
		{
			name:       "empty catalog push re-seeds backup",
			collection: models.CollectionProducts,
			local:      []models.Record{product("p1", 1, "Hat")},
			payload:    `null`,
			wantLocal:  []string{"p1"},
			wantReseed: true,
		},
		{
			name:       "empty catalog push with empty local",
			collection: models.CollectionProducts,
			payload:    `[]`,
			wantLocal:  []string{},
			wantEvent:  true,
		},
		{
			name:       "empty push clears backup-authoritative collection",
			collection: models.CollectionOrders,
			local:      []models.Record{product("o1", 1, "order")},
			payload:    `null`,
			wantLocal:  []string{},
			wantEvent:  true,
		},
		{
			name:       "non-empty catalog push is advisory",
			collection: models.CollectionProducts,
			local:      []models.Record{product("p1", 1, "Hat")},
			payload:    `[{"id":"p9","lastUpdated":5}]`,
			wantLocal:  []string{"p1"},
		},
		{
			name:       "non-empty push replaces backup-authoritative collection",
			collection: models.CollectionOrders,
			local:      []models.Record{product("o1", 1, "order")},
			payload:    `{"-Nb":{"id":"o3","lastUpdated":9},"-Na":{"id":"o2","lastUpdated":8}}`,
			wantLocal:  []string{"o2", "o3"},
			wantEvent:  true,
		},
		{
			name:       "singleton settings object",
			collection: models.CollectionSiteSettings,
			payload:    `{"storeName":"Shop","lastUpdated":3}`,
			wantLocal:  []string{models.CollectionSiteSettings},
			wantEvent:  true,
		},
		{
			name:       "malformed push leaves local untouched",
			collection: models.CollectionOrders,
			local:      []models.Record{product("o1", 1, "order")},
			payload:    `"garbage"`,
			wantLocal:  []string{"o1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backup := okBackup()
			env := newTestEnv(t, backup, nil)
			ctx := context.Background()

			seed(t, env, tt.collection, tt.local...)

			m := NewSubscriptionManager(env.engine, backup, testLogger())
			m.HandlePush(ctx, tt.collection, json.RawMessage(tt.payload))

			records, err := env.engine.Snapshot(ctx, tt.collection)
			require.NoError(t, err)
			ids := make([]string, 0, len(records))
			for _, r := range records {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.wantLocal, ids)

			events := env.events.Events()
			if tt.wantEvent {
				require.Len(t, events, 1)
				assert.Equal(t, bus.SourceBackup, events[0].Source)
				assert.Equal(t, tt.collection, events[0].Collection)
			} else {
				assert.Empty(t, events)
			}

			if tt.wantReseed {
				calls := backup.SetCalls()
				require.Len(t, calls, 1)
				var pushed []models.Record
				require.NoError(t, json.Unmarshal(calls[0].Snapshot, &pushed))
				assert.Len(t, pushed, len(tt.local))
			} else {
				assert.Empty(t, backup.SetCalls())
			}
		})
	}
}

func TestSubscriptionManager_PushSkippedWhileLocalUnpushed(t *testing.T) {
	var failing = true
	var mu sync.Mutex

	backup := &BackupStoreMock{
		SetFunc: func(ctx context.Context, collection string, snapshot json.RawMessage) error {
			mu.Lock()
			defer mu.Unlock()
			if failing {
				return errors.New("offline")
			}
			return nil
		},
	}
	env := newTestEnv(t, backup, nil)
	ctx := context.Background()

	_, err := env.engine.WriteRecord(ctx, models.CollectionOrders, product("o-new", 0, "fresh"))
	require.NoError(t, err)
	env.engine.Wait()

	mu.Lock()
	failing = false
	mu.Unlock()

	m := NewSubscriptionManager(env.engine, backup, testLogger())
	// старое эхо из backup не затирает локальный заказ
	m.HandlePush(ctx, models.CollectionOrders, json.RawMessage(`[]`))

	records, err := env.engine.Snapshot(ctx, models.CollectionOrders)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "o-new", records[0].ID)

	// вместо применения push локальные данные отправлены заново
	calls := backup.SetCalls()
	require.Len(t, calls, 2)

	// после подтверждения backup следующий push применяется
	m.HandlePush(ctx, models.CollectionOrders, json.RawMessage(`[{"id":"o-other","lastUpdated":1}]`))
	records, err = env.engine.Snapshot(ctx, models.CollectionOrders)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "o-other", records[0].ID)
}

func TestSubscriptionManager_StartStop(t *testing.T) {
	var (
		mu     sync.Mutex
		closed []string
	)
	backup := &BackupStoreMock{
		SubscribeFunc: func(ctx context.Context, collection string, onChange func(json.RawMessage)) (io.Closer, error) {
			if collection == models.CollectionStaff {
				return nil, errors.New("permission denied")
			}
			return closerFunc(func() error {
				mu.Lock()
				defer mu.Unlock()
				closed = append(closed, collection)
				return nil
			}), nil
		},
	}
	env := newTestEnv(t, backup, nil)
	m := NewSubscriptionManager(env.engine, backup, testLogger())

	err := m.Start(context.Background())
	require.Error(t, err)

	var unavailable *RemoteUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, models.CollectionStaff, unavailable.Collection)

	shared := len(models.SharedCollections())
	assert.Len(t, backup.SubscribeCalls(), shared)
	assert.Equal(t, shared-1, m.Active())

	// повторная подписка не создает дубликат
	require.NoError(t, m.Subscribe(context.Background(), models.CollectionOrders))
	assert.Len(t, backup.SubscribeCalls(), shared)

	assert.Error(t, m.Subscribe(context.Background(), models.CollectionCart), "local-only collection is never subscribed")

	require.NoError(t, m.Stop())
	assert.Equal(t, 0, m.Active())

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, closed, shared-1)
}

func TestSubscriptionManager_DeliversThroughBackup(t *testing.T) {
	var deliver func(json.RawMessage)
	backup := &BackupStoreMock{
		SubscribeFunc: func(ctx context.Context, collection string, onChange func(json.RawMessage)) (io.Closer, error) {
			if collection == models.CollectionCoupons {
				deliver = onChange
			}
			return closerFunc(func() error { return nil }), nil
		},
	}
	env := newTestEnv(t, backup, nil)
	m := NewSubscriptionManager(env.engine, backup, testLogger())
	require.NoError(t, m.Subscribe(context.Background(), models.CollectionCoupons))
	require.NotNil(t, deliver)

	deliver(json.RawMessage(`[{"id":"SALE10","lastUpdated":4}]`))

	records, err := env.engine.Snapshot(context.Background(), models.CollectionCoupons)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "SALE10", records[0].ID)
	assert.Equal(t, int64(4), records[0].LastUpdated)
}
