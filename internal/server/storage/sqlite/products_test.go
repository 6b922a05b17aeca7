package sqlite

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/shopkeeper/internal/models"
	"github.com/iudanet/shopkeeper/internal/server/storage"
)

func setupTestStorage(t *testing.T) *Storage {
	t.Helper()

	// Используем in-memory database для тестов
	s, err := New(context.Background(), ":memory:", WithClock(func() time.Time {
		return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	}))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

func record(id string, lastUpdated int64, fields string) models.Record {
	return models.Record{ID: id, LastUpdated: lastUpdated, Payload: json.RawMessage(fields)}
}

func TestStorage_SaveProduct(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		existing    *models.Record
		incoming    models.Record
		wantApplied bool
		wantName    string
		wantStamp   int64
	}{
		{
			name:        "new record",
			incoming:    record("p-1", 100, `{"name":"Shirt"}`),
			wantApplied: true,
			wantName:    "Shirt",
			wantStamp:   100,
		},
		{
			name:        "newer replaces stored",
			existing:    &models.Record{ID: "p-1", LastUpdated: 100, Payload: json.RawMessage(`{"name":"Shirt"}`)},
			incoming:    record("p-1", 200, `{"name":"Shirt v2"}`),
			wantApplied: true,
			wantName:    "Shirt v2",
			wantStamp:   200,
		},
		{
			name:        "equal timestamp is applied",
			existing:    &models.Record{ID: "p-1", LastUpdated: 100, Payload: json.RawMessage(`{"name":"Shirt"}`)},
			incoming:    record("p-1", 100, `{"name":"Same time"}`),
			wantApplied: true,
			wantName:    "Same time",
			wantStamp:   100,
		},
		{
			name:        "older is rejected",
			existing:    &models.Record{ID: "p-1", LastUpdated: 300, Payload: json.RawMessage(`{"name":"Fresh"}`)},
			incoming:    record("p-1", 200, `{"name":"Stale"}`),
			wantApplied: false,
			wantName:    "Fresh",
			wantStamp:   300,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestStorage(t)

			if tt.existing != nil {
				_, applied, err := s.SaveProduct(ctx, *tt.existing)
				require.NoError(t, err)
				require.True(t, applied)
			}

			stored, applied, err := s.SaveProduct(ctx, tt.incoming)
			require.NoError(t, err)
			assert.Equal(t, tt.wantApplied, applied)
			assert.Equal(t, tt.wantStamp, stored.LastUpdated)

			got, err := s.GetProduct(ctx, tt.incoming.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStamp, got.LastUpdated)

			var p models.Product
			require.NoError(t, got.Decode(&p))
			assert.Equal(t, tt.wantName, p.Name)
		})
	}
}

func TestStorage_SaveProduct_EmptyID(t *testing.T) {
	s := setupTestStorage(t)

	_, _, err := s.SaveProduct(context.Background(), record("", 1, `{"name":"x"}`))
	assert.ErrorIs(t, err, storage.ErrInvalidRecord)
}

func TestStorage_ListProducts(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	list, err := s.ListProducts(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	for _, r := range []models.Record{
		record("c", 1, `{"name":"C","sortOrder":2}`),
		record("a", 1, `{"name":"A","sortOrder":2}`),
		record("b", 1, `{"name":"B","sortOrder":1}`),
		record("d", 1, `{"name":"D"}`),
	} {
		_, _, err := s.SaveProduct(ctx, r)
		require.NoError(t, err)
	}

	list, err = s.ListProducts(ctx)
	require.NoError(t, err)

	ids := make([]string, 0, len(list))
	for _, r := range list {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"d", "b", "a", "c"}, ids)

	n, err := s.CountProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestStorage_DeleteProduct(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	_, _, err := s.SaveProduct(ctx, record("p-1", 1, `{"name":"Mug"}`))
	require.NoError(t, err)

	require.NoError(t, s.DeleteProduct(ctx, "p-1"))

	_, err = s.GetProduct(ctx, "p-1")
	assert.ErrorIs(t, err, storage.ErrProductNotFound)

	err = s.DeleteProduct(ctx, "p-1")
	assert.ErrorIs(t, err, storage.ErrProductNotFound)
}
