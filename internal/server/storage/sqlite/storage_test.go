package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorage_Info(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	info, err := s.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, ":memory:", info.Path)
	assert.Equal(t, int64(1), info.SchemaVersion)
	assert.Zero(t, info.Products)

	_, _, err = s.SaveProduct(ctx, record("p-1", 1, `{"name":"Mug"}`))
	require.NoError(t, err)

	info, err = s.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Products)
}

func TestNew_ReopenKeepsCatalog(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")

	s, err := New(ctx, path)
	require.NoError(t, err)
	_, _, err = s.SaveProduct(ctx, record("p-1", 10, `{"name":"Mug"}`))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// повторный запуск миграций не должен трогать данные
	s, err = New(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})

	got, err := s.GetProduct(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.LastUpdated)

	version, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}

func TestNew_BadPath(t *testing.T) {
	_, err := New(context.Background(), filepath.Join(t.TempDir(), "missing", "catalog.db"))
	assert.Error(t, err)
}
