package filestorage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kres-mod/kres/internal/model"
	"github.com/kres-mod/kres/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func newTestBackend(t *testing.T) (*Backend, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "saves", "kres_data.toml")
	b := New(Config{Path: path})
	require.NoError(t, b.Init())
	return b, path
}

func TestInit_MissingFileIsEmpty(t *testing.T) {
	b, _ := newTestBackend(t)
	_, err := b.LoadSaveInfo(context.Background())
	assert.ErrorIs(t, err, storage.ErrNotFound)

	rows, err := b.LoadDataBodies(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestInit_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[data\nthis is not toml"), 0644))
	assert.Error(t, New(Config{Path: path}).Init())
}

func TestRoundTripThroughDisk(t *testing.T) {
	ctx := context.Background()
	b, path := newTestBackend(t)

	require.NoError(t, b.StoreSaveInfo(ctx, &model.SaveInfo{Pack: "Default", Generated: true, MapWidth: 1440, MapHeight: 720}))
	require.NoError(t, b.UpsertDataBodies(ctx, []model.DataBody{
		{Type: "ore", Body: "Kerbin", CurrentError: 0.42},
		{Type: "gas", Body: "Jool", CurrentError: 1},
	}))
	require.NoError(t, b.UpsertResourceItems(ctx, []model.ResourceItem{
		{Type: "ore", Body: "Kerbin", Name: "Karbonite", ActualDensity: 0.39, ActualError: -0.12},
	}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[data.ore.Kerbin]")
	assert.Contains(t, string(raw), "currentError = 0.42")

	reopened := New(Config{Path: path})
	require.NoError(t, reopened.Init())

	info, err := reopened.LoadSaveInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Default", info.Pack)
	assert.True(t, info.Generated)
	assert.Equal(t, 1440, info.MapWidth)

	rows, err := reopened.LoadDataBodies(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "gas", rows[0].Type)
	assert.Equal(t, "Jool", rows[0].Body)
	assert.Equal(t, 0.42, rows[1].CurrentError)

	items, err := reopened.LoadResourceItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Karbonite", items[0].Name)
	assert.Equal(t, 0.39, items[0].ActualDensity)
	assert.Equal(t, -0.12, items[0].ActualError)
}

func TestReplaceDataBodies(t *testing.T) {
	ctx := context.Background()
	b, path := newTestBackend(t)

	require.NoError(t, b.UpsertDataBodies(ctx, []model.DataBody{{Type: "ore", Body: "Kerbin", CurrentError: 0.1}}))
	require.NoError(t, b.ReplaceDataBodies(ctx, []model.DataBody{{Type: "liquid", Body: "Eve", CurrentError: 1}}))

	reopened := New(Config{Path: path})
	require.NoError(t, reopened.Init())
	rows, err := reopened.LoadDataBodies(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Eve", rows[0].Body)
}

func TestBodyNamesWithSpaces(t *testing.T) {
	ctx := context.Background()
	b, path := newTestBackend(t)
	require.NoError(t, b.UpsertDataBodies(ctx, []model.DataBody{{Type: "ore", Body: "Gas Planet 1", CurrentError: 0.5}}))

	reopened := New(Config{Path: path})
	require.NoError(t, reopened.Init())
	rows, err := reopened.LoadDataBodies(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Gas Planet 1", rows[0].Body)
}
