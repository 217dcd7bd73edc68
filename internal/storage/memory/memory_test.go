package memory

import (
	"context"
	"testing"

	"github.com/kres-mod/kres/internal/model"
	"github.com/kres-mod/kres/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface checks
var (
	_ storage.Backend  = (*Backend)(nil)
	_ storage.Recorder = (*Backend)(nil)
)

func TestSaveInfo(t *testing.T) {
	b := New()
	require.NoError(t, b.Init())
	defer b.Close()
	ctx := context.Background()

	_, err := b.LoadSaveInfo(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, b.StoreSaveInfo(ctx, &model.SaveInfo{Pack: "Default", Generated: true}))
	info, err := b.LoadSaveInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Default", info.Pack)
	assert.True(t, info.Generated)
	assert.Equal(t, uint(model.SaveInfoID), info.ID)
}

func TestDataBodies_UpsertAndReplace(t *testing.T) {
	b := New()
	ctx := context.Background()

	require.NoError(t, b.UpsertDataBodies(ctx, []model.DataBody{
		{Type: "ore", Body: "Mun", CurrentError: 1},
		{Type: "gas", Body: "Kerbin", CurrentError: 0.5},
	}))
	require.NoError(t, b.UpsertDataBodies(ctx, []model.DataBody{{Type: "ore", Body: "Mun", CurrentError: 0.3}}))

	rows, err := b.LoadDataBodies(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "gas", rows[0].Type)
	assert.Equal(t, 0.3, rows[1].CurrentError)

	require.NoError(t, b.ReplaceDataBodies(ctx, []model.DataBody{{Type: "liquid", Body: "Kerbin", CurrentError: 1}}))
	rows, err = b.LoadDataBodies(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "liquid", rows[0].Type)
}

func TestResourceItems(t *testing.T) {
	b := New()
	ctx := context.Background()
	require.NoError(t, b.UpsertResourceItems(ctx, []model.ResourceItem{
		{Type: "ore", Body: "Mun", Name: "Karbonite", ActualDensity: 0.4, ActualError: -0.2},
		{Type: "ore", Body: "Kerbin", Name: "Karbonite", ActualDensity: 0.3},
	}))
	rows, err := b.LoadResourceItems(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Kerbin", rows[0].Body)
	assert.Equal(t, -0.2, rows[1].ActualError)
}

func TestRecorder(t *testing.T) {
	b := New()
	require.NoError(t, b.RecordGenerationRun(&model.GenerationRun{Body: "Mun", Resource: "Karbonite"}))
	require.NoError(t, b.RecordProbe(&model.ProbeReport{Body: "Mun", Opacity: 0.5}))
	assert.Len(t, b.GenerationRuns(), 1)
	assert.Len(t, b.Probes(), 1)
}
