package databody

import (
	"context"
	"testing"

	"github.com/kres-mod/kres/internal/host"
	"github.com/kres-mod/kres/internal/model"
	"github.com/kres-mod/kres/internal/resource"
	"github.com/kres-mod/kres/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnv() host.Environment {
	return host.NewStatic(host.Description{Bodies: []host.BodySpec{
		{Name: "Kerbin", Capabilities: resource.Capabilities{Surface: true, Atmosphere: true, Ocean: true}},
		{Name: "Mun", Capabilities: resource.Capabilities{Surface: true}},
	}}, "", nil)
}

func TestExpectedKeys(t *testing.T) {
	keys := ExpectedKeys(testEnv())
	assert.Equal(t, []Key{
		{resource.Mineral, "Kerbin"},
		{resource.Mineral, "Mun"},
		{resource.Liquid, "Kerbin"},
		{resource.Gaseous, "Kerbin"},
	}, keys)
}

func TestLoad_FreshSaveIsBuilt(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	s := NewStore(backend, nil)

	rebuilt, err := s.Load(ctx, ExpectedKeys(testEnv()))
	require.NoError(t, err)
	assert.True(t, rebuilt)

	for _, e := range s.Entries() {
		assert.Equal(t, InitialError, e.CurrentError, e.Key.String())
	}
	rows, err := backend.LoadDataBodies(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestLoad_CompleteSaveIsKept(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	require.NoError(t, backend.UpsertDataBodies(ctx, []model.DataBody{
		{Type: "ore", Body: "Kerbin", CurrentError: 0.3},
		{Type: "ore", Body: "Mun", CurrentError: 0.6},
		{Type: "liquid", Body: "Kerbin", CurrentError: 1},
		{Type: "gas", Body: "Kerbin", CurrentError: -1},
	}))

	s := NewStore(backend, nil)
	rebuilt, err := s.Load(ctx, ExpectedKeys(testEnv()))
	require.NoError(t, err)
	assert.False(t, rebuilt)

	v, err := s.Get(Key{resource.Mineral, "Mun"})
	require.NoError(t, err)
	assert.Equal(t, 0.6, v)
	v, err = s.Get(Key{resource.Gaseous, "Kerbin"})
	require.NoError(t, err)
	assert.Equal(t, -1.0, v)
}

func TestLoad_OneMissingEntryResetsEverything(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	require.NoError(t, backend.UpsertDataBodies(ctx, []model.DataBody{
		{Type: "ore", Body: "Kerbin", CurrentError: 0.3},
		{Type: "ore", Body: "Mun", CurrentError: 0.6},
		{Type: "liquid", Body: "Kerbin", CurrentError: 0.2},
		{Type: "ore", Body: "Gone", CurrentError: 0.1},
	}))

	s := NewStore(backend, nil)
	rebuilt, err := s.Load(ctx, ExpectedKeys(testEnv()))
	require.NoError(t, err)
	assert.True(t, rebuilt)

	entries := s.Entries()
	require.Len(t, entries, 4)
	for _, e := range entries {
		assert.Equal(t, 1.0, e.CurrentError, e.Key.String())
	}
	_, err = s.Get(Key{resource.Mineral, "Gone"})
	assert.ErrorIs(t, err, ErrMissingEntry)

	rows, err := backend.LoadDataBodies(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 4, "stale rows are dropped from the backend too")
}

func TestSave_OnlyTouchedEntries(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	s := NewStore(backend, nil)
	_, err := s.Load(ctx, ExpectedKeys(testEnv()))
	require.NoError(t, err)

	s.Set(Key{resource.Mineral, "Mun"}, 0.42)
	assert.Equal(t, 1, s.Touched())
	require.NoError(t, s.Save(ctx))
	assert.Equal(t, 0, s.Touched())

	reloaded := NewStore(backend, nil)
	rebuilt, err := reloaded.Load(ctx, ExpectedKeys(testEnv()))
	require.NoError(t, err)
	assert.False(t, rebuilt)
	v, err := reloaded.Get(Key{resource.Mineral, "Mun"})
	require.NoError(t, err)
	assert.Equal(t, 0.42, v)

	// nothing touched, nothing written
	require.NoError(t, reloaded.Save(ctx))
}

func TestLoad_IgnoresUnknownTypes(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	require.NoError(t, backend.UpsertDataBodies(ctx, []model.DataBody{
		{Type: "ore", Body: "Mun", CurrentError: 0.5},
		{Type: "plasma", Body: "Mun", CurrentError: 0.5},
	}))
	s := NewStore(backend, nil)
	rebuilt, err := s.Load(ctx, []Key{{resource.Mineral, "Mun"}})
	require.NoError(t, err)
	assert.False(t, rebuilt)
	assert.Len(t, s.Entries(), 1)
}
