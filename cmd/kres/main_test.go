package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kres-mod/kres/internal/config"
	filestorage "github.com/kres-mod/kres/internal/storage/file"
	"github.com/kres-mod/kres/internal/storage/memory"
	sqlitestorage "github.com/kres-mod/kres/internal/storage/sqlite"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateStorageBackend(t *testing.T) {
	dir := t.TempDir()

	b, err := createStorageBackend(config.StorageConfig{Type: "memory"}, dir)
	require.NoError(t, err)
	assert.IsType(t, &memory.Backend{}, b)

	b, err = createStorageBackend(config.StorageConfig{File: config.FileConfig{Name: "kres_data.toml"}}, dir)
	require.NoError(t, err)
	assert.IsType(t, &filestorage.Backend{}, b)

	b, err = createStorageBackend(config.StorageConfig{Type: "sqlite", SQLite: config.SQLiteConfig{Path: "kres.db"}}, dir)
	require.NoError(t, err)
	assert.IsType(t, &sqlitestorage.Backend{}, b)
	require.NoError(t, b.Init())
	require.NoError(t, b.Close())
	assert.FileExists(t, filepath.Join(dir, "kres.db"))
}

func TestRun_ArgumentErrors(t *testing.T) {
	ctx := context.Background()
	assert.Error(t, run(ctx, "nonsense", nil))
	assert.Error(t, run(ctx, "scan", []string{"Probe"}))
	assert.Error(t, run(ctx, "preview", nil))
	assert.Error(t, run(ctx, "probe", []string{"Kerbin", "Ore"}))
}

func TestRunStatus_EndToEnd(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()

	hostFile := filepath.Join(dir, "host.json")
	require.NoError(t, os.WriteFile(hostFile, []byte(`{
		"bodies": [{"name": "Mun", "surface": true}],
		"vessels": [{"name": "Probe", "body": "Mun", "altitude": 100000, "resources": {"ElectricCharge": 100000}}]
	}`), 0644))

	defaultsDir := filepath.Join(dir, "defaults")
	require.NoError(t, os.MkdirAll(defaultsDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(defaultsDir, "default.json"), []byte(`{
		"name": "Default",
		"bodies": [{"name": "Mun", "resources": [
			{"name": "Ore", "type": "ore", "density": 0.3, "octaves": 3, "persistence": 0.5, "frequency": 1, "seed": 11}
		]}]
	}`), 0644))

	viper.Set("hostFile", hostFile)
	viper.Set("defaultsDir", defaultsDir)
	viper.Set("defaultPack", "Default")
	viper.Set("saveDir", filepath.Join(dir, "save"))
	viper.Set("storage.type", "memory")
	viper.Set("map.width", 36)
	viper.Set("map.height", 18)
	viper.Set("map.maxLinesPerFrame", 6)
	viper.Set("map.noise", "simplex")
	t.Cleanup(func() {
		storageBackend = nil
		influxManager = nil
	})

	out := filepath.Join(dir, "status.json")
	f, err := os.Create(out)
	require.NoError(t, err)
	require.NoError(t, runStatus(context.Background(), f))
	require.NoError(t, f.Close())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"phase": "ready"`)
	assert.Contains(t, string(data), `"body": "Mun"`)
	assert.FileExists(t, filepath.Join(dir, "save", "KRESTextures", "Mun", "Ore.png"))
}
