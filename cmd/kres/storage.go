package main

import (
	"fmt"
	"path/filepath"

	"github.com/kres-mod/kres/internal/config"
	"github.com/kres-mod/kres/internal/database"
	"github.com/kres-mod/kres/internal/storage"
	filestorage "github.com/kres-mod/kres/internal/storage/file"
	"github.com/kres-mod/kres/internal/storage/memory"
	pgstorage "github.com/kres-mod/kres/internal/storage/postgres"
	sqlitestorage "github.com/kres-mod/kres/internal/storage/sqlite"
)

func initStorage(saveDir string) error {
	storageCfg := config.GetStorageConfig()

	backend, err := createStorageBackend(storageCfg, saveDir)
	if err != nil {
		Logger.Error("Failed to create storage backend", "error", err)
		return err
	}
	if err := backend.Init(); err != nil {
		Logger.Error("Failed to initialize storage backend", "error", err)
		return err
	}
	storageBackend = backend
	return nil
}

func createStorageBackend(storageCfg config.StorageConfig, saveDir string) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		// Postgres falls back to a SQLite file in the save when unreachable.
		dbCfg := config.GetDBConfig()
		dbm := database.NewManager(ZLogger)
		err := dbm.Connect(database.PostgresConfig{
			Host:     dbCfg.Host,
			Port:     dbCfg.Port,
			Username: dbCfg.Username,
			Password: dbCfg.Password,
			Database: dbCfg.Database,
		}, filepath.Join(saveDir, storageCfg.SQLite.Path))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if dbm.IsLocal {
			Logger.Warn("Postgres unreachable, using local SQLite", "path", storageCfg.SQLite.Path)
		}
		Logger.Info("Postgres storage backend initialized")
		return pgstorage.New(pgstorage.Dependencies{DB: dbm.DB, Logger: Logger}), nil

	case "sqlite":
		// An empty path keeps the database in memory with periodic dumps into the save.
		cfg := sqlitestorage.Config{
			DumpInterval: storageCfg.SQLite.DumpInterval,
			DumpPath:     filepath.Join(saveDir, "kres_dump.db"),
		}
		if storageCfg.SQLite.Path != "" {
			cfg.Path = filepath.Join(saveDir, storageCfg.SQLite.Path)
		}
		backend, err := sqlitestorage.New(cfg, Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		Logger.Info("SQLite storage backend initialized")
		return backend, nil

	case "memory":
		Logger.Info("Memory storage backend initialized")
		return memory.New(), nil

	default:
		path := filepath.Join(saveDir, storageCfg.File.Name)
		Logger.Info("File storage backend initialized", "path", path)
		return filestorage.New(filestorage.Config{Path: path}), nil
	}
}
