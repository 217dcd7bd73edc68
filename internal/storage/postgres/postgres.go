// Package postgres implements storage.Backend on PostgreSQL by wrapping the GORM
// backend. It only adds connection setup; an injected DB skips it.
package postgres

import (
	"fmt"
	"log/slog"

	"github.com/kres-mod/kres/internal/database"
	gormstorage "github.com/kres-mod/kres/internal/storage/gorm"
	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the Postgres storage backend.
type Dependencies struct {
	Config database.PostgresConfig
	// DB, when set, is used instead of dialing Config.
	DB     *gorm.DB
	Logger *slog.Logger
}

// Backend wraps the GORM backend for Postgres connection handling.
type Backend struct {
	*gormstorage.Backend
	deps Dependencies
}

// New creates a new Postgres storage backend. No connection is made until Init.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Backend{deps: deps}
}

// Init connects if needed, then migrates and starts the embedded backend.
func (b *Backend) Init() error {
	db := b.deps.DB
	if db == nil {
		var err error
		db, err = database.GetPostgresDB(b.deps.Config)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		b.deps.Logger.Info("Connected to Postgres", "host", b.deps.Config.Host, "database", b.deps.Config.Database)
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{DB: db, Logger: b.deps.Logger})
	return b.Backend.Init()
}

// Close stops the embedded backend.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	return b.Backend.Close()
}
