// Package storage defines the persistence interface for save state. Backends live
// in the sub-packages: memory, file (TOML), sqlite and postgres.
package storage

import (
	"context"
	"errors"

	"github.com/kres-mod/kres/internal/model"
)

// ErrNotFound is returned when a save has no header yet.
var ErrNotFound = errors.New("not found")

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Save header
	LoadSaveInfo(ctx context.Context) (*model.SaveInfo, error)
	StoreSaveInfo(ctx context.Context, info *model.SaveInfo) error

	// Scan convergence per (type, body)
	LoadDataBodies(ctx context.Context) ([]model.DataBody, error)
	UpsertDataBodies(ctx context.Context, rows []model.DataBody) error
	// ReplaceDataBodies drops every stored entry and writes rows in their place.
	ReplaceDataBodies(ctx context.Context, rows []model.DataBody) error

	// Derived deposit values
	LoadResourceItems(ctx context.Context) ([]model.ResourceItem, error)
	UpsertResourceItems(ctx context.Context, rows []model.ResourceItem) error
}

// Recorder is an optional interface for backends that keep a history of
// generation runs and probe lookups.
type Recorder interface {
	RecordGenerationRun(run *model.GenerationRun) error
	RecordProbe(report *model.ProbeReport) error
}
