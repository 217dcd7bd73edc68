// Package memory implements storage.Backend with plain maps. Nothing survives
// Close; it backs tests and throwaway sessions.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/kres-mod/kres/internal/model"
	"github.com/kres-mod/kres/internal/storage"
)

type bodyKey struct {
	Type, Body string
}

type itemKey struct {
	Type, Body, Name string
}

// Backend stores save state in memory
type Backend struct {
	info   *model.SaveInfo
	bodies map[bodyKey]model.DataBody
	items  map[itemKey]model.ResourceItem

	runs   []model.GenerationRun
	probes []model.ProbeReport

	mu sync.RWMutex
}

// New creates a new memory backend
func New() *Backend {
	return &Backend{
		bodies: make(map[bodyKey]model.DataBody),
		items:  make(map[itemKey]model.ResourceItem),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

func (b *Backend) LoadSaveInfo(_ context.Context) (*model.SaveInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.info == nil {
		return nil, storage.ErrNotFound
	}
	info := *b.info
	return &info, nil
}

func (b *Backend) StoreSaveInfo(_ context.Context, info *model.SaveInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	stored := *info
	stored.ID = model.SaveInfoID
	b.info = &stored
	return nil
}

func (b *Backend) LoadDataBodies(_ context.Context) ([]model.DataBody, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.DataBody, 0, len(b.bodies))
	for _, row := range b.bodies {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Body < out[j].Body
	})
	return out, nil
}

func (b *Backend) UpsertDataBodies(_ context.Context, rows []model.DataBody) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, row := range rows {
		b.bodies[bodyKey{row.Type, row.Body}] = row
	}
	return nil
}

func (b *Backend) ReplaceDataBodies(_ context.Context, rows []model.DataBody) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bodies = make(map[bodyKey]model.DataBody, len(rows))
	for _, row := range rows {
		b.bodies[bodyKey{row.Type, row.Body}] = row
	}
	return nil
}

func (b *Backend) LoadResourceItems(_ context.Context) ([]model.ResourceItem, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.ResourceItem, 0, len(b.items))
	for _, row := range b.items {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		a, c := out[i], out[j]
		if a.Type != c.Type {
			return a.Type < c.Type
		}
		if a.Body != c.Body {
			return a.Body < c.Body
		}
		return a.Name < c.Name
	})
	return out, nil
}

func (b *Backend) UpsertResourceItems(_ context.Context, rows []model.ResourceItem) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, row := range rows {
		b.items[itemKey{row.Type, row.Body, row.Name}] = row
	}
	return nil
}

// RecordGenerationRun keeps the run in the in-memory history.
func (b *Backend) RecordGenerationRun(run *model.GenerationRun) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.runs = append(b.runs, *run)
	return nil
}

// RecordProbe keeps the probe in the in-memory history.
func (b *Backend) RecordProbe(report *model.ProbeReport) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probes = append(b.probes, *report)
	return nil
}

// GenerationRuns returns a copy of the recorded runs.
func (b *Backend) GenerationRuns() []model.GenerationRun {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]model.GenerationRun(nil), b.runs...)
}

// Probes returns a copy of the recorded probes.
func (b *Backend) Probes() []model.ProbeReport {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]model.ProbeReport(nil), b.probes...)
}
