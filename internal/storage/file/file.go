// Package filestorage implements storage.Backend on a single TOML document:
//
//	[save]
//	pack = "Default"
//	generated = true
//
//	[data.ore.Kerbin]
//	currentError = 0.42
//
//	[items.ore.Kerbin.Karbonite]
//	actualDensity = 0.39
//	actualError = -0.12
//
// Every mutation rewrites the whole file through a temp file and a rename.
package filestorage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/kres-mod/kres/internal/model"
	"github.com/kres-mod/kres/internal/storage"
	"github.com/pelletier/go-toml/v2"
)

// Config holds configuration for the file storage backend.
type Config struct {
	Path string
}

type saveSection struct {
	Pack      string    `toml:"pack"`
	Generated bool      `toml:"generated"`
	MapWidth  int       `toml:"mapWidth,omitempty"`
	MapHeight int       `toml:"mapHeight,omitempty"`
	UpdatedAt time.Time `toml:"updatedAt,omitempty"`
}

type dataEntry struct {
	CurrentError float64   `toml:"currentError"`
	UpdatedAt    time.Time `toml:"updatedAt,omitempty"`
}

type itemEntry struct {
	ActualDensity float64   `toml:"actualDensity"`
	ActualError   float64   `toml:"actualError"`
	UpdatedAt     time.Time `toml:"updatedAt,omitempty"`
}

// document is keyed type -> body (-> resource name).
type document struct {
	Save  *saveSection                               `toml:"save,omitempty"`
	Data  map[string]map[string]dataEntry            `toml:"data,omitempty"`
	Items map[string]map[string]map[string]itemEntry `toml:"items,omitempty"`
}

// Backend keeps the document in memory and mirrors it to disk.
type Backend struct {
	cfg Config
	doc document
	mu  sync.Mutex
}

// New creates a file backend. Nothing is read until Init.
func New(cfg Config) *Backend {
	return &Backend{cfg: cfg}
}

// Init reads the document if it exists. A missing file is an empty save.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.doc = document{}
	raw, err := os.ReadFile(b.cfg.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", b.cfg.Path, err)
	}
	if err := toml.Unmarshal(raw, &b.doc); err != nil {
		return fmt.Errorf("parse %s: %w", b.cfg.Path, err)
	}
	return nil
}

// Close writes nothing; every mutation is already on disk.
func (b *Backend) Close() error {
	return nil
}

func (b *Backend) LoadSaveInfo(_ context.Context) (*model.SaveInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.doc.Save == nil {
		return nil, storage.ErrNotFound
	}
	s := b.doc.Save
	return &model.SaveInfo{
		ID:        model.SaveInfoID,
		Pack:      s.Pack,
		Generated: s.Generated,
		MapWidth:  s.MapWidth,
		MapHeight: s.MapHeight,
		UpdatedAt: s.UpdatedAt,
	}, nil
}

func (b *Backend) StoreSaveInfo(_ context.Context, info *model.SaveInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.doc.Save = &saveSection{
		Pack:      info.Pack,
		Generated: info.Generated,
		MapWidth:  info.MapWidth,
		MapHeight: info.MapHeight,
		UpdatedAt: stamp(info.UpdatedAt),
	}
	return b.flush()
}

func (b *Backend) LoadDataBodies(_ context.Context) ([]model.DataBody, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []model.DataBody
	for _, typ := range sortedKeys(b.doc.Data) {
		bodies := b.doc.Data[typ]
		for _, body := range sortedKeys(bodies) {
			e := bodies[body]
			out = append(out, model.DataBody{Type: typ, Body: body, CurrentError: e.CurrentError, UpdatedAt: e.UpdatedAt})
		}
	}
	return out, nil
}

func (b *Backend) UpsertDataBodies(_ context.Context, rows []model.DataBody) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.putDataBodies(rows)
	return b.flush()
}

func (b *Backend) ReplaceDataBodies(_ context.Context, rows []model.DataBody) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.doc.Data = nil
	b.putDataBodies(rows)
	return b.flush()
}

func (b *Backend) putDataBodies(rows []model.DataBody) {
	if b.doc.Data == nil {
		b.doc.Data = make(map[string]map[string]dataEntry)
	}
	for _, row := range rows {
		bodies := b.doc.Data[row.Type]
		if bodies == nil {
			bodies = make(map[string]dataEntry)
			b.doc.Data[row.Type] = bodies
		}
		bodies[row.Body] = dataEntry{CurrentError: row.CurrentError, UpdatedAt: stamp(row.UpdatedAt)}
	}
}

func (b *Backend) LoadResourceItems(_ context.Context) ([]model.ResourceItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []model.ResourceItem
	for _, typ := range sortedKeys(b.doc.Items) {
		bodies := b.doc.Items[typ]
		for _, body := range sortedKeys(bodies) {
			items := bodies[body]
			for _, name := range sortedKeys(items) {
				e := items[name]
				out = append(out, model.ResourceItem{
					Type:          typ,
					Body:          body,
					Name:          name,
					ActualDensity: e.ActualDensity,
					ActualError:   e.ActualError,
					UpdatedAt:     e.UpdatedAt,
				})
			}
		}
	}
	return out, nil
}

func (b *Backend) UpsertResourceItems(_ context.Context, rows []model.ResourceItem) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.doc.Items == nil {
		b.doc.Items = make(map[string]map[string]map[string]itemEntry)
	}
	for _, row := range rows {
		bodies := b.doc.Items[row.Type]
		if bodies == nil {
			bodies = make(map[string]map[string]itemEntry)
			b.doc.Items[row.Type] = bodies
		}
		items := bodies[row.Body]
		if items == nil {
			items = make(map[string]itemEntry)
			bodies[row.Body] = items
		}
		items[row.Name] = itemEntry{ActualDensity: row.ActualDensity, ActualError: row.ActualError, UpdatedAt: stamp(row.UpdatedAt)}
	}
	return b.flush()
}

// flush must be called with mu held.
func (b *Backend) flush() error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(b.doc); err != nil {
		return fmt.Errorf("encode save: %w", err)
	}

	dir := filepath.Dir(b.cfg.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create save dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".save-*")
	if err != nil {
		return fmt.Errorf("create save: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write save: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close save: %w", err)
	}
	return os.Rename(tmp.Name(), b.cfg.Path)
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC().Truncate(time.Second)
	}
	return t.UTC().Truncate(time.Second)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
