// Package databody tracks scan convergence per resource type and body. Every
// sensor of a type on a body shares one entry.
package databody

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/kres-mod/kres/internal/host"
	"github.com/kres-mod/kres/internal/model"
	"github.com/kres-mod/kres/internal/resource"
	"github.com/kres-mod/kres/internal/storage"
)

// ErrMissingEntry is returned when no entry exists for a (type, body) pair.
var ErrMissingEntry = errors.New("no data body entry")

// InitialError is the convergence error of an unscanned body.
const InitialError = 1.0

// Key identifies one entry.
type Key struct {
	Type resource.Type
	Body string
}

func (k Key) String() string {
	return k.Type.String() + "/" + k.Body
}

// Entry is one (type, body) convergence value.
type Entry struct {
	Key
	CurrentError float64
}

// ExpectedKeys lists every (type, body) pair the environment can hold, sorted.
func ExpectedKeys(env host.Environment) []Key {
	var keys []Key
	for _, t := range resource.Types {
		for _, body := range host.RelevantBodies(env, t) {
			keys = append(keys, Key{Type: t, Body: body})
		}
	}
	return keys
}

// Store holds the entries in memory and persists them through a storage backend.
type Store struct {
	backend storage.Backend
	logger  *slog.Logger

	mu      sync.RWMutex
	entries map[Key]float64
	touched map[Key]struct{}
}

// NewStore creates an empty store.
func NewStore(backend storage.Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		backend: backend,
		logger:  logger,
		entries: make(map[Key]float64),
		touched: make(map[Key]struct{}),
	}
}

// Load reads the persisted entries. If any expected key is missing, the whole
// store is rebuilt with every expected key at InitialError and the rebuild is
// persisted; rebuilt reports whether that happened.
func (s *Store) Load(ctx context.Context, expected []Key) (rebuilt bool, err error) {
	rows, err := s.backend.LoadDataBodies(ctx)
	if err != nil {
		return false, fmt.Errorf("load data bodies: %w", err)
	}

	loaded := make(map[Key]float64, len(rows))
	for _, row := range rows {
		t, err := resource.ParseType(row.Type)
		if err != nil {
			s.logger.Warn("Ignoring data body with unknown type", "type", row.Type, "body", row.Body)
			continue
		}
		loaded[Key{Type: t, Body: row.Body}] = row.CurrentError
	}

	var missing []string
	for _, k := range expected {
		if _, ok := loaded[k]; !ok {
			missing = append(missing, k.String())
		}
	}

	if len(missing) == 0 {
		s.mu.Lock()
		s.entries = loaded
		s.touched = make(map[Key]struct{})
		s.mu.Unlock()
		return false, nil
	}

	s.logger.Warn("Data bodies missing, resetting all scan progress", "missing", missing)
	return true, s.Reset(ctx, expected)
}

// Reset replaces every entry with the expected keys at InitialError.
func (s *Store) Reset(ctx context.Context, expected []Key) error {
	fresh := make(map[Key]float64, len(expected))
	rows := make([]model.DataBody, 0, len(expected))
	now := time.Now()
	for _, k := range expected {
		fresh[k] = InitialError
		rows = append(rows, model.DataBody{Type: k.Type.String(), Body: k.Body, CurrentError: InitialError, UpdatedAt: now})
	}

	if err := s.backend.ReplaceDataBodies(ctx, rows); err != nil {
		return fmt.Errorf("reset data bodies: %w", err)
	}

	s.mu.Lock()
	s.entries = fresh
	s.touched = make(map[Key]struct{})
	s.mu.Unlock()
	return nil
}

// Get returns the current error of an entry.
func (s *Store) Get(k Key) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[k]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingEntry, k)
	}
	return v, nil
}

// Set updates an entry in memory and marks it for the next Save.
func (s *Store) Set(k Key, currentError float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[k] = currentError
	s.touched[k] = struct{}{}
}

// Touched reports how many entries changed since the last Save.
func (s *Store) Touched() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.touched)
}

// Save writes the entries changed since the last Save.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	rows := make([]model.DataBody, 0, len(s.touched))
	now := time.Now()
	for k := range s.touched {
		rows = append(rows, model.DataBody{Type: k.Type.String(), Body: k.Body, CurrentError: s.entries[k], UpdatedAt: now})
	}
	pending := s.touched
	s.touched = make(map[Key]struct{})
	s.mu.Unlock()

	if len(rows) == 0 {
		return nil
	}
	if err := s.backend.UpsertDataBodies(ctx, rows); err != nil {
		// keep them pending for the next attempt
		s.mu.Lock()
		for k := range pending {
			s.touched[k] = struct{}{}
		}
		s.mu.Unlock()
		return fmt.Errorf("save data bodies: %w", err)
	}
	return nil
}

// Entries returns every entry sorted by type then body.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.entries))
	for k, v := range s.entries {
		out = append(out, Entry{Key: k, CurrentError: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Body < out[j].Body
	})
	return out
}
