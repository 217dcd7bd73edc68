package defaults

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrUnknownPack is returned when a pack name is not in the library.
	ErrUnknownPack = errors.New("unknown resource pack")
	// ErrNoPacks is returned when a library holds no packs at all.
	ErrNoPacks = errors.New("no resource packs available")
)

// DefaultPackName is selected when nothing else is requested.
const DefaultPackName = "Default"

var packExtensions = []string{".json", ".yaml", ".yml", ".toml"}

// Library holds every loaded pack in load order.
type Library struct {
	packs map[string]*Pack
	order []string
}

// NewLibrary builds a library from packs. Later packs with a duplicate name are ignored.
func NewLibrary(packs ...*Pack) *Library {
	l := &Library{packs: make(map[string]*Pack)}
	for _, p := range packs {
		l.add(p)
	}
	return l
}

func (l *Library) add(p *Pack) bool {
	if _, dup := l.packs[p.Name]; dup {
		return false
	}
	l.packs[p.Name] = p
	l.order = append(l.order, p.Name)
	return true
}

// LoadDir reads every pack file in dir, sorted by file name. Problems inside a pack
// are logged and the offending entries dropped.
func LoadDir(dir string, logger *slog.Logger) (*Library, error) {
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read defaults dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !slices.Contains(packExtensions, strings.ToLower(filepath.Ext(e.Name()))) {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	l := NewLibrary()
	for _, name := range files {
		path := filepath.Join(dir, name)
		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			logger.Warn("Failed to read resource pack", "file", path, "error", err)
			continue
		}
		pack, problems := ParsePack(v)
		for _, p := range problems {
			logger.Warn("Resource pack problem", "file", path, "error", p)
		}
		if pack == nil {
			continue
		}
		if !l.add(pack) {
			logger.Warn("Duplicate resource pack ignored", "file", path, "pack", pack.Name)
			continue
		}
		logger.Info("Loaded resource pack", "pack", pack.Name, "bodies", len(pack.Bodies))
	}
	if len(l.order) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoPacks, dir)
	}
	return l, nil
}

// Names lists the packs in load order.
func (l *Library) Names() []string {
	return slices.Clone(l.order)
}

// Pack looks up a pack by name.
func (l *Library) Pack(name string) (*Pack, error) {
	if p, ok := l.packs[name]; ok {
		return p, nil
	}
	if s := Suggest(name, l.order); s != "" {
		return nil, fmt.Errorf("%w: %q (did you mean %q?)", ErrUnknownPack, name, s)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPack, name)
}

// Select picks preferred if present, otherwise the pack named Default, otherwise
// the first pack loaded.
func (l *Library) Select(preferred string) (*Pack, error) {
	if len(l.order) == 0 {
		return nil, ErrNoPacks
	}
	if p, ok := l.packs[preferred]; ok && preferred != "" {
		return p, nil
	}
	if p, ok := l.packs[DefaultPackName]; ok {
		return p, nil
	}
	return l.packs[l.order[0]], nil
}
