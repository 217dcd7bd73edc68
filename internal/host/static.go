package host

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kres-mod/kres/internal/resource"
	"github.com/spf13/viper"
)

// ErrUnknownVessel is returned when a static host has no vessel by that name.
var ErrUnknownVessel = errors.New("unknown vessel")

// BiomeBand assigns a biome to a latitude range, inclusive on both ends.
type BiomeBand struct {
	Name   string  `mapstructure:"name"`
	MinLat float64 `mapstructure:"minLat"`
	MaxLat float64 `mapstructure:"maxLat"`
}

// BodySpec is the static description of one body.
type BodySpec struct {
	Name                  string `mapstructure:"name"`
	resource.Capabilities `mapstructure:",squash"`
	Biomes                []BiomeBand `mapstructure:"biomes"`
	DefaultBiome          string      `mapstructure:"defaultBiome"`
}

// VesselSpec is the static description of one vessel.
type VesselSpec struct {
	Name      string             `mapstructure:"name"`
	Body      string             `mapstructure:"body"`
	Altitude  float64            `mapstructure:"altitude"`
	Pressure  float64            `mapstructure:"pressure"`
	Splashed  bool               `mapstructure:"splashed"`
	Resources map[string]float64 `mapstructure:"resources"`
}

// Description is the on-disk layout of a static host file.
type Description struct {
	Bodies  []BodySpec   `mapstructure:"bodies"`
	Vessels []VesselSpec `mapstructure:"vessels"`
}

// Static is an Environment backed by a fixed description, used by the CLI and tests.
type Static struct {
	bodies       map[string]BodySpec
	vessels      map[string]VesselSpec
	heightmapDir string
	heightmaps   map[string]*Heightmap
	logger       *slog.Logger
}

// NewStatic builds an environment from a description. Heightmaps are looked up
// lazily as <heightmapDir>/<body>_raw.bin; an empty dir disables them.
func NewStatic(desc Description, heightmapDir string, logger *slog.Logger) *Static {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Static{
		bodies:       make(map[string]BodySpec, len(desc.Bodies)),
		vessels:      make(map[string]VesselSpec, len(desc.Vessels)),
		heightmapDir: heightmapDir,
		heightmaps:   make(map[string]*Heightmap),
		logger:       logger,
	}
	for _, b := range desc.Bodies {
		s.bodies[b.Name] = b
	}
	for _, v := range desc.Vessels {
		s.vessels[v.Name] = v
	}
	return s
}

// LoadStatic reads a host description file (any format viper understands).
func LoadStatic(path, heightmapDir string, logger *slog.Logger) (*Static, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading host file: %w", err)
	}
	var desc Description
	if err := v.Unmarshal(&desc); err != nil {
		return nil, fmt.Errorf("error decoding host file: %w", err)
	}
	return NewStatic(desc, heightmapDir, logger), nil
}

func (s *Static) Bodies() []string {
	out := make([]string, 0, len(s.bodies))
	for name := range s.bodies {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s *Static) Capabilities(body string) (resource.Capabilities, bool) {
	b, ok := s.bodies[body]
	return b.Capabilities, ok
}

func (s *Static) Biome(body string, lat, _ float64) string {
	b, ok := s.bodies[body]
	if !ok {
		return ""
	}
	for _, band := range b.Biomes {
		if lat >= band.MinLat && lat <= band.MaxLat {
			return band.Name
		}
	}
	return b.DefaultBiome
}

// SetHeightmap installs a heightmap directly, bypassing the directory lookup.
func (s *Static) SetHeightmap(body string, m *Heightmap) {
	s.heightmaps[body] = m
}

func (s *Static) AltitudeMap(body string) (AltitudeMap, bool) {
	if m, ok := s.heightmaps[body]; ok {
		return m, m != nil
	}
	if s.heightmapDir == "" {
		return nil, false
	}

	path := filepath.Join(s.heightmapDir, body+"_raw.bin")
	m, err := LoadHeightmap(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Failed to read heightmap", "body", body, "path", path, "error", err)
		}
		s.heightmaps[body] = nil
		return nil, false
	}
	s.heightmaps[body] = m
	return m, true
}

// Vessel returns a mutable vessel built from the description.
func (s *Static) Vessel(name string) (*StaticVessel, error) {
	spec, ok := s.vessels[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVessel, name)
	}
	return NewStaticVessel(spec), nil
}

// VesselNames lists the described vessels, sorted.
func (s *Static) VesselNames() []string {
	out := make([]string, 0, len(s.vessels))
	for name := range s.vessels {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// StaticVessel is a Vessel whose position is set by hand and whose consumables
// live in a map.
type StaticVessel struct {
	name   string
	state  VesselState
	stores map[string]float64
}

// NewStaticVessel copies the spec into a fresh vessel.
func NewStaticVessel(spec VesselSpec) *StaticVessel {
	stores := make(map[string]float64, len(spec.Resources))
	for k, v := range spec.Resources {
		stores[strings.ToLower(k)] = v
	}
	return &StaticVessel{
		name: spec.Name,
		state: VesselState{
			Body:     spec.Body,
			Altitude: spec.Altitude,
			Pressure: spec.Pressure,
			Splashed: spec.Splashed,
		},
		stores: stores,
	}
}

func (v *StaticVessel) Name() string { return v.name }

func (v *StaticVessel) State() VesselState {
	st := v.state
	if st.Pressure < 1e-6 {
		st.Pressure = 0
	}
	return st
}

// SetState moves the vessel.
func (v *StaticVessel) SetState(st VesselState) {
	v.state = st
}

// Consumable names are matched case-insensitively.
func (v *StaticVessel) Request(name string, amount float64) float64 {
	name = strings.ToLower(name)
	have := v.stores[name]
	if amount < 0 {
		v.stores[name] = have - amount
		return amount
	}
	taken := math.Min(have, amount)
	v.stores[name] = have - taken
	return taken
}

// Amount reports the stored quantity of a consumable.
func (v *StaticVessel) Amount(name string) float64 {
	return v.stores[strings.ToLower(name)]
}
