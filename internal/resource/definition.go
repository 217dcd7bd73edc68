package resource

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

var (
	// ErrInvalidDefinition is returned for definitions missing required fields.
	ErrInvalidDefinition = errors.New("invalid resource definition")
	// ErrInertDefinition is returned for rasterized definitions whose noise or density
	// parameters are zero. Such definitions are skipped, never generated.
	ErrInertDefinition = errors.New("inert resource definition")
)

// Definition is the authored, immutable description of one resource on one body.
type Definition struct {
	Name string
	Type Type

	// Density is the target density, nominally in [0, 1].
	Density float64

	// Noise shape, only meaningful for rasterized types.
	Octaves     int
	Persistence float64
	Frequency   float64
	Seed        int64

	// Altitude band in metres; NaN leaves that side unbounded.
	MinAltitude float64
	MaxAltitude float64

	Biomes         []string
	ExcludedBiomes []string
}

// NewDefinition returns a definition with an unbounded altitude band.
func NewDefinition(name string, t Type) Definition {
	return Definition{
		Name:        name,
		Type:        t,
		MinAltitude: math.NaN(),
		MaxAltitude: math.NaN(),
	}
}

// Validate checks that the definition can be used. Rasterized definitions with a zero
// density, octave count, persistence or frequency are reported as inert.
func (d Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidDefinition)
	}
	if d.Type.Rasterized() {
		if d.Density == 0 || d.Octaves == 0 || d.Persistence == 0 || d.Frequency == 0 {
			return fmt.Errorf("%w: %s (density=%g octaves=%d persistence=%g frequency=%g)",
				ErrInertDefinition, d.Name, d.Density, d.Octaves, d.Persistence, d.Frequency)
		}
	}
	if !math.IsNaN(d.MinAltitude) && !math.IsNaN(d.MaxAltitude) && d.MinAltitude > d.MaxAltitude {
		return fmt.Errorf("%w: %s altitude band [%g, %g] is empty", ErrInvalidDefinition, d.Name, d.MinAltitude, d.MaxAltitude)
	}
	return nil
}

// HasAltitudeBand reports whether either side of the altitude band is set.
func (d Definition) HasAltitudeBand() bool {
	return !math.IsNaN(d.MinAltitude) || !math.IsNaN(d.MaxAltitude)
}

// InAltitudeBand reports whether alt lies inside the band. Unset sides never exclude.
func (d Definition) InAltitudeBand(alt float64) bool {
	if !math.IsNaN(d.MinAltitude) && alt < d.MinAltitude {
		return false
	}
	if !math.IsNaN(d.MaxAltitude) && alt > d.MaxAltitude {
		return false
	}
	return true
}

// HasBiomeFilter reports whether biome lookups are needed at all.
func (d Definition) HasBiomeFilter() bool {
	return len(d.Biomes) > 0 || len(d.ExcludedBiomes) > 0
}

// BiomeAllowed applies the allow list (empty allows all) and then the deny list.
func (d Definition) BiomeAllowed(biome string) bool {
	if len(d.Biomes) > 0 && !slices.Contains(d.Biomes, biome) {
		return false
	}
	return !slices.Contains(d.ExcludedBiomes, biome)
}
