// Package noise provides seeded 3-D fractal noise fields and a normaliser that maps
// their output onto [0, 1] with a uniform distribution.
package noise

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/aquilax/go-perlin"
	opensimplex "github.com/ojrac/opensimplex-go"
)

// ErrUnknownKind is returned for an unsupported noise backend name.
var ErrUnknownKind = errors.New("unknown noise kind")

// Kind selects the gradient noise backend.
type Kind string

const (
	KindSimplex Kind = "simplex"
	KindPerlin  Kind = "perlin"
)

// ParseKind converts a configuration value into a Kind. Empty selects simplex.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case "", KindSimplex:
		return KindSimplex, nil
	case KindPerlin:
		return KindPerlin, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Params shape a fractal noise field.
type Params struct {
	Seed        int64
	Octaves     int
	Persistence float64
	Frequency   float64
}

// Field is a deterministic 3-D noise function. Sample returns values in [-1, 1].
type Field interface {
	Sample(x, y, z float64) float64
}

// New builds a raw fractal field of the given kind.
func New(kind Kind, p Params) (Field, error) {
	if p.Octaves <= 0 {
		return nil, fmt.Errorf("noise: octaves must be positive, got %d", p.Octaves)
	}
	switch kind {
	case KindSimplex, "":
		return &simplexField{noise: opensimplex.New(p.Seed), params: p}, nil
	case KindPerlin:
		return newPerlinField(p), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

type simplexField struct {
	noise  opensimplex.Noise
	params Params
}

// Sample sums the octaves and divides by the total amplitude.
func (f *simplexField) Sample(x, y, z float64) float64 {
	total := 0.0
	maxVal := 0.0
	amplitude := 1.0
	frequency := f.params.Frequency

	for i := 0; i < f.params.Octaves; i++ {
		total += f.noise.Eval3(x*frequency, y*frequency, z*frequency) * amplitude
		maxVal += math.Abs(amplitude)
		amplitude *= f.params.Persistence
		frequency *= 2
	}
	if maxVal == 0 {
		return 0
	}
	return clampUnit(total / maxVal)
}

// perlinField wraps go-perlin, whose alpha divides the amplitude per octave.
type perlinField struct {
	perlin    *perlin.Perlin
	frequency float64
	scale     float64
}

func newPerlinField(p Params) *perlinField {
	alpha := 2.0
	if p.Persistence != 0 {
		alpha = 1 / math.Abs(p.Persistence)
	}

	// go-perlin sums noise/alpha^i, so the bound is the geometric sum of those weights
	scale := 0.0
	weight := 1.0
	for i := 0; i < p.Octaves; i++ {
		scale += weight
		weight /= alpha
	}

	return &perlinField{
		perlin:    perlin.NewPerlin(alpha, 2, int32(p.Octaves), p.Seed),
		frequency: p.Frequency,
		scale:     scale,
	}
}

func (f *perlinField) Sample(x, y, z float64) float64 {
	v := f.perlin.Noise3D(x*f.frequency, y*f.frequency, z*f.frequency)
	if f.scale == 0 {
		return 0
	}
	return clampUnit(v / f.scale)
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
