package noise

import (
	"math"
	"math/rand/v2"
	"sort"
)

// DefaultCalibrationSamples is the size of the empirical distribution table.
const DefaultCalibrationSamples = 4096

// Normalized maps a Field onto [0, 1] through the empirical distribution of the field
// sampled on a sphere, so that the fraction of points above 1-t is close to t.
//
// The calibration points are drawn from a generator seeded with the field seed, which
// keeps the mapping bit-reproducible for identical parameters.
//
// The range is [0, 1], not [0, 2]: with density = Value - 1 + target, exactly the
// points ranked above 1-target get positive density, so coverage tracks target.
type Normalized struct {
	field Field
	table []float64
}

// Normalize calibrates f on a sphere of the given radius centred at the origin.
func Normalize(f Field, seed int64, radius float64, samples int) *Normalized {
	if samples < 2 {
		samples = DefaultCalibrationSamples
	}

	rng := rand.New(rand.NewPCG(uint64(seed), 0x6b726573))
	table := make([]float64, samples)
	for i := range table {
		// uniform on the sphere: z uniform in [-1, 1], azimuth uniform
		z := rng.Float64()*2 - 1
		a := rng.Float64() * 2 * math.Pi
		r := math.Sqrt(1 - z*z)
		table[i] = f.Sample(radius*r*math.Cos(a), radius*r*math.Sin(a), radius*z)
	}
	sort.Float64s(table)

	return &Normalized{field: f, table: table}
}

// NewNormalized builds and calibrates a field in one call.
func NewNormalized(kind Kind, p Params, radius float64) (*Normalized, error) {
	f, err := New(kind, p)
	if err != nil {
		return nil, err
	}
	return Normalize(f, p.Seed, radius, DefaultCalibrationSamples), nil
}

// Value returns the normalised noise at the point, in [0, 1].
func (n *Normalized) Value(x, y, z float64) float64 {
	return n.rank(n.field.Sample(x, y, z))
}

// Raw exposes the underlying field value in [-1, 1].
func (n *Normalized) Raw(x, y, z float64) float64 {
	return n.field.Sample(x, y, z)
}

func (n *Normalized) rank(v float64) float64 {
	last := len(n.table) - 1
	if v <= n.table[0] {
		return 0
	}
	if v >= n.table[last] {
		return 1
	}

	i := sort.SearchFloat64s(n.table, v)
	lo, hi := n.table[i-1], n.table[i]
	frac := 0.0
	if hi > lo {
		frac = (v - lo) / (hi - lo)
	}
	return (float64(i-1) + frac) / float64(last)
}
