package resource

import (
	"image/color"
	"math/rand/v2"
)

// DensityJitter is the relative jitter applied to the configured density of
// non-rasterized resources.
const DensityJitter = 0.03

// Item is the runtime record of one resource deposit on one body.
type Item struct {
	Name string
	Type Type

	// ActualDensity is the hidden ground-truth density in [0, 1].
	ActualDensity float64
	// ActualError is the fixed bias in [-1, 1] applied to every reading of this deposit.
	ActualError float64

	Colour color.NRGBA

	// RasterPath is set for rasterized items only.
	RasterPath string
}

// HasRaster reports whether the item owns a distribution raster.
func (i Item) HasRaster() bool {
	return i.RasterPath != ""
}

// JitterDensity returns target scaled by a random factor in [0.97, 1.03), reflected into [0, 1].
func JitterDensity(target float64, rng *rand.Rand) float64 {
	return Clamp01(target * (1 - DensityJitter + rng.Float64()*2*DensityJitter))
}

// DrawError returns a fresh error offset in [-1, 1).
func DrawError(rng *rand.Rand) float64 {
	return rng.Float64()*2 - 1
}
