package main

import (
	"image/color"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/kres-mod/kres/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownsample(t *testing.T) {
	r := raster.New(4, 2)
	r.Set(0, 0, 1)
	r.Set(1, 0, 1)
	r.Set(2, 1, 0.5)

	grid := downsample(r, 2, 1)
	require.Len(t, grid, 1)
	assert.InDelta(t, 0.5, grid[0][0], 1e-6)
	assert.InDelta(t, 0.125, grid[0][1], 1e-6)

	// more cells than pixels repeats pixels
	grid = downsample(r, 8, 4)
	require.Len(t, grid, 4)
	assert.Equal(t, float32(1), grid[0][0])
	assert.Equal(t, float32(0), grid[3][7])
}

func TestShade(t *testing.T) {
	assert.Equal(t, ' ', shade(0))
	assert.Equal(t, '░', shade(0.01))
	assert.Equal(t, '▒', shade(0.3))
	assert.Equal(t, '█', shade(1))
	assert.Equal(t, '█', shade(2))
}

func TestDrawRaster(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	defer screen.Fini()
	screen.SetSize(20, 6)

	r := raster.New(40, 10)
	r.Set(0, 0, 1)
	assert.NotPanics(t, func() {
		drawRaster(screen, r, color.NRGBA{R: 200, G: 100, B: 50, A: 255}, "Kerbin / Ore")
		drawRaster(screen, r, color.NRGBA{}, "a title longer than the twenty columns")
	})
}
