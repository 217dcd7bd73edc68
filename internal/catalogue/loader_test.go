package catalogue

import (
	"context"
	"image/color"
	"math/rand/v2"
	"testing"

	"github.com/kres-mod/kres/internal/defaults"
	"github.com/kres-mod/kres/internal/host"
	"github.com/kres-mod/kres/internal/raster"
	"github.com/kres-mod/kres/internal/resource"
	"github.com/kres-mod/kres/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testW = 20
	testH = 10
)

func testEnv() host.Environment {
	return host.NewStatic(host.Description{Bodies: []host.BodySpec{
		{Name: "Kerbin", Capabilities: resource.Capabilities{Surface: true, Atmosphere: true, Ocean: true}},
		{Name: "Mun", Capabilities: resource.Capabilities{Surface: true}},
	}}, "", nil)
}

func def(name string, t resource.Type, density float64) resource.Definition {
	d := resource.NewDefinition(name, t)
	d.Density = density
	d.Octaves, d.Persistence, d.Frequency = 3, 0.5, 1
	return d
}

func testPack() *defaults.Pack {
	return &defaults.Pack{
		Name: "Default",
		Bodies: []defaults.Body{
			{Name: "Kerbin", Resources: []resource.Definition{
				def("Karbonite", resource.Mineral, 0.4),
				def("Argon", resource.Gaseous, 0.5),
				def("Water", resource.Liquid, 0.9),
				def("Missing", resource.Mineral, 0.3),
			}},
			{Name: "Mun", Resources: []resource.Definition{
				def("Karbonite", resource.Mineral, 0.4),
				def("Argon", resource.Gaseous, 0.5),
			}},
			{Name: "Nowhere", Resources: []resource.Definition{def("Karbonite", resource.Mineral, 0.4)}},
		},
		Info: map[string]defaults.ResourceInfo{"Karbonite": {Colour: color.NRGBA{R: 9, A: 255}}},
	}
}

// writeRaster stores a raster with exactly n nonzero pixels.
func writeRaster(t *testing.T, dir, body, name string, n int) {
	t.Helper()
	r := raster.New(testW, testH)
	for i := 0; i < n; i++ {
		r.Pix[i] = 0.5
	}
	require.NoError(t, raster.Save(raster.Path(dir, body, name), r, color.NRGBA{}))
}

func newLoader(dir string, backend *memory.Backend, seed uint64) *Loader {
	return NewLoader(Dependencies{
		Env:     testEnv(),
		Pack:    testPack(),
		Backend: backend,
		Rand:    rand.New(rand.NewPCG(seed, seed)),
	}, Options{SaveDir: dir, Width: testW, Height: testH})
}

func TestLoader_DerivesItems(t *testing.T) {
	dir := t.TempDir()
	writeRaster(t, dir, "Kerbin", "Karbonite", 50)
	writeRaster(t, dir, "Mun", "Karbonite", 20)
	backend := memory.New()

	l := newLoader(dir, backend, 1)
	assert.Equal(t, 0.0, l.Progress())
	cat, err := l.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.0, l.Progress())

	assert.Equal(t, []string{"Kerbin", "Mun"}, cat.Bodies())
	assert.Equal(t, 4, cat.Len(), "Kerbin ore, gas, liquid and Mun ore")

	k, ok := cat.Item("Kerbin", "Karbonite", resource.Mineral)
	require.True(t, ok)
	assert.Equal(t, 0.25, k.ActualDensity)
	assert.True(t, k.HasRaster())
	assert.Equal(t, color.NRGBA{R: 9, A: 255}, k.Colour)
	assert.GreaterOrEqual(t, k.ActualError, -1.0)
	assert.Less(t, k.ActualError, 1.0)

	m, ok := cat.Item("Mun", "Karbonite", resource.Mineral)
	require.True(t, ok)
	assert.Equal(t, 0.1, m.ActualDensity)

	argon, ok := cat.Item("Kerbin", "Argon", resource.Gaseous)
	require.True(t, ok)
	assert.InDelta(t, 0.5, argon.ActualDensity, 0.5*0.03+1e-9)
	assert.False(t, argon.HasRaster())

	_, ok = cat.Item("Mun", "Argon", resource.Gaseous)
	assert.False(t, ok, "Mun has no atmosphere")
	_, ok = cat.Item("Kerbin", "Missing", resource.Mineral)
	assert.False(t, ok, "no raster, no item")

	assert.Len(t, cat.Items("Kerbin", resource.Mineral), 1)

	rows, err := backend.LoadResourceItems(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestLoader_HiddenValuesAreStableAcrossSessions(t *testing.T) {
	dir := t.TempDir()
	writeRaster(t, dir, "Kerbin", "Karbonite", 50)
	backend := memory.New()

	first, err := newLoader(dir, backend, 1).Run(context.Background())
	require.NoError(t, err)
	// a different random source must not change anything already persisted
	second, err := newLoader(dir, backend, 99).Run(context.Background())
	require.NoError(t, err)

	for _, body := range first.Bodies() {
		for _, typ := range resource.Types {
			a := first.Items(body, typ)
			b := second.Items(body, typ)
			require.Equal(t, len(a), len(b))
			for i := range a {
				assert.Equal(t, a[i].ActualDensity, b[i].ActualDensity, a[i].Name)
				assert.Equal(t, a[i].ActualError, b[i].ActualError, a[i].Name)
			}
		}
	}
}

func TestLoader_StepsOneBodyAtATime(t *testing.T) {
	l := newLoader(t.TempDir(), memory.New(), 1)
	ctx := context.Background()

	done, err := l.Step(ctx)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, 0.0, l.Progress())

	done, err = l.Step(ctx)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, 0.5, l.Progress())

	done, err = l.Step(ctx)
	require.NoError(t, err)
	assert.True(t, done)
	assert.True(t, l.Done())
}

func TestLoader_WrongSizeRasterIsSkipped(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, raster.Save(raster.Path(dir, "Kerbin", "Karbonite"), raster.New(4, 4), color.NRGBA{}))

	cat, err := newLoader(dir, memory.New(), 1).Run(context.Background())
	require.NoError(t, err)
	_, ok := cat.Item("Kerbin", "Karbonite", resource.Mineral)
	assert.False(t, ok)
}
