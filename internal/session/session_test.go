package session

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/kres-mod/kres/internal/databody"
	"github.com/kres-mod/kres/internal/defaults"
	"github.com/kres-mod/kres/internal/generator"
	"github.com/kres-mod/kres/internal/host"
	"github.com/kres-mod/kres/internal/raster"
	"github.com/kres-mod/kres/internal/resource"
	"github.com/kres-mod/kres/internal/scanner"
	"github.com/kres-mod/kres/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMap = generator.Options{Width: 36, Height: 18, RowsPerSlice: 6}

type pointSink struct {
	mu     sync.Mutex
	points []*influxdb2_write.Point
}

func (p *pointSink) WritePoint(point *influxdb2_write.Point) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.points = append(p.points, point)
	return nil
}

func (p *pointSink) count(measurement string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, pt := range p.points {
		if pt.Name() == measurement {
			n++
		}
	}
	return n
}

func def(name string, t resource.Type, density float64) resource.Definition {
	d := resource.NewDefinition(name, t)
	d.Density = density
	d.Octaves, d.Persistence, d.Frequency = 3, 0.5, 1
	d.Seed = 42
	return d
}

func testLibrary() *defaults.Library {
	return defaults.NewLibrary(
		&defaults.Pack{
			Name: "Default",
			Bodies: []defaults.Body{
				{Name: "Kerbin", Resources: []resource.Definition{
					def("Karbonite", resource.Mineral, 0.4),
					def("Argon", resource.Gaseous, 0.5),
					def("Water", resource.Liquid, 0.9),
				}},
				{Name: "Mun", Resources: []resource.Definition{def("Karbonite", resource.Mineral, 0.4)}},
			},
		},
		&defaults.Pack{Name: "Other", Bodies: []defaults.Body{
			{Name: "Mun", Resources: []resource.Definition{def("Ore", resource.Mineral, 0.2)}},
		}},
	)
}

func testEnv() *host.Static {
	return host.NewStatic(host.Description{Bodies: []host.BodySpec{
		{Name: "Kerbin", Capabilities: resource.Capabilities{Surface: true, Atmosphere: true, Ocean: true}},
		{Name: "Mun", Capabilities: resource.Capabilities{Surface: true}},
	}}, "", nil)
}

func open(t *testing.T, dir string, backend *memory.Backend, points PointWriter, pack string) *Session {
	t.Helper()
	deps := Dependencies{Env: testEnv(), Library: testLibrary(), Backend: backend}
	if points != nil {
		deps.Points = points
	}
	s, err := Open(context.Background(), deps, Config{SaveDir: dir, Pack: pack, Map: testMap, Seed: 7})
	require.NoError(t, err)
	return s
}

func ready(t *testing.T, s *Session) {
	t.Helper()
	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, Ready, s.Phase())
}

func TestSession_StartupPhases(t *testing.T) {
	dir := t.TempDir()
	backend := memory.New()
	sink := &pointSink{}
	s := open(t, dir, backend, sink, "")

	assert.Equal(t, Generating, s.Phase())
	assert.Equal(t, 0.0, s.Progress())
	_, err := s.NewSensor(scanner.DefaultConfig(resource.Mineral), host.NewStaticVessel(host.VesselSpec{Name: "Probe"}))
	assert.ErrorIs(t, err, ErrNotReady)

	ctx := context.Background()
	var phases []Phase
	for s.Phase() != Ready {
		p, err := s.Tick(ctx)
		require.NoError(t, err)
		if len(phases) == 0 || phases[len(phases)-1] != p {
			phases = append(phases, p)
		}
		require.LessOrEqual(t, s.Progress(), 1.0)
	}
	assert.Equal(t, []Phase{Generating, Loading, Ready}, phases)
	assert.Equal(t, 1.0, s.Progress())

	assert.True(t, raster.Exists(raster.Path(dir, "Kerbin", "Karbonite")))
	assert.True(t, raster.Exists(raster.Path(dir, "Mun", "Karbonite")))
	assert.Len(t, backend.GenerationRuns(), 2)
	assert.Equal(t, 2, sink.count("kres_generation"))

	info, err := backend.LoadSaveInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Default", info.Pack)
	assert.True(t, info.Generated)
	assert.Equal(t, 36, info.MapWidth)

	cat := s.Catalogue()
	require.NotNil(t, cat)
	_, ok := cat.Item("Kerbin", "Argon", resource.Gaseous)
	assert.True(t, ok)
}

func TestSession_KeepsPackOfExistingSave(t *testing.T) {
	dir := t.TempDir()
	backend := memory.New()
	ready(t, open(t, dir, backend, nil, ""))

	again := open(t, dir, backend, nil, "Other")
	assert.Equal(t, "Default", again.Pack().Name)
	ready(t, again)
	for _, run := range backend.GenerationRuns()[2:] {
		assert.True(t, run.Skipped, "rasters already exist")
		assert.Equal(t, generator.ReasonExists, run.Reason)
	}

	fresh := open(t, t.TempDir(), memory.New(), nil, "Other")
	assert.Equal(t, "Other", fresh.Pack().Name)
}

func TestSession_ScanAndSave(t *testing.T) {
	dir := t.TempDir()
	backend := memory.New()
	sink := &pointSink{}
	s := open(t, dir, backend, sink, "")
	ready(t, s)

	vessel := host.NewStaticVessel(host.VesselSpec{
		Name: "Probe", Body: "Kerbin", Altitude: 100000,
		Resources: map[string]float64{"ElectricCharge": 1000},
	})
	cfg := scanner.DefaultConfig(resource.Mineral)
	cfg.Inputs = []scanner.Input{{Name: "ElectricCharge", Rate: 1}}
	sensor, err := s.NewSensor(cfg, vessel)
	require.NoError(t, err)
	assert.Len(t, s.Sensors("Probe"), 1)
	assert.Empty(t, s.Sensors("Other"))
	require.NoError(t, sensor.Activate())

	ctx := context.Background()
	var res StepResult
	for i := 0; i < 120; i++ {
		res = s.Step(ctx, time.Second)
	}
	assert.Equal(t, 1, res.Scanning)
	assert.Zero(t, res.Starved)
	assert.Less(t, sensor.CurrentError(), 1.0)
	assert.GreaterOrEqual(t, sink.count("kres_scan"), 2)

	require.NoError(t, s.Save(ctx))
	rows, err := backend.LoadDataBodies(ctx)
	require.NoError(t, err)
	var found bool
	for _, r := range rows {
		if r.Type == "ore" && r.Body == "Kerbin" {
			found = true
			assert.InDelta(t, sensor.CurrentError(), r.CurrentError, 1e-12)
		}
	}
	assert.True(t, found)

	require.NoError(t, s.Reset(ctx))
	for _, e := range s.Store().Entries() {
		assert.Equal(t, databody.InitialError, e.CurrentError, e.Key.String())
	}

	assert.Equal(t, 1, s.RemoveVessel("Probe"))
	assert.Empty(t, s.Sensors(""))
}

func TestSession_ResetRearmsFinishedSensors(t *testing.T) {
	s := open(t, t.TempDir(), memory.New(), nil, "")
	ready(t, s)

	vessel := host.NewStaticVessel(host.VesselSpec{
		Name: "Probe", Body: "Kerbin", Altitude: 100000,
		Resources: map[string]float64{"ElectricCharge": 1e6},
	})
	cfg := scanner.DefaultConfig(resource.Mineral)
	cfg.ScanningSpeed = 60
	cfg.Inputs = []scanner.Input{{Name: "ElectricCharge", Rate: 1}}
	sensor, err := s.NewSensor(cfg, vessel)
	require.NoError(t, err)
	require.NoError(t, sensor.Activate())

	ctx := context.Background()
	finished := 0
	for i := 0; i < 1000 && sensor.State() == scanner.Scanning; i++ {
		finished += s.Step(ctx, time.Second).Finished
	}
	require.True(t, sensor.State().Terminal(), sensor.State().String())
	assert.Equal(t, 1, finished)
	assert.ErrorIs(t, sensor.Activate(), scanner.ErrTerminal)

	require.NoError(t, s.Reset(ctx))
	assert.Equal(t, scanner.Idle, sensor.State())
	assert.Equal(t, databody.InitialError, sensor.CurrentError())

	require.NoError(t, sensor.Activate())
	assert.Equal(t, scanner.Scanning, sensor.State())
	res := s.Step(ctx, time.Second)
	assert.Equal(t, 1, res.Scanning)
	assert.Less(t, sensor.CurrentError(), databody.InitialError)
}

func TestSession_StarvedStepsAreCounted(t *testing.T) {
	s := open(t, t.TempDir(), memory.New(), nil, "")
	ready(t, s)

	vessel := host.NewStaticVessel(host.VesselSpec{Name: "Probe", Body: "Kerbin", Altitude: 100000})
	cfg := scanner.DefaultConfig(resource.Mineral)
	cfg.Inputs = []scanner.Input{{Name: "ElectricCharge", Rate: 1}}
	sensor, err := s.NewSensor(cfg, vessel)
	require.NoError(t, err)
	require.NoError(t, sensor.Activate())

	res := s.Step(context.Background(), time.Second)
	assert.Equal(t, 1, res.Starved)
	assert.Equal(t, 1.0, sensor.CurrentError())
}

func TestSession_Probe(t *testing.T) {
	backend := memory.New()
	s := open(t, t.TempDir(), backend, nil, "")
	ready(t, s)

	res, err := s.Probe("Kerbin", "Karbonite", 10, 20)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Opacity, float32(0))
	assert.LessOrEqual(t, res.Opacity, float32(1))
	assert.True(t, strings.HasPrefix(res.Location, "POINT"))
	assert.Len(t, backend.Probes(), 1)

	_, err = s.Probe("Kerbin", "Karbonit", 10, 20)
	assert.ErrorIs(t, err, ErrUnknownResource)
	assert.Contains(t, err.Error(), `did you mean "Karbonite"`)

	_, err = s.Probe("Kerbin", "Karbonite", 95, 20)
	assert.Error(t, err)
}

func TestOpen_NoPacks(t *testing.T) {
	_, err := Open(context.Background(), Dependencies{
		Env: testEnv(), Library: defaults.NewLibrary(), Backend: memory.New(),
	}, Config{SaveDir: t.TempDir(), Map: testMap})
	assert.ErrorIs(t, err, defaults.ErrNoPacks)
}
