package scanner

import (
	"context"
	"testing"
	"time"

	"github.com/kres-mod/kres/internal/databody"
	"github.com/kres-mod/kres/internal/host"
	"github.com/kres-mod/kres/internal/resource"
	"github.com/kres-mod/kres/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeItems map[string][]resource.Item

func (f fakeItems) Items(body string, t resource.Type) []resource.Item {
	var out []resource.Item
	for _, it := range f[body] {
		if it.Type == t {
			out = append(out, it)
		}
	}
	return out
}

type fixture struct {
	env    *host.Static
	store  *databody.Store
	vessel *host.StaticVessel
	items  fakeItems
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	env := host.NewStatic(host.Description{Bodies: []host.BodySpec{
		{Name: "Kerbin", Capabilities: resource.Capabilities{Surface: true, Atmosphere: true, Ocean: true}},
		{Name: "Mun", Capabilities: resource.Capabilities{Surface: true}},
		{Name: "Jool", Capabilities: resource.Capabilities{Atmosphere: true}},
	}}, "", nil)
	store := databody.NewStore(memory.New(), nil)
	_, err := store.Load(context.Background(), databody.ExpectedKeys(env))
	require.NoError(t, err)

	vessel := host.NewStaticVessel(host.VesselSpec{
		Name:      "Probe",
		Body:      "Kerbin",
		Altitude:  100000,
		Pressure:  0.1,
		Splashed:  true,
		Resources: map[string]float64{"ElectricCharge": 1e9},
	})
	items := fakeItems{
		"Kerbin": {{Name: "Karbonite", Type: resource.Mineral, ActualDensity: 0.25, ActualError: 0.5}},
		"Mun":    {{Name: "Karbonite", Type: resource.Mineral, ActualDensity: 0.1, ActualError: -0.2}},
	}
	return &fixture{env: env, store: store, vessel: vessel, items: items}
}

func (f *fixture) sensor(t *testing.T, typ resource.Type, inputs ...Input) *Sensor {
	t.Helper()
	cfg := DefaultConfig(typ)
	if inputs == nil {
		inputs = []Input{{Name: "ElectricCharge", Rate: 1}}
	}
	cfg.Inputs = inputs
	s, err := New(cfg, Deps{Vessel: f.vessel, Env: f.env, Store: f.store, Items: f.items})
	require.NoError(t, err)
	return s
}

func TestRates_ConvergeWithoutOvershoot(t *testing.T) {
	r := NewRates(0.05, 3600)
	assert.InDelta(t, 0.045, r.B, 1e-12)

	e := 1.0
	for i := 0; i < 10000; i++ {
		next := e + r.Increment(e, 1)
		require.Less(t, next, e, "step %d", i)
		require.Greater(t, next, 0.045, "step %d", i)
		e = next
	}
	assert.InDelta(t, 0.045, e, 1e-5)
}

func TestSensor_CompletesAtMaxPrecision(t *testing.T) {
	f := newFixture(t)
	s := f.sensor(t, resource.Mineral)
	require.NoError(t, s.Activate())
	assert.Equal(t, Scanning, s.State())

	ctx := context.Background()
	prev := s.CurrentError()
	steps := 0
	for s.State() == Scanning && steps < 10000 {
		require.NoError(t, s.Step(ctx, time.Second))
		steps++
		cur := s.CurrentError()
		require.LessOrEqual(t, cur, prev)
		prev = cur
	}

	assert.Equal(t, Complete, s.State())
	assert.Equal(t, StatusComplete, s.Status())
	assert.InDelta(t, 3601, steps, 10)
	assert.Equal(t, 0.05, s.CurrentError())

	stored, err := f.store.Get(databody.Key{Type: resource.Mineral, Body: "Kerbin"})
	require.NoError(t, err)
	assert.Equal(t, 0.05, stored)
	assert.InDelta(t, 1e9-float64(steps), f.vessel.Amount("ElectricCharge"), 1e-3)

	assert.ErrorIs(t, s.Activate(), ErrTerminal)
}

func TestSensor_ReloadAfterReset(t *testing.T) {
	f := newFixture(t)
	s := f.sensor(t, resource.Mineral)
	require.NoError(t, s.Activate())

	ctx := context.Background()
	for steps := 0; s.State() == Scanning && steps < 10000; steps++ {
		require.NoError(t, s.Step(ctx, time.Second))
	}
	require.Equal(t, Complete, s.State())

	require.NoError(t, f.store.Reset(ctx, databody.ExpectedKeys(f.env)))
	s.Reload()
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, StatusIdle, s.Status())
	assert.Equal(t, databody.InitialError, s.CurrentError())

	require.NoError(t, s.Activate())
	assert.Equal(t, Scanning, s.State())
}

func TestSensor_RefusesUnsuitableEnvironment(t *testing.T) {
	f := newFixture(t)
	f.vessel.SetState(host.VesselState{Body: "Mun", Altitude: 100000})

	gas := f.sensor(t, resource.Gaseous)
	assert.ErrorIs(t, gas.Activate(), ErrEnvironment)
	assert.Equal(t, Idle, gas.State())
	assert.Equal(t, 1.0, gas.CurrentError())
	_, err := f.store.Get(databody.Key{Type: resource.Gaseous, Body: "Mun"})
	assert.ErrorIs(t, err, databody.ErrMissingEntry, "refusal must not create an entry")

	liquid := f.sensor(t, resource.Liquid)
	assert.ErrorIs(t, liquid.Activate(), ErrEnvironment)

	f.vessel.SetState(host.VesselState{Body: "Jool", Pressure: 0.5})
	ore := f.sensor(t, resource.Mineral)
	assert.ErrorIs(t, ore.Activate(), ErrEnvironment)
}

func TestSensor_NeedsInputs(t *testing.T) {
	f := newFixture(t)
	s := f.sensor(t, resource.Mineral, Input{Name: "", Rate: 1}, Input{Name: "Ore", Rate: 0})
	assert.Empty(t, s.Config().Inputs)
	assert.ErrorIs(t, s.Activate(), ErrNoInputs)
	assert.Equal(t, Idle, s.State())
}

func TestSensor_StarvationRefundsEverything(t *testing.T) {
	f := newFixture(t)
	f.vessel = host.NewStaticVessel(host.VesselSpec{
		Name: "Probe", Body: "Kerbin", Altitude: 100000,
		Resources: map[string]float64{"ElectricCharge": 100, "Xenon": 0.5},
	})
	s := f.sensor(t, resource.Mineral, Input{Name: "ElectricCharge", Rate: 1}, Input{Name: "Xenon", Rate: 1})
	require.NoError(t, s.Activate())

	err := s.Step(context.Background(), time.Second)
	assert.ErrorIs(t, err, ErrStarved)
	assert.Equal(t, Scanning, s.State())
	assert.Equal(t, StatusStarved, s.Status())
	assert.Equal(t, 1.0, s.CurrentError())
	assert.Equal(t, 100.0, f.vessel.Amount("ElectricCharge"))
	assert.Equal(t, 0.5, f.vessel.Amount("Xenon"))
}

func TestSensor_NoResourcesFound(t *testing.T) {
	f := newFixture(t)
	s := f.sensor(t, resource.Gaseous)
	require.NoError(t, s.Activate())

	ctx := context.Background()
	steps := 0
	for s.State() == Scanning && steps < 10000 {
		require.NoError(t, s.Step(ctx, time.Second))
		steps++
	}

	assert.Equal(t, NoResourcesFound, s.State())
	assert.InDelta(t, 509, steps, 5)
	assert.Equal(t, -1.0, s.CurrentError())
	stored, err := f.store.Get(databody.Key{Type: resource.Gaseous, Body: "Kerbin"})
	require.NoError(t, err)
	assert.Equal(t, -1.0, stored)
	assert.ErrorIs(t, s.Activate(), ErrTerminal)
	assert.Equal(t, "No resources detected.", s.Report().Message)
}

func TestSensor_RelocationReloadsEntry(t *testing.T) {
	f := newFixture(t)
	f.store.Set(databody.Key{Type: resource.Mineral, Body: "Mun"}, 0.3)

	s := f.sensor(t, resource.Mineral)
	require.NoError(t, s.Activate())
	require.NoError(t, s.Step(context.Background(), time.Second))
	assert.Equal(t, "Kerbin", s.Body())
	assert.Less(t, s.CurrentError(), 1.0)

	f.vessel.SetState(host.VesselState{Body: "Mun", Altitude: 100000})
	require.NoError(t, s.Step(context.Background(), time.Second))
	assert.Equal(t, "Mun", s.Body())
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, 0.3, s.CurrentError())
}

func TestSensor_SameTypeSharesEntry(t *testing.T) {
	f := newFixture(t)
	a := f.sensor(t, resource.Mineral)
	b := f.sensor(t, resource.Mineral)
	require.NoError(t, a.Activate())

	require.NoError(t, a.Step(context.Background(), time.Second))
	assert.Equal(t, a.CurrentError(), b.CurrentError())
}

func TestToggleAll(t *testing.T) {
	f := newFixture(t)
	ore1 := f.sensor(t, resource.Mineral)
	ore2 := f.sensor(t, resource.Mineral)
	gas := f.sensor(t, resource.Gaseous)
	all := []*Sensor{ore1, ore2, gas}

	require.NoError(t, ToggleAll(ore1, all))
	assert.Equal(t, Scanning, ore1.State())
	assert.Equal(t, Scanning, ore2.State())
	assert.Equal(t, Idle, gas.State())

	require.NoError(t, ToggleAll(ore2, all))
	assert.Equal(t, Idle, ore1.State())
	assert.Equal(t, Idle, ore2.State())
}

func TestKind_Fit(t *testing.T) {
	cfg := DefaultConfig(resource.Mineral)
	ore := KindFor(resource.Mineral)
	assert.Equal(t, 1.0, ore.Fit(cfg, host.VesselState{Altitude: 100000}))
	assert.InDelta(t, 0.5, ore.Fit(cfg, host.VesselState{Altitude: 100000.02}), 1e-6)

	gas := KindFor(resource.Gaseous)
	assert.Equal(t, 1.0, gas.Fit(cfg, host.VesselState{Pressure: 0.1}))
	assert.InDelta(t, 0.25, gas.Fit(cfg, host.VesselState{Pressure: 0.14}), 1e-6)

	assert.Equal(t, 1.0, KindFor(resource.Liquid).Fit(cfg, host.VesselState{}))
}

func TestSensor_Report(t *testing.T) {
	f := newFixture(t)
	key := databody.Key{Type: resource.Mineral, Body: "Kerbin"}
	s := f.sensor(t, resource.Mineral)

	f.store.Set(key, 0.9)
	rep := s.Report()
	assert.Equal(t, "Nothing to show.", rep.Message)
	assert.Empty(t, rep.Readings)
	assert.Equal(t, "± --%", rep.MaxError)

	f.store.Set(key, 0.6)
	rep = s.Report()
	require.Len(t, rep.Readings, 1)
	assert.Equal(t, "Karbonite (surface%):", rep.Readings[0].Label)
	assert.Equal(t, "-- ± --%", rep.Readings[0].String())

	f.store.Set(key, 0.4)
	rep = s.Report()
	require.Len(t, rep.Readings, 1)
	assert.Equal(t, "30.00 ± 10.00%", rep.Readings[0].String())
	assert.Equal(t, "± 40.00%", rep.MaxError)
	assert.Equal(t, "Extractable resources:", rep.Location)
}

func TestSecondsToTime(t *testing.T) {
	tests := map[float64]string{
		0:     "0s",
		59:    "59s",
		3600:  "1h",
		3661:  "1h 1m 1s",
		93784: "1d 2h 3m 4s",
	}
	for in, want := range tests {
		assert.Equal(t, want, SecondsToTime(in), "%v", in)
	}
}

func TestInfo(t *testing.T) {
	cfg := DefaultConfig(resource.Mineral)
	cfg.Inputs = []Input{{Name: "ElectricCharge", Rate: 0.5}}
	info := Info(cfg)
	assert.Contains(t, info, "Orbital scanner\nMinimal scanning period: 1h\nMinimum error margin: 5.00%")
	assert.Contains(t, info, "Optimal scanning altitude: 100000m\nScale altitude: 2000.000m")
	assert.Contains(t, info, "Resource: ElectricCharge\nRate: 30.0/m")

	gas := Info(DefaultConfig(resource.Gaseous))
	assert.Contains(t, gas, "Atmospheric scanner")
	assert.Contains(t, gas, "Scale pressure: 0.002atm")

	liquid := Info(DefaultConfig(resource.Liquid))
	assert.Contains(t, liquid, "Oceanic scanner")
	assert.NotContains(t, liquid, "Optimal")
}
