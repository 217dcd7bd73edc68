// Package scanner estimates deposits over time. A sensor drains consumables
// from its vessel and lowers the convergence error of its (type, body) entry.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kres-mod/kres/internal/databody"
	"github.com/kres-mod/kres/internal/host"
	"github.com/kres-mod/kres/internal/resource"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNoInputs    = errors.New("scanner has no input resource")
	ErrEnvironment = errors.New("environment does not allow scanning")
	ErrStarved     = errors.New("not enough resources")
	ErrTerminal    = errors.New("scan already finished on this body")
)

// ItemSource provides the deposits of a body.
type ItemSource interface {
	Items(body string, t resource.Type) []resource.Item
}

// Deps are the collaborators of a sensor.
type Deps struct {
	Vessel host.Vessel
	Env    host.Environment
	Store  *databody.Store
	Items  ItemSource
	Logger *slog.Logger
}

// Sensor is one scanner part on a vessel.
type Sensor struct {
	cfg   Config
	kind  Kind
	rates Rates
	deps  Deps

	body         string
	items        []resource.Item
	currentError float64
	state        State
	status       string
	metrics      *metrics
}

// New configures a sensor. It is not bound to a body until the first Sync.
func New(cfg Config, deps Deps) (*Sensor, error) {
	if deps.Vessel == nil || deps.Env == nil || deps.Store == nil || deps.Items == nil {
		return nil, errors.New("scanner: missing dependency")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	cfg = cfg.Sanitize(deps.Logger)

	m, err := newMetrics()
	if err != nil {
		return nil, fmt.Errorf("scanner metrics: %w", err)
	}

	return &Sensor{
		cfg:          cfg,
		kind:         KindFor(cfg.Type),
		rates:        NewRates(cfg.MaxPrecision, cfg.ScanningSpeed),
		deps:         deps,
		currentError: databody.InitialError,
		status:       StatusIdle,
		metrics:      m,
	}, nil
}

func (s *Sensor) Config() Config      { return s.cfg }
func (s *Sensor) Kind() Kind          { return s.kind }
func (s *Sensor) Type() resource.Type { return s.cfg.Type }
func (s *Sensor) State() State        { return s.state }
func (s *Sensor) Status() string      { return s.status }
func (s *Sensor) Body() string        { return s.body }
func (s *Sensor) Vessel() host.Vessel { return s.deps.Vessel }
func (s *Sensor) Rates() Rates        { return s.rates }

// CurrentError is the shared error of the sensor's body entry.
func (s *Sensor) CurrentError() float64 {
	s.Sync()
	s.refresh()
	return s.currentError
}

func (s *Sensor) key() databody.Key {
	return databody.Key{Type: s.cfg.Type, Body: s.body}
}

func (s *Sensor) logger() *slog.Logger {
	return s.deps.Logger.With("vessel", s.deps.Vessel.Name(), "type", s.cfg.Type.String(), "body", s.body)
}

// Sync rebinds the sensor when its vessel has moved to another body. Any scan
// in progress stops and the new body's entry is loaded.
func (s *Sensor) Sync() {
	body := s.deps.Vessel.State().Body
	if body == s.body {
		return
	}
	s.body = body
	s.items = s.deps.Items.Items(body, s.cfg.Type)
	v, err := s.deps.Store.Get(s.key())
	if err != nil {
		s.logger().Warn("No data body for sensor, starting unscanned", "error", err)
		v = databody.InitialError
	}
	s.currentError = v
	s.deactivate(Idle)
}

// the store entry may be advanced by another sensor of the same type
func (s *Sensor) refresh() {
	if s.body == "" {
		return
	}
	if v, err := s.deps.Store.Get(s.key()); err == nil {
		s.currentError = v
	}
}

// Activate starts scanning. A refused activation changes nothing.
func (s *Sensor) Activate() error {
	s.Sync()
	if len(s.cfg.Inputs) == 0 {
		return ErrNoInputs
	}
	if s.state == Scanning {
		return nil
	}
	s.refresh()
	if s.state.Terminal() || s.finished() {
		return ErrTerminal
	}
	caps, _ := s.deps.Env.Capabilities(s.body)
	if err := s.kind.CanActivate(caps, s.deps.Vessel.State()); err != nil {
		return err
	}
	s.state = Scanning
	s.status = StatusScanning
	return nil
}

func (s *Sensor) finished() bool {
	if s.currentError == -1 {
		return true
	}
	return len(s.items) > 0 && s.currentError <= s.cfg.MaxPrecision
}

// Reload re-reads the sensor's entry and returns it to Idle. Call it after
// the store was reset, since a terminal state no longer holds.
func (s *Sensor) Reload() {
	s.refresh()
	s.deactivate(Idle)
}

// Deactivate stops a running scan.
func (s *Sensor) Deactivate() {
	if s.state == Scanning {
		s.deactivate(Idle)
	}
}

// Toggle flips the sensor between Idle and Scanning.
func (s *Sensor) Toggle() error {
	if s.state == Scanning {
		s.Deactivate()
		return nil
	}
	return s.Activate()
}

func (s *Sensor) deactivate(st State) {
	s.state = st
	if st == Complete {
		s.status = StatusComplete
	} else {
		s.status = StatusIdle
	}
}

// Step advances a scanning sensor by dt of simulated time. It returns
// ErrStarved when the vessel could not pay for the step; nothing is drained
// and the error does not move in that case.
func (s *Sensor) Step(ctx context.Context, dt time.Duration) error {
	s.Sync()
	if s.state != Scanning || dt <= 0 {
		return nil
	}
	s.refresh()

	seconds := dt.Seconds()
	attrs := metric.WithAttributes(attribute.String("type", s.cfg.Type.String()))
	s.metrics.steps.Add(ctx, 1, attrs)

	var starved bool
	if s.currentError > s.cfg.MaxPrecision {
		if s.consume(seconds) {
			fit := s.kind.Fit(s.cfg, s.deps.Vessel.State())
			s.status = StatusScanning
			s.currentError += fit * s.rates.Increment(s.currentError, seconds)
			s.deps.Store.Set(s.key(), s.currentError)
		} else {
			starved = true
			s.status = StatusStarved
			s.metrics.starved.Add(ctx, 1, attrs)
		}
	}

	switch {
	case len(s.items) > 0 && s.currentError <= s.cfg.MaxPrecision:
		s.currentError = s.cfg.MaxPrecision
		s.deps.Store.Set(s.key(), s.currentError)
		s.deactivate(Complete)
		s.metrics.finished.Add(ctx, 1, metric.WithAttributes(
			attribute.String("type", s.cfg.Type.String()), attribute.String("state", Complete.String())))
		s.logger().Info(s.kind.completeMessage(s.body))
	case len(s.items) == 0 && s.currentError <= QuantifiedThreshold:
		s.currentError = -1
		s.deps.Store.Set(s.key(), s.currentError)
		s.deactivate(NoResourcesFound)
		s.metrics.finished.Add(ctx, 1, metric.WithAttributes(
			attribute.String("type", s.cfg.Type.String()), attribute.String("state", NoResourcesFound.String())))
		s.logger().Info(s.kind.noResourcesMessage(s.body))
	}

	if starved {
		return ErrStarved
	}
	return nil
}

// consume drains every input for one step. On any shortfall all of it,
// including the partial withdrawal, goes back to the vessel.
func (s *Sensor) consume(seconds float64) bool {
	taken := make([]float64, 0, len(s.cfg.Inputs))
	for _, in := range s.cfg.Inputs {
		want := in.Rate * seconds
		got := s.deps.Vessel.Request(in.Name, want)
		taken = append(taken, got)
		if got <= 0 || got < want*(1-1e-9) {
			for i, amount := range taken {
				if amount > 0 {
					s.deps.Vessel.Request(s.cfg.Inputs[i].Name, -amount)
				}
			}
			return false
		}
	}
	return true
}

// ToggleAll flips origin and sets every other sensor of the same type to the
// state origin ended in. Refused activations are joined in the returned error.
func ToggleAll(origin *Sensor, sensors []*Sensor) error {
	err := origin.Toggle()
	scanning := origin.State() == Scanning
	var errs []error
	if err != nil {
		errs = append(errs, err)
	}
	for _, other := range sensors {
		if other == origin || other.Type() != origin.Type() {
			continue
		}
		if scanning {
			if err := other.Activate(); err != nil {
				errs = append(errs, err)
			}
		} else {
			other.Deactivate()
		}
	}
	return errors.Join(errs...)
}
