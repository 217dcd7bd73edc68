// Package worker drives a session from the host's frame loop. Each frame runs
// the deferred commands, then either one unit of startup work or as many fixed
// simulation steps as the elapsed time covers.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kres-mod/kres/internal/dispatcher"
	"github.com/kres-mod/kres/internal/host"
	"github.com/kres-mod/kres/internal/resource"
	"github.com/kres-mod/kres/internal/scanner"
	"github.com/kres-mod/kres/internal/session"
)

// ErrUnknownVessel is returned when a command names a vessel the host does not know.
var ErrUnknownVessel = errors.New("unknown vessel")

// maxStepsPerFrame bounds the catch-up after a long frame.
const maxStepsPerFrame = 250

// VesselLookup resolves a vessel by name.
type VesselLookup func(name string) (host.Vessel, error)

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Session *session.Session
	Vessels VesselLookup
	Logger  *slog.Logger
	// SensorConfig tunes sensors mounted by commands. Defaults to DefaultSensorConfig.
	SensorConfig func(t resource.Type) scanner.Config
	// FixedDeltaTime is the simulation step.
	FixedDeltaTime time.Duration
	Version        string
}

// DefaultSensorConfig is the stock sensor tuning drawing electric charge.
func DefaultSensorConfig(t resource.Type) scanner.Config {
	cfg := scanner.DefaultConfig(t)
	cfg.Inputs = []scanner.Input{{Name: "ElectricCharge", Rate: 0.5}}
	return cfg
}

// FrameResult reports what one frame did.
type FrameResult struct {
	Phase session.Phase
	Steps int
	session.StepResult
}

// Manager runs the per-frame schedule.
type Manager struct {
	deps       Dependencies
	dispatcher *dispatcher.Dispatcher
	log        *slog.Logger

	accumulated time.Duration
	frames      uint64
	steps       uint64
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies) (*Manager, error) {
	if deps.Session == nil {
		return nil, errors.New("worker: missing session")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.SensorConfig == nil {
		deps.SensorConfig = DefaultSensorConfig
	}
	if deps.FixedDeltaTime <= 0 {
		deps.FixedDeltaTime = 20 * time.Millisecond
	}
	if deps.Vessels == nil {
		deps.Vessels = func(name string) (host.Vessel, error) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownVessel, name)
		}
	}
	return &Manager{deps: deps, log: deps.Logger}, nil
}

// Frame advances the session by one host frame that lasted elapsed.
// Startup work is bounded to one slice per frame; once the session is ready
// the elapsed time is spent in fixed steps and the remainder carried over.
func (m *Manager) Frame(ctx context.Context, elapsed time.Duration) (FrameResult, error) {
	m.frames++
	s := m.deps.Session
	var flushErr error
	if m.dispatcher != nil {
		flushErr = m.dispatcher.Flush()
	}

	if s.Phase() != session.Ready {
		phase, err := s.Tick(ctx)
		return FrameResult{Phase: phase}, errors.Join(flushErr, err)
	}

	m.accumulated += elapsed
	res := FrameResult{Phase: session.Ready}
	dt := m.deps.FixedDeltaTime
	for m.accumulated >= dt {
		if res.Steps == maxStepsPerFrame {
			m.log.Warn("Simulation falling behind, dropping time", "dropped", m.accumulated)
			m.accumulated = 0
			break
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		step := s.Step(ctx, dt)
		res.Scanning = step.Scanning
		res.Starved += step.Starved
		res.Finished += step.Finished
		res.Steps++
		m.accumulated -= dt
	}
	m.steps += uint64(res.Steps)
	return res, flushErr
}

// Simulate runs frames of length dt until total has elapsed.
func (m *Manager) Simulate(ctx context.Context, total, dt time.Duration) (FrameResult, error) {
	var sum FrameResult
	for total > 0 {
		if dt > total {
			dt = total
		}
		res, err := m.Frame(ctx, dt)
		sum.Phase = res.Phase
		sum.Steps += res.Steps
		sum.Scanning = res.Scanning
		sum.Starved += res.Starved
		sum.Finished += res.Finished
		if err != nil {
			return sum, err
		}
		if res.Phase == session.Ready {
			total -= dt
		}
	}
	return sum, nil
}

// Frames returns the number of frames run.
func (m *Manager) Frames() uint64 { return m.frames }

// Steps returns the number of fixed simulation steps run.
func (m *Manager) Steps() uint64 { return m.steps }

// Session returns the driven session.
func (m *Manager) Session() *session.Session { return m.deps.Session }
