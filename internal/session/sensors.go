package session

import (
	"context"
	"errors"
	"time"

	"github.com/kres-mod/kres/internal/host"
	"github.com/kres-mod/kres/internal/influx"
	"github.com/kres-mod/kres/internal/scanner"
)

// NewSensor mounts a sensor on a vessel. The catalogue must be loaded.
func (s *Session) NewSensor(cfg scanner.Config, vessel host.Vessel) (*scanner.Sensor, error) {
	if s.phase != Ready {
		return nil, ErrNotReady
	}
	sensor, err := scanner.New(cfg, scanner.Deps{
		Vessel: vessel,
		Env:    s.deps.Env,
		Store:  s.store,
		Items:  s.cat,
		Logger: s.log,
	})
	if err != nil {
		return nil, err
	}
	s.sensors = append(s.sensors, sensor)
	s.lastState[sensor] = sensor.State()
	return sensor, nil
}

// Sensors lists the sensors mounted on a vessel, or all of them for "".
func (s *Session) Sensors(vessel string) []*scanner.Sensor {
	var out []*scanner.Sensor
	for _, sensor := range s.sensors {
		if vessel == "" || sensor.Vessel().Name() == vessel {
			out = append(out, sensor)
		}
	}
	return out
}

// RemoveVessel drops the sensors of a vessel that left the simulation.
func (s *Session) RemoveVessel(vessel string) int {
	kept := s.sensors[:0]
	removed := 0
	for _, sensor := range s.sensors {
		if sensor.Vessel().Name() == vessel {
			delete(s.lastState, sensor)
			removed++
			continue
		}
		kept = append(kept, sensor)
	}
	s.sensors = kept
	return removed
}

// StepResult counts what happened to the sensors in one simulation step.
type StepResult struct {
	Scanning int
	Starved  int
	Finished int
}

// Step advances every sensor by dt. Starved sensors are counted, not failed.
func (s *Session) Step(ctx context.Context, dt time.Duration) StepResult {
	var res StepResult
	s.sinceTally += dt
	report := s.sinceTally >= s.cfg.ReportInterval
	if report {
		s.sinceTally = 0
	}

	for _, sensor := range s.sensors {
		before := s.lastState[sensor]
		err := sensor.Step(ctx, dt)
		if errors.Is(err, scanner.ErrStarved) {
			res.Starved++
		}
		after := sensor.State()
		s.lastState[sensor] = after

		switch {
		case after == scanner.Scanning:
			res.Scanning++
		case after.Terminal() && !before.Terminal():
			res.Finished++
		}
		if (report && after == scanner.Scanning) || after != before {
			s.writeScanPoint(sensor)
		}
	}
	return res
}

func (s *Session) writeScanPoint(sensor *scanner.Sensor) {
	if s.deps.Points == nil {
		return
	}
	p := influx.ScanPoint(sensor.Vessel().Name(), sensor.Body(), sensor.Type().String(), sensor.State().String(), sensor.CurrentError(), s.deps.Now())
	if err := s.deps.Points.WritePoint(p); err != nil {
		s.log.Debug("Failed to write scan point", "error", err)
	}
}
