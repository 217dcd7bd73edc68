package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/kres-mod/kres/internal/dispatcher"
	"github.com/kres-mod/kres/internal/resource"
	"github.com/kres-mod/kres/internal/scanner"
)

// RegisterHandlers registers the host commands with the dispatcher. Scanner
// toggles are deferred to the start of the next frame.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	m.dispatcher = d

	d.Register(":VERSION:", m.handleVersion)
	d.Register(":GENERATE:", m.handleGenerate, dispatcher.Logged())
	d.Register(":TICK:", m.handleTick)

	d.Register(":SCAN:START:", m.handleScanStart, dispatcher.Deferred(64), dispatcher.Logged())
	d.Register(":SCAN:STOP:", m.handleScanStop, dispatcher.Deferred(64), dispatcher.Logged())
	d.Register(":SCAN:STATUS:", m.handleScanStatus)

	d.Register(":SAVE:", m.handleSave, dispatcher.Logged())
	d.Register(":RESET:", m.handleReset, dispatcher.Logged())
}

func (m *Manager) handleVersion(e dispatcher.Event) (any, error) {
	return m.deps.Version, nil
}

// :GENERATE: runs startup to completion.
func (m *Manager) handleGenerate(e dispatcher.Event) (any, error) {
	s := m.deps.Session
	if err := s.Run(context.Background()); err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	return fmt.Sprintf("%s %.2f", s.Phase(), s.Progress()), nil
}

// :TICK: <seconds> runs one frame.
func (m *Manager) handleTick(e dispatcher.Event) (any, error) {
	seconds, err := strconv.ParseFloat(e.Arg(0), 64)
	if err != nil || seconds < 0 {
		return nil, fmt.Errorf("tick: invalid elapsed time %q", e.Arg(0))
	}
	res, err := m.Frame(context.Background(), time.Duration(seconds*float64(time.Second)))
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("%s %.2f %d", res.Phase, m.deps.Session.Progress(), res.Steps), nil
}

// sensor finds the vessel's sensor of a type, mounting one if there is none.
func (m *Manager) sensor(vesselName, typeName string, mount bool) (*scanner.Sensor, []*scanner.Sensor, error) {
	t, err := resource.ParseType(typeName)
	if err != nil {
		return nil, nil, err
	}
	s := m.deps.Session
	sensors := s.Sensors(vesselName)
	for _, sensor := range sensors {
		if sensor.Type() == t {
			return sensor, sensors, nil
		}
	}
	if !mount {
		return nil, sensors, fmt.Errorf("no %s sensor on %s", t, vesselName)
	}
	vessel, err := m.deps.Vessels(vesselName)
	if err != nil {
		return nil, nil, err
	}
	sensor, err := s.NewSensor(m.deps.SensorConfig(t).Sanitize(m.log), vessel)
	if err != nil {
		return nil, nil, err
	}
	return sensor, append(sensors, sensor), nil
}

// :SCAN:START: <vessel> <type>
func (m *Manager) handleScanStart(e dispatcher.Event) (any, error) {
	sensor, sensors, err := m.sensor(e.Arg(0), e.Arg(1), true)
	if err != nil {
		return nil, err
	}
	if sensor.State() == scanner.Scanning {
		return sensor.Status(), nil
	}
	if err := scanner.ToggleAll(sensor, sensors); err != nil {
		return nil, err
	}
	return sensor.Status(), nil
}

// :SCAN:STOP: <vessel> <type>
func (m *Manager) handleScanStop(e dispatcher.Event) (any, error) {
	sensor, sensors, err := m.sensor(e.Arg(0), e.Arg(1), false)
	if err != nil {
		return nil, err
	}
	if sensor.State() != scanner.Scanning {
		return sensor.Status(), nil
	}
	if err := scanner.ToggleAll(sensor, sensors); err != nil {
		return nil, err
	}
	return sensor.Status(), nil
}

// :SCAN:STATUS: [vessel] returns the sensor reports as JSON.
func (m *Manager) handleScanStatus(e dispatcher.Event) (any, error) {
	sensors := m.deps.Session.Sensors(e.Arg(0))
	reports := make([]scanner.Report, 0, len(sensors))
	for _, sensor := range sensors {
		reports = append(reports, sensor.Report())
	}
	out, err := json.Marshal(reports)
	if err != nil {
		return nil, err
	}
	return string(out), nil
}

func (m *Manager) handleSave(e dispatcher.Event) (any, error) {
	if err := m.deps.Session.Save(context.Background()); err != nil {
		return nil, err
	}
	return "saved", nil
}

func (m *Manager) handleReset(e dispatcher.Event) (any, error) {
	if err := m.deps.Session.Reset(context.Background()); err != nil {
		return nil, err
	}
	return "reset", nil
}
