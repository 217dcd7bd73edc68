// Package monitor renders the state of a running session for operators: a
// snapshot struct for the CLI and a status file rewritten from the frame loop.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kres-mod/kres/internal/scanner"
	"github.com/kres-mod/kres/internal/session"
	"github.com/kres-mod/kres/internal/worker"
)

// StatusFileName is written into the status directory.
const StatusFileName = "status.json"

// EntryStatus is one data body entry.
type EntryStatus struct {
	Type         string  `json:"type"`
	Body         string  `json:"body"`
	CurrentError float64 `json:"currentError"`
}

// ItemStatus is what a sensor on the body would show for one deposit.
type ItemStatus struct {
	Type    string `json:"type"`
	Body    string `json:"body"`
	Name    string `json:"name"`
	Reading string `json:"reading"`
}

// Status is a snapshot of a session.
type Status struct {
	Time     time.Time        `json:"time"`
	Save     string           `json:"save"`
	Pack     string           `json:"pack"`
	Phase    string           `json:"phase"`
	Progress float64          `json:"progress"`
	Frames   uint64           `json:"frames"`
	Steps    uint64           `json:"steps"`
	Entries  []EntryStatus    `json:"entries"`
	Items    []ItemStatus     `json:"items,omitempty"`
	Sensors  []scanner.Report `json:"sensors,omitempty"`
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Session *session.Session
	// Worker is optional; without it frame counters stay zero.
	Worker *worker.Manager
	Logger *slog.Logger
	// StatusDir receives the status file. Empty disables writing.
	StatusDir string
	Interval  time.Duration
	Now       func() time.Time
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	lastWrite time.Time
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{deps: deps}
}

// GetStatus returns the current session status.
func (s *Service) GetStatus(withSensors bool) Status {
	sess := s.deps.Session
	st := Status{
		Time:     s.deps.Now(),
		Save:     sess.Name(),
		Pack:     sess.Pack().Name,
		Phase:    sess.Phase().String(),
		Progress: sess.Progress(),
	}
	if s.deps.Worker != nil {
		st.Frames = s.deps.Worker.Frames()
		st.Steps = s.deps.Worker.Steps()
	}
	cat := sess.Catalogue()
	for _, e := range sess.Store().Entries() {
		st.Entries = append(st.Entries, EntryStatus{Type: e.Type.String(), Body: e.Body, CurrentError: e.CurrentError})
		if cat == nil || e.CurrentError > scanner.DetectedThreshold {
			continue
		}
		for _, it := range cat.Items(e.Body, e.Type) {
			r := scanner.Reading{Name: it.Name, Quantified: e.CurrentError >= 0 && e.CurrentError <= scanner.QuantifiedThreshold}
			if r.Quantified {
				r.Percentage = scanner.Percentage(e.CurrentError, it.ActualError, it.ActualDensity)
				r.ErrorBand = scanner.ErrorBand(e.CurrentError, it.ActualDensity)
			}
			st.Items = append(st.Items, ItemStatus{Type: e.Type.String(), Body: e.Body, Name: it.Name, Reading: r.String()})
		}
	}
	if withSensors {
		for _, sensor := range sess.Sensors("") {
			st.Sensors = append(st.Sensors, sensor.Report())
		}
	}
	return st
}

// GetProgramStatus returns the status as indented JSON lines.
func (s *Service) GetProgramStatus(withSensors bool) (output []string, status Status) {
	status = s.GetStatus(withSensors)
	out, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		out = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
	}
	return []string{string(out)}, status
}

// Frame rewrites the status file when the interval has passed. It reports
// whether a file was written.
func (s *Service) Frame() bool {
	if s.deps.StatusDir == "" {
		return false
	}
	now := s.deps.Now()
	if !s.lastWrite.IsZero() && now.Sub(s.lastWrite) < s.deps.Interval {
		return false
	}
	s.lastWrite = now

	lines, _ := s.GetProgramStatus(true)
	path := filepath.Join(s.deps.StatusDir, StatusFileName)
	tmp := path + ".tmp"
	data := []byte(lines[0] + "\n")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		s.deps.Logger.Error("Error writing status file", "error", err)
		return false
	}
	if err := os.Rename(tmp, path); err != nil {
		s.deps.Logger.Error("Error replacing status file", "error", err)
		return false
	}
	return true
}
