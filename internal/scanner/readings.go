package scanner

import (
	"fmt"
	"image/color"
)

// Percentage is the displayed share of an item, biased by its hidden error offset.
func Percentage(currentError, actualError, actualDensity float64) float64 {
	return ((currentError * actualError) + 1) * actualDensity * 100
}

// ErrorBand is the displayed uncertainty of an item.
func ErrorBand(currentError, actualDensity float64) float64 {
	return actualDensity * currentError * 100
}

// Reading is what a sensor shows for one item.
type Reading struct {
	Name       string      `json:"name"`
	Label      string      `json:"label"`
	Colour     color.NRGBA `json:"-"`
	Quantified bool        `json:"quantified"`
	Percentage float64     `json:"percentage,omitempty"`
	ErrorBand  float64     `json:"errorBand,omitempty"`
}

func (r Reading) String() string {
	if !r.Quantified {
		return "-- ± --%"
	}
	return fmt.Sprintf("%.2f ± %.2f%%", r.Percentage, r.ErrorBand)
}

// Report is the data window of a sensor.
type Report struct {
	Vessel       string    `json:"vessel"`
	Body         string    `json:"body"`
	Type         string    `json:"type"`
	State        string    `json:"state"`
	Status       string    `json:"status"`
	Location     string    `json:"location"`
	CurrentError float64   `json:"currentError"`
	MaxError     string    `json:"maxError"`
	Message      string    `json:"message,omitempty"`
	Readings     []Reading `json:"readings,omitempty"`
}

// Report renders the current readings. Items stay hidden until the error drops
// to DetectedThreshold and their numbers until QuantifiedThreshold.
func (s *Sensor) Report() Report {
	s.Sync()
	s.refresh()
	ce := s.currentError
	detected := ce <= DetectedThreshold
	quantified := ce <= QuantifiedThreshold

	rep := Report{
		Vessel:       s.deps.Vessel.Name(),
		Body:         s.body,
		Type:         s.cfg.Type.String(),
		State:        s.state.String(),
		Status:       s.status,
		Location:     s.kind.Location + " resources:",
		CurrentError: ce,
		MaxError:     "± --%",
	}
	if quantified {
		rep.MaxError = fmt.Sprintf("± %.2f%%", ce*100)
	}

	switch {
	case ce == -1 || (detected && len(s.items) == 0):
		rep.Message = "No resources detected."
	case detected:
		for _, it := range s.items {
			r := Reading{Name: it.Name, Label: it.Name + s.kind.Presence, Colour: it.Colour, Quantified: quantified}
			if quantified {
				r.Percentage = Percentage(ce, it.ActualError, it.ActualDensity)
				r.ErrorBand = ErrorBand(ce, it.ActualDensity)
			}
			rep.Readings = append(rep.Readings, r)
		}
	case s.state == Scanning:
		rep.Message = s.status
	default:
		rep.Message = "Nothing to show."
	}
	return rep
}
