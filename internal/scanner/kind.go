package scanner

import (
	"fmt"
	"math"

	"github.com/kres-mod/kres/internal/host"
	"github.com/kres-mod/kres/internal/resource"
)

// Kind holds what differs between orbital, atmospheric and oceanic sensors.
type Kind struct {
	Type  resource.Type
	Title string
	// Presence follows an item name in readings, Location heads the list.
	Presence string
	Location string
	medium   string
}

// KindFor returns the sensor kind scanning resources of type t.
func KindFor(t resource.Type) Kind {
	switch t {
	case resource.Mineral:
		return Kind{Type: t, Title: "Orbital", Presence: " (surface%):", Location: "Extractable", medium: "surface"}
	case resource.Gaseous:
		return Kind{Type: t, Title: "Atmospheric", Presence: " (vol/vol):", Location: "Atmospheric", medium: "atmosphere"}
	case resource.Liquid:
		return Kind{Type: t, Title: "Oceanic", Presence: " (vol/vol):", Location: "Oceanic", medium: "oceans"}
	default:
		panic(fmt.Sprintf("scanner: no kind for resource type %d", int(t)))
	}
}

// CanActivate checks the environment precondition of the kind.
func (k Kind) CanActivate(caps resource.Capabilities, st host.VesselState) error {
	switch k.Type {
	case resource.Mineral:
		if !caps.Surface {
			return fmt.Errorf("%w: no planetary surface to scan", ErrEnvironment)
		}
	case resource.Gaseous:
		if st.Pressure <= 0 {
			return fmt.Errorf("%w: no atmosphere to scan", ErrEnvironment)
		}
	case resource.Liquid:
		if !st.Splashed {
			return fmt.Errorf("%w: no ocean to scan", ErrEnvironment)
		}
	}
	return nil
}

// Fit is the environment factor in (0,1]. Far from the optimum it underflows to 0.
func (k Kind) Fit(cfg Config, st host.VesselState) float64 {
	switch k.Type {
	case resource.Mineral:
		return math.Pow(2, -math.Abs(st.Altitude-cfg.OptimalAltitude)/cfg.ScaleFactor)
	case resource.Gaseous:
		return math.Pow(2, -math.Abs(st.Pressure-cfg.OptimalPressure)/cfg.ScaleFactor)
	default:
		return 1
	}
}

func (k Kind) completeMessage(body string) string {
	return fmt.Sprintf("%s scan of %s complete, scanner turned off.", k.scanName(), body)
}

func (k Kind) noResourcesMessage(body string) string {
	if k.Type == resource.Mineral {
		return fmt.Sprintf("No resources on %s's %s", body, k.medium)
	}
	return fmt.Sprintf("No resources in %s's %s", body, k.medium)
}

func (k Kind) scanName() string {
	if k.Type == resource.Mineral {
		return "Surface"
	}
	return k.Title
}
