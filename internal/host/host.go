// Package host describes what KRES needs from the surrounding simulation: the
// celestial bodies, their terrain and biomes, and the vessels carrying sensors.
package host

import (
	"sort"

	"github.com/kres-mod/kres/internal/resource"
)

// AltitudeMap gives the terrain altitude in metres for each pixel of a body map.
type AltitudeMap interface {
	Width() int
	Height() int
	At(x, y int) float64
}

// Environment is the read-only view of the planetary system.
type Environment interface {
	// Bodies lists every body, in no particular order.
	Bodies() []string
	Capabilities(body string) (resource.Capabilities, bool)
	// Biome returns the biome name at a location, or "" when the body has none.
	Biome(body string, lat, lon float64) string
	// AltitudeMap returns the terrain map, if one is available.
	AltitudeMap(body string) (AltitudeMap, bool)
}

// VesselState is a snapshot of the values sensors read from their vessel.
type VesselState struct {
	Body     string
	Altitude float64
	// Pressure is the static pressure in atmospheres. Readings below 1e-6 are reported as 0.
	Pressure float64
	Splashed bool
}

// Vessel is the craft a sensor is mounted on.
type Vessel interface {
	Name() string
	State() VesselState
	// Request withdraws up to amount of a consumable and returns what was actually taken.
	// A negative amount returns resources to the vessel.
	Request(name string, amount float64) float64
}

// RelevantBodies lists, sorted, the bodies where resources of type t can exist.
func RelevantBodies(env Environment, t resource.Type) []string {
	var out []string
	for _, b := range env.Bodies() {
		caps, ok := env.Capabilities(b)
		if ok && t.AppliesTo(caps) {
			out = append(out, b)
		}
	}
	sort.Strings(out)
	return out
}
