// Package resource holds the resource types, authored definitions and the
// derived per-body items the generator and the scanners work with.
package resource

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownType is returned when a resource type string is not one of the known types.
var ErrUnknownType = errors.New("unknown resource type")

// Type is the source domain of a resource.
type Type int

const (
	// Mineral resources are mined from the ground and are the only rasterized type.
	Mineral Type = iota
	// Liquid resources are found in oceans.
	Liquid
	// Gaseous resources are found in atmospheres.
	Gaseous
)

// Types lists every resource type in persistence order.
var Types = []Type{Mineral, Liquid, Gaseous}

// String returns the name used in configuration and save files.
func (t Type) String() string {
	switch t {
	case Mineral:
		return "ore"
	case Liquid:
		return "liquid"
	case Gaseous:
		return "gas"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// TypeNames returns the canonical names of all types.
func TypeNames() []string {
	names := make([]string, 0, len(Types))
	for _, t := range Types {
		names = append(names, t.String())
	}
	return names
}

// ParseType converts a configuration string into a Type.
// Both the save-file names (ore, liquid, gas) and the long names are accepted.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ore", "mineral":
		return Mineral, nil
	case "liquid":
		return Liquid, nil
	case "gas", "gaseous":
		return Gaseous, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
}

// Rasterized reports whether resources of this type get a distribution raster.
func (t Type) Rasterized() bool {
	return t == Mineral
}

// Capabilities describes the environments a body offers.
type Capabilities struct {
	Surface    bool `json:"surface" mapstructure:"surface"`
	Atmosphere bool `json:"atmosphere" mapstructure:"atmosphere"`
	Ocean      bool `json:"ocean" mapstructure:"ocean"`
}

// AppliesTo reports whether resources of this type can exist on a body with the given capabilities.
func (t Type) AppliesTo(c Capabilities) bool {
	switch t {
	case Mineral:
		return c.Surface
	case Liquid:
		return c.Ocean
	case Gaseous:
		return c.Atmosphere
	default:
		return false
	}
}
