package scanner

import (
	"log/slog"

	"github.com/kres-mod/kres/internal/resource"
)

// Input is a consumable drained while scanning, in units per second.
type Input struct {
	Name string  `json:"name" mapstructure:"name"`
	Rate float64 `json:"rate" mapstructure:"rate"`
}

// Config is the tuning of one sensor.
type Config struct {
	Type            resource.Type `json:"-" mapstructure:"-"`
	OptimalAltitude float64       `json:"optimalAltitude" mapstructure:"optimalAltitude"`
	OptimalPressure float64       `json:"optimalPressure" mapstructure:"optimalPressure"`
	ScaleFactor     float64       `json:"scaleFactor" mapstructure:"scaleFactor"`
	MaxPrecision    float64       `json:"maxPrecision" mapstructure:"maxPrecision"`
	// ScanningSpeed is the number of seconds needed to reach MaxPrecision at full fit.
	ScanningSpeed float64 `json:"scanningSpeed" mapstructure:"scanningSpeed"`
	Inputs        []Input `json:"inputs" mapstructure:"inputs"`
}

// DefaultConfig returns the stock sensor tuning for a resource type, with no inputs.
func DefaultConfig(t resource.Type) Config {
	return Config{
		Type:            t,
		OptimalAltitude: 100000,
		OptimalPressure: 0.1,
		ScaleFactor:     0.02,
		MaxPrecision:    0.05,
		ScanningSpeed:   3600,
	}
}

// Sanitize drops unusable inputs and restores defaults for out of range tuning.
func (c Config) Sanitize(logger *slog.Logger) Config {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig(c.Type)
	if c.ScaleFactor <= 0 {
		c.ScaleFactor = def.ScaleFactor
	}
	if c.MaxPrecision <= Delta || c.MaxPrecision >= 1 {
		logger.Warn("Scanner precision out of range, using default", "maxPrecision", c.MaxPrecision)
		c.MaxPrecision = def.MaxPrecision
	}
	if c.ScanningSpeed <= 0 {
		c.ScanningSpeed = def.ScanningSpeed
	}

	inputs := make([]Input, 0, len(c.Inputs))
	for _, in := range c.Inputs {
		switch {
		case in.Name == "":
			logger.Warn("Nameless scanner input resource, skipping")
		case in.Rate <= 0:
			logger.Warn("Scanner input rate must be above zero, skipping", "resource", in.Name, "rate", in.Rate)
		default:
			inputs = append(inputs, in)
		}
	}
	c.Inputs = inputs
	return c
}
