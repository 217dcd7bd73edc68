package scanner

import "math"

// Delta is how close to MaxPrecision the error gets after ScanningSpeed seconds.
const Delta = 0.005

// Visibility thresholds on the convergence error.
const (
	DetectedThreshold   = 0.75
	QuantifiedThreshold = 0.5
)

// Rates are the convergence constants of a sensor. The error decays
// exponentially toward B, so it crosses MaxPrecision but never B.
type Rates struct {
	A float64
	B float64
}

func NewRates(maxPrecision, scanningSpeed float64) Rates {
	return Rates{
		A: math.Log(Delta/(1-maxPrecision)) / scanningSpeed,
		B: maxPrecision - Delta,
	}
}

// Increment is the error change over seconds at full fit. It is negative while err > B.
func (r Rates) Increment(err, seconds float64) float64 {
	return r.A * (err - r.B) * seconds
}
