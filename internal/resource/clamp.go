package resource

// Clamp01 folds a value back into [0, 1] by reflection: values above 1 become 2-v,
// values below 0 become -v. It is not a saturating clamp.
func Clamp01(v float64) float64 {
	if v > 1 {
		return 2 - v
	}
	if v < 0 {
		return -v
	}
	return v
}

// Lerp interpolates between a and b, with t clamped to [0, 1].
func Lerp(a, b, t float64) float64 {
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return a + (b-a)*t
}
