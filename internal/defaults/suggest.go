package defaults

import "github.com/agnivade/levenshtein"

// Suggest returns the candidate closest to name, or "" when nothing is close enough
// to be a plausible typo.
func Suggest(name string, candidates []string) string {
	best := ""
	bestDist := -1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(name, c)
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	if bestDist < 0 || bestDist > max(2, len(name)/3) {
		return ""
	}
	return best
}
