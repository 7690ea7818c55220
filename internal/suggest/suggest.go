// Package suggest produces "did you mean" hints for unrecognised `is`
// values (profile backends, dependency kinds) and unknown CLI subcommands.
// It never influences which candidate is selected, only the text shown
// alongside a parse error.
package suggest

import "github.com/hbollon/go-edlib"

// Closest returns the candidate with the smallest Levenshtein distance to
// input, and that distance. Returns ("", -1) if candidates is empty.
func Closest(input string, candidates []string) (string, int) {
	best := ""
	bestDistance := -1
	for _, candidate := range candidates {
		distance := edlib.LevenshteinDistance(input, candidate)
		if bestDistance == -1 || distance < bestDistance {
			bestDistance = distance
			best = candidate
		}
	}
	return best, bestDistance
}
