package catalog

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// DefaultSimilarity is the Jaro-Winkler score a candidate must reach to be
// offered as a "did you mean" hint.
const DefaultSimilarity = 0.8

// Closest returns the candidate most similar to query, compared
// case-insensitively with Jaro-Winkler similarity. ok is false when no
// candidate scores at least threshold.
func Closest(query string, candidates []string, threshold float64) (best string, ok bool) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return "", false
	}
	bestScore := threshold
	for _, c := range candidates {
		score := matchr.JaroWinkler(query, strings.ToLower(c), false)
		if score >= bestScore && (!ok || score > bestScore) {
			best, bestScore, ok = c, score, true
		}
	}
	return best, ok
}
