package matcher

import (
	"math"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// Ratio scores the similarity of two strings from 0 to 100. With a combined
// length T and an edit distance d, where a substitution costs two, the score
// is 100*(T-d)/T rounded half to even. Two empty strings score 0.
func Ratio(x, y string) int {
	rx, ry := []rune(x), []rune(y)
	total := len(rx) + len(ry)
	if total == 0 {
		return 0
	}

	distance := levenshtein.DistanceForStrings(rx, ry, levenshtein.DefaultOptions)
	return int(math.RoundToEven(100 * float64(total-distance) / float64(total)))
}

// exactOnlyLength is the combined length below which only identical strings
// can reach a score of 100.
const exactOnlyLength = 200
