package search

import (
	"math"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// maxCorrections is how many typo corrections a single lookup may return.
const maxCorrections = 5

// Corrections scans the frequency table for strings within maxDistance
// edits of input. The input itself (distance 0) is never returned.
func (ix *Index) Corrections(input string, maxDistance int) []Result {
	query := normalize(input)
	if query == "" || maxDistance <= 0 {
		return nil
	}
	queryLen := utf8.RuneCountInString(query)

	var candidates []Result
	for word, freq := range ix.freqs {
		if abs(utf8.RuneCountInString(word)-queryLen) > maxDistance {
			continue
		}
		dist := Levenshtein(query, word)
		if dist == 0 || dist > maxDistance {
			continue
		}
		score := float64(maxDistance-dist+1) * math.Log(float64(freq)+1) * 3
		candidates = append(candidates, Result{
			Suggestion: word,
			Score:      score,
			Kind:       KindCorrection,
			Metadata:   &Metadata{Frequency: freq},
		})
	}

	sortResults(candidates)
	if len(candidates) > maxCorrections {
		candidates = candidates[:maxCorrections]
	}
	return candidates
}

// Levenshtein returns the edit distance between a and b, counted in runes.
func Levenshtein(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
