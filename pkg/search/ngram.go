package search

import (
	"math"
	"sort"
)

// NGramModel counts which word follows which inside a single text.
type NGramModel struct {
	next map[string]map[string]int
}

// NewNGramModel returns an empty bigram model.
func NewNGramModel() *NGramModel {
	return &NGramModel{next: make(map[string]map[string]int)}
}

// Add counts every adjacent token pair of text.
func (m *NGramModel) Add(text string) {
	tokens := Tokenize(text)
	for i := 0; i+1 < len(tokens); i++ {
		current, following := tokens[i], tokens[i+1]
		successors, ok := m.next[current]
		if !ok {
			successors = make(map[string]int)
			m.next[current] = successors
		}
		successors[following]++
	}
}

// Successors returns how often each word followed word.
func (m *NGramModel) Successors(word string) map[string]int {
	return m.next[word]
}

// Size is the number of words with at least one recorded successor.
func (m *NGramModel) Size() int {
	return len(m.next)
}

// Predict continues input with the most frequent successors of its last
// word. Unknown or empty input yields nothing.
func (m *NGramModel) Predict(input string, max int) []Result {
	tokens := Tokenize(input)
	if len(tokens) == 0 || max <= 0 {
		return nil
	}
	successors := m.next[tokens[len(tokens)-1]]
	if len(successors) == 0 {
		return nil
	}

	type pair struct {
		word  string
		count int
	}
	ranked := make([]pair, 0, len(successors))
	for w, c := range successors {
		ranked = append(ranked, pair{w, c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].word < ranked[j].word
	})
	if len(ranked) > max {
		ranked = ranked[:max]
	}

	base := normalize(input)
	results := make([]Result, len(ranked))
	for i, p := range ranked {
		results[i] = Result{
			Suggestion: base + " " + p.word,
			Score:      math.Log(float64(p.count)+1) * 5,
			Kind:       KindSemantic,
			Metadata:   &Metadata{Frequency: p.count},
		}
	}
	return results
}
