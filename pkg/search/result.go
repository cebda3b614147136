package search

import (
	"sort"
)

// Kind tells where a suggestion came from.
type Kind string

const (
	KindExact      Kind = "exact"
	KindPrefix     Kind = "prefix"
	KindCorrection Kind = "correction"
	KindSemantic   Kind = "semantic"
	KindPopular    Kind = "popular"
)

// Metadata carries optional details about a suggestion.
type Metadata struct {
	Frequency   int    `json:"frequency,omitempty" msgpack:"f,omitempty"`
	Category    string `json:"category,omitempty" msgpack:"c,omitempty"`
	Author      string `json:"author,omitempty" msgpack:"a,omitempty"`
	IsBookTitle bool   `json:"isBookTitle,omitempty" msgpack:"t,omitempty"`
}

// Result is a single ranked suggestion. Score is only meaningful relative
// to other results of the same call.
type Result struct {
	Suggestion string    `json:"suggestion" msgpack:"w"`
	Score      float64   `json:"score" msgpack:"s"`
	Kind       Kind      `json:"type" msgpack:"k"`
	Metadata   *Metadata `json:"metadata,omitempty" msgpack:"m,omitempty"`
}

// resultSet merges candidates from several stages keyed by suggestion text.
// The first writer of a key wins.
type resultSet struct {
	byText map[string]*Result
}

func newResultSet() *resultSet {
	return &resultSet{byText: make(map[string]*Result)}
}

func (rs *resultSet) add(r Result) bool {
	if _, exists := rs.byText[r.Suggestion]; exists {
		return false
	}
	rs.byText[r.Suggestion] = &r
	return true
}

func (rs *resultSet) scale(text string, factor float64) {
	if r, ok := rs.byText[text]; ok {
		r.Score *= factor
	}
}

func (rs *resultSet) len() int {
	return len(rs.byText)
}

// ranked returns at most limit results, highest score first.
func (rs *resultSet) ranked(limit int) []Result {
	out := make([]Result, 0, len(rs.byText))
	for _, r := range rs.byText {
		out = append(out, *r)
	}
	sortResults(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// sortResults orders by score desc, ties broken by text for stable output.
func sortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Suggestion < results[j].Suggestion
	})
}

// Texts strips results down to their suggestion strings.
func Texts(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Suggestion
	}
	return out
}
