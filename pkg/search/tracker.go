package search

import (
	"sort"
)

const (
	// DefaultRecentCapacity bounds the recent query history.
	DefaultRecentCapacity = 100

	recencyBoostFactor    = 1.2
	popularityBoostFactor = 1.5
	selectedReward        = 5
	rejectedPenalty       = 1
)

// defaultPopular seeds the popularity table of every new tracker.
var defaultPopular = map[string]float64{
	"казки":            10,
	"пригоди":          9,
	"для малюків":      8,
	"енциклопедія":     7,
	"фентезі":          6,
	"класика":          6,
	"детективи":        5,
	"комікси":          5,
	"розвиваючі книги": 4,
	"вірші":            4,
}

// Action is the user's reaction to a suggestion.
type Action string

const (
	ActionSelected Action = "selected"
	ActionRejected Action = "rejected"
)

// Tracker keeps the recent query history (most recent first) and the
// per-query popularity scores.
type Tracker struct {
	recent   []string
	popular  map[string]float64
	capacity int
}

// NewTracker returns a tracker seeded with the default popular queries.
func NewTracker(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = DefaultRecentCapacity
	}
	popular := make(map[string]float64, len(defaultPopular))
	for q, s := range defaultPopular {
		popular[q] = s
	}
	return &Tracker{
		recent:   make([]string, 0, capacity),
		popular:  popular,
		capacity: capacity,
	}
}

// Record notes a query: it moves to the front of the history and its
// popularity grows by one.
func (t *Tracker) Record(query string) {
	q := normalize(query)
	if q == "" {
		return
	}
	t.pushRecent(q)
	t.popular[q]++
}

func (t *Tracker) pushRecent(q string) {
	for i, existing := range t.recent {
		if existing == q {
			t.recent = append(t.recent[:i], t.recent[i+1:]...)
			break
		}
	}
	t.recent = append(t.recent, "")
	copy(t.recent[1:], t.recent)
	t.recent[0] = q
	if len(t.recent) > t.capacity {
		t.recent = t.recent[:t.capacity]
	}
}

// Adapt applies explicit user feedback for a suggestion.
func (t *Tracker) Adapt(selected string, action Action) {
	s := normalize(selected)
	if s == "" {
		return
	}
	switch action {
	case ActionSelected:
		t.popular[s] += selectedReward
		t.pushRecent(s)
	case ActionRejected:
		if score, ok := t.popular[s]; ok {
			t.popular[s] = max(0, score-rejectedPenalty)
		}
	}
}

// IsRecent reports whether s is in the recent history.
func (t *Tracker) IsRecent(s string) bool {
	for _, q := range t.recent {
		if q == s {
			return true
		}
	}
	return false
}

// Popularity returns the popularity score of s, zero when unknown.
func (t *Tracker) Popularity(s string) float64 {
	return t.popular[s]
}

// Recent returns a copy of the history, most recent first.
func (t *Tracker) Recent() []string {
	out := make([]string, len(t.recent))
	copy(out, t.recent)
	return out
}

// Top returns the n most popular queries as results.
func (t *Tracker) Top(n int) []Result {
	out := make([]Result, 0, len(t.popular))
	for q, s := range t.popular {
		out = append(out, Result{Suggestion: q, Score: s, Kind: KindPopular})
	}
	sortResults(out)
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// boost applies the recency and popularity multipliers.
func (t *Tracker) boost(rs *resultSet) {
	for text, r := range rs.byText {
		if t.IsRecent(text) {
			r.Score *= recencyBoostFactor
		}
		if t.popular[text] > 0 {
			r.Score *= popularityBoostFactor
		}
	}
}

func (t *Tracker) snapshot() (map[string]float64, []string) {
	popular := make(map[string]float64, len(t.popular))
	for q, s := range t.popular {
		popular[q] = s
	}
	return popular, t.Recent()
}

func (t *Tracker) restore(popular map[string]float64, recent []string) {
	t.popular = make(map[string]float64, len(popular))
	for q, s := range popular {
		t.popular[q] = s
	}
	if len(recent) > t.capacity {
		recent = recent[:t.capacity]
	}
	t.recent = make([]string, len(recent), t.capacity)
	copy(t.recent, recent)
}

// sortedKeys is shared by snapshot exporters that need a stable order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
