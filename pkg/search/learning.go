package search

import (
	"encoding/json"
	"fmt"
)

// ScoreEntry is a (query, popularity) pair. It encodes as a two element
// array in both JSON and msgpack.
type ScoreEntry struct {
	_msgpack struct{} `msgpack:",as_array"`
	Query    string
	Score    float64
}

func (e ScoreEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.Query, e.Score})
}

func (e *ScoreEntry) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("score entry: %w", err)
	}
	if err := json.Unmarshal(raw[0], &e.Query); err != nil {
		return fmt.Errorf("score entry query: %w", err)
	}
	if err := json.Unmarshal(raw[1], &e.Score); err != nil {
		return fmt.Errorf("score entry score: %w", err)
	}
	return nil
}

// CountEntry is a (string, count) pair from the frequency table.
type CountEntry struct {
	_msgpack struct{} `msgpack:",as_array"`
	Term     string
	Count    int
}

func (e CountEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.Term, e.Count})
}

func (e *CountEntry) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("count entry: %w", err)
	}
	if err := json.Unmarshal(raw[0], &e.Term); err != nil {
		return fmt.Errorf("count entry term: %w", err)
	}
	if err := json.Unmarshal(raw[1], &e.Count); err != nil {
		return fmt.Errorf("count entry count: %w", err)
	}
	return nil
}

// LearningData is the part of the engine state that adapts over time.
// The trie, n-gram and context models are rebuilt from the catalog and
// are not part of it.
type LearningData struct {
	PopularQueries []ScoreEntry `json:"popularQueries" msgpack:"popular_queries"`
	RecentQueries  []string     `json:"recentQueries" msgpack:"recent_queries"`
	FrequencyModel []CountEntry `json:"frequencyModel" msgpack:"frequency_model"`
}

// IsEmpty reports whether the snapshot holds nothing at all.
func (d LearningData) IsEmpty() bool {
	return len(d.PopularQueries) == 0 && len(d.RecentQueries) == 0 && len(d.FrequencyModel) == 0
}

func newLearningData(popular map[string]float64, recent []string, freqs map[string]int) LearningData {
	data := LearningData{
		PopularQueries: make([]ScoreEntry, 0, len(popular)),
		RecentQueries:  recent,
		FrequencyModel: make([]CountEntry, 0, len(freqs)),
	}
	for _, q := range sortedKeys(popular) {
		data.PopularQueries = append(data.PopularQueries, ScoreEntry{Query: q, Score: popular[q]})
	}
	for _, term := range sortedKeys(freqs) {
		data.FrequencyModel = append(data.FrequencyModel, CountEntry{Term: term, Count: freqs[term]})
	}
	return data
}

func (d LearningData) maps() (map[string]float64, map[string]int) {
	popular := make(map[string]float64, len(d.PopularQueries))
	for _, e := range d.PopularQueries {
		popular[e.Query] = e.Score
	}
	freqs := make(map[string]int, len(d.FrequencyModel))
	for _, e := range d.FrequencyModel {
		freqs[e.Term] = e.Count
	}
	return popular, freqs
}
