package search

import (
	"math"
	"sort"
	"strings"
)

const contextBoostFactor = 1.3

// ContextModel maps a category or author to the words seen alongside it.
type ContextModel struct {
	words map[string]map[string]struct{}
}

// NewContextModel returns an empty context model.
func NewContextModel() *ContextModel {
	return &ContextModel{words: make(map[string]map[string]struct{})}
}

// Add associates words with key. The model only ever grows.
func (m *ContextModel) Add(key string, words []string) {
	k := normalize(key)
	if k == "" {
		return
	}
	set, ok := m.words[k]
	if !ok {
		set = make(map[string]struct{}, len(words))
		m.words[k] = set
	}
	for _, w := range words {
		set[w] = struct{}{}
	}
}

// Size is the number of known contexts.
func (m *ContextModel) Size() int {
	return len(m.words)
}

// Relevant returns the contexts sharing at least one word with tokens.
func (m *ContextModel) Relevant(tokens []string) []string {
	var keys []string
	for key, set := range m.words {
		for _, t := range tokens {
			if _, ok := set[t]; ok {
				keys = append(keys, key)
				break
			}
		}
	}
	sort.Strings(keys)
	return keys
}

// boost multiplies every result whose text mentions a relevant context.
// Factors are computed first and applied afterwards so the set is never
// written while it is being scanned.
func (m *ContextModel) boost(rs *resultSet, tokens []string) {
	keys := m.Relevant(tokens)
	if len(keys) == 0 {
		return
	}

	hits := make(map[string]int)
	for text := range rs.byText {
		for _, key := range keys {
			if strings.Contains(text, key) {
				hits[text]++
			}
		}
	}
	for text, n := range hits {
		rs.scale(text, math.Pow(contextBoostFactor, float64(n)))
	}
}
