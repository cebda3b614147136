// Package search is the predictive autocomplete engine behind the catalog
// search box.
//
// An Engine merges candidates from four sources into one ranked list:
// prefix matches from a patricia trie over titles, authors, categories and
// keywords; next-word predictions from a bigram model; typo corrections from
// a Levenshtein scan of the vocabulary; and the popularity table for empty
// input. Context, recency and popularity multipliers are applied on top.
//
//	engine := search.New()
//	engine.Initialize(items)
//	results := engine.Autocomplete("пригод", search.DefaultQueryOptions())
//
// The engine learns from every query and from explicit feedback (Adapt).
// That state can be exported and restored with ExportLearningData and
// ImportLearningData; the indexes themselves are always rebuilt from the
// catalog.
package search

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/bastiangx/booksearch/pkg/catalog"
	"github.com/charmbracelet/log"
)

const (
	DefaultMaxSuggestions  = 8
	DefaultMaxTypoDistance = 2

	instantMinLength = 2
	instantLimit     = 5

	// corrections only kick in for inputs longer than this many runes
	correctionMinLength = 2

	categoryBoostFactor     = 1.4
	authorBoostFactor       = 1.3
	recentSearchBoostFactor = 1.2
)

// QueryOptions controls which stages run for a query.
type QueryOptions struct {
	MaxSuggestions     int  `json:"maxSuggestions" msgpack:"max"`
	IncludeCorrections bool `json:"includeCorrections" msgpack:"corrections"`
	IncludeSemantic    bool `json:"includeSemanticSuggestions" msgpack:"semantic"`
	ContextBoost       bool `json:"contextBoost" msgpack:"context"`
}

// DefaultQueryOptions enables every stage. MaxSuggestions is left at zero
// so the engine's own limit applies.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{
		IncludeCorrections: true,
		IncludeSemantic:    true,
		ContextBoost:       true,
	}
}

// SearchContext narrows contextual suggestions to what the user is browsing.
type SearchContext struct {
	Category       string   `json:"category,omitempty" msgpack:"category,omitempty"`
	Author         string   `json:"author,omitempty" msgpack:"author,omitempty"`
	RecentSearches []string `json:"recentSearches,omitempty" msgpack:"recent,omitempty"`
}

// Engine owns every model. All exported methods are safe for concurrent
// use; they serialize on one mutex because even queries mutate the tracker.
type Engine struct {
	mu              sync.Mutex
	index           *Index
	ngrams          *NGramModel
	contexts        *ContextModel
	tracker         *Tracker
	maxTypoDistance int
	maxSuggestions  int
	documents       int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxTypoDistance sets the edit distance allowed for corrections.
func WithMaxTypoDistance(d int) Option {
	return func(e *Engine) {
		if d > 0 {
			e.maxTypoDistance = d
		}
	}
}

// WithMaxSuggestions sets the limit used when a query does not ask for one.
func WithMaxSuggestions(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxSuggestions = n
		}
	}
}

// WithRecentCapacity sets how many recent queries are remembered.
func WithRecentCapacity(n int) Option {
	return func(e *Engine) {
		e.tracker = NewTracker(n)
	}
}

// New returns an empty engine with the default popular queries.
func New(opts ...Option) *Engine {
	e := &Engine{
		index:           NewIndex(),
		ngrams:          NewNGramModel(),
		contexts:        NewContextModel(),
		tracker:         NewTracker(DefaultRecentCapacity),
		maxTypoDistance: DefaultMaxTypoDistance,
		maxSuggestions:  DefaultMaxSuggestions,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Initialize rebuilds the trie, n-gram and context models from a catalog
// snapshot. Learning data is kept.
func (e *Engine) Initialize(items []catalog.Item) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.index = NewIndex()
	e.ngrams = NewNGramModel()
	e.contexts = NewContextModel()
	e.documents = 0

	for _, item := range items {
		e.indexItem(item)
	}
	log.Debugf("Indexed %d items: vocabulary=[%d], ngrams=[%d], contexts=[%d]",
		len(items), e.index.Size(), e.ngrams.Size(), e.contexts.Size())
}

func (e *Engine) indexItem(item catalog.Item) {
	author := strings.TrimSpace(item.Author)
	category := strings.TrimSpace(item.Category)

	var contextWords []string

	if item.Title != "" {
		e.index.Insert(item.Title, TypeTitle, author, category)
		titleTokens := Tokenize(item.Title)
		for _, tok := range titleTokens {
			e.index.Insert(tok, TypeKeyword, author, category)
		}
		e.ngrams.Add(item.Title)
		contextWords = append(contextWords, titleTokens...)
	}
	if author != "" {
		e.index.Insert(author, TypeAuthor, author, category)
		for _, tok := range Tokenize(author) {
			e.index.Insert(tok, TypeKeyword, author, category)
		}
		e.ngrams.Add(author)
	}
	if category != "" {
		e.index.Insert(category, TypeCategory, "", category)
	}
	for _, kw := range item.Keywords {
		e.index.Insert(kw, TypeKeyword, author, category)
	}
	if item.Description != "" {
		e.ngrams.Add(item.Description)
		contextWords = append(contextWords, Tokenize(item.Description)...)
	}

	if len(contextWords) > 0 {
		e.contexts.Add(category, contextWords)
		e.contexts.Add(author, contextWords)
	}
	e.documents++
}

// AddDocument indexes a single free-text document. documentID is only
// used for logging.
func (e *Engine) AddDocument(text, documentID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tokens := Tokenize(text)
	for _, tok := range tokens {
		e.index.Insert(tok, TypeKeyword, "", "")
	}
	e.ngrams.Add(text)
	e.documents++
	log.Debugf("Added document %q with %d tokens", documentID, len(tokens))
}

// Autocomplete returns ranked suggestions for partial input. Empty input
// yields the most popular queries. Every non-empty input is recorded.
func (e *Engine) Autocomplete(input string, opts QueryOptions) []Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.autocomplete(input, opts)
}

func (e *Engine) autocomplete(input string, opts QueryOptions) []Result {
	limit := opts.MaxSuggestions
	if limit <= 0 {
		limit = e.maxSuggestions
	}

	query := normalize(input)
	if query == "" {
		return e.tracker.Top(limit)
	}

	merged := newResultSet()
	for _, r := range e.index.Collect(query, limit*2) {
		merged.add(r)
	}
	if opts.IncludeSemantic {
		for _, r := range e.ngrams.Predict(query, limit) {
			merged.add(r)
		}
	}
	if opts.IncludeCorrections && utf8.RuneCountInString(query) > correctionMinLength {
		for _, r := range e.index.Corrections(query, e.maxTypoDistance) {
			merged.add(r)
		}
	}
	if opts.ContextBoost {
		e.contexts.boost(merged, Tokenize(query))
	}
	e.tracker.boost(merged)

	results := merged.ranked(limit)
	e.tracker.Record(query)

	log.Debug("Autocomplete", "query", query, "candidates", merged.len(), "returned", len(results))
	return results
}

// Suggestions is Autocomplete with every stage on, returning only text.
// A non-positive maxSuggestions falls back to the engine limit.
func (e *Engine) Suggestions(query string, maxSuggestions int) []string {
	opts := DefaultQueryOptions()
	opts.MaxSuggestions = maxSuggestions
	return Texts(e.Autocomplete(query, opts))
}

// InstantSuggestions is the cheap per-keystroke variant: at least two
// runes of input, no typo correction, at most five results.
func (e *Engine) InstantSuggestions(partial string) []string {
	if utf8.RuneCountInString(strings.TrimSpace(partial)) < instantMinLength {
		return []string{}
	}
	opts := DefaultQueryOptions()
	opts.MaxSuggestions = instantLimit
	opts.IncludeCorrections = false
	return Texts(e.Autocomplete(partial, opts))
}

// ContextualSuggestions runs the standard pipeline and then favours
// results that match the browsing context.
func (e *Engine) ContextualSuggestions(query string, sc SearchContext) []Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	opts := DefaultQueryOptions()
	opts.MaxSuggestions = e.maxSuggestions * 2
	results := e.autocomplete(query, opts)

	category := normalize(sc.Category)
	author := normalize(sc.Author)
	recent := make([]string, 0, len(sc.RecentSearches))
	for _, r := range sc.RecentSearches {
		if n := normalize(r); n != "" {
			recent = append(recent, n)
		}
	}

	for i := range results {
		r := &results[i]
		if category != "" && mentions(r, category, func(m *Metadata) string { return m.Category }) {
			r.Score *= categoryBoostFactor
		}
		if author != "" && mentions(r, author, func(m *Metadata) string { return m.Author }) {
			r.Score *= authorBoostFactor
		}
		for _, q := range recent {
			if strings.Contains(r.Suggestion, q) {
				r.Score *= recentSearchBoostFactor
				break
			}
		}
	}

	sortResults(results)
	if len(results) > e.maxSuggestions {
		results = results[:e.maxSuggestions]
	}
	return results
}

// mentions reports whether a result's text or metadata field refers to want.
func mentions(r *Result, want string, field func(*Metadata) string) bool {
	if strings.Contains(r.Suggestion, want) {
		return true
	}
	return r.Metadata != nil && normalize(field(r.Metadata)) == want
}

// TrackSearch records a query submitted outside the autocomplete path.
// hasResults is logged but does not affect ranking.
func (e *Engine) TrackSearch(query string, hasResults bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tracker.Record(query)
	log.Debug("Tracked search", "query", query, "hasResults", hasResults)
}

// Adapt applies user feedback on a suggestion shown for originalQuery.
func (e *Engine) Adapt(selected, originalQuery string, action Action) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tracker.Adapt(selected, action)
	log.Debug("Feedback", "selected", selected, "query", originalQuery, "action", action)
}

// ExportLearningData snapshots popularity, recency and the frequency table.
func (e *Engine) ExportLearningData() LearningData {
	e.mu.Lock()
	defer e.mu.Unlock()

	popular, recent := e.tracker.snapshot()
	return newLearningData(popular, recent, e.index.frequencies())
}

// ImportLearningData replaces popularity, recency and the frequency table
// with a previously exported snapshot.
func (e *Engine) ImportLearningData(data LearningData) {
	e.mu.Lock()
	defer e.mu.Unlock()

	popular, freqs := data.maps()
	e.tracker.restore(popular, data.RecentQueries)
	e.index.setFrequencies(freqs)
	log.Debugf("Imported learning data: popular=[%d], recent=[%d], frequencies=[%d]",
		len(data.PopularQueries), len(data.RecentQueries), len(data.FrequencyModel))
}

// Stats returns counters about the loaded models.
func (e *Engine) Stats() map[string]int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return map[string]int{
		"documents":      e.documents,
		"vocabulary":     e.index.Size(),
		"ngramWords":     e.ngrams.Size(),
		"contexts":       e.contexts.Size(),
		"recentQueries":  len(e.tracker.recent),
		"popularQueries": len(e.tracker.popular),
	}
}
