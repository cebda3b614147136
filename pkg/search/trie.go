package search

import (
	"errors"
	"math"
	"sort"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// EntryType records which catalog field produced an indexed string.
type EntryType string

const (
	TypeTitle    EntryType = "title"
	TypeAuthor   EntryType = "author"
	TypeCategory EntryType = "category"
	TypeKeyword  EntryType = "keyword"
)

// Provenance is one origin of an indexed string. It is comparable, so a
// map keyed by Provenance gives set semantics for free.
type Provenance struct {
	Type     EntryType
	Author   string
	Category string
}

const (
	// maxTrieDepth bounds how many runes past the prefix a collected word may run.
	maxTrieDepth = 20
	// deepPenaltyDepth is the suffix length after which trie scores are halved.
	deepPenaltyDepth = 10
	// trieMatchBonus applies to every trie hit, exact or prefix alike.
	trieMatchBonus = 2.0
)

var errStopWalk = errors.New("search: collection limit reached")

type entry struct {
	frequency  int
	provenance map[Provenance]struct{}
}

// provenances returns the entry's origins in a stable order.
func (e *entry) provenances() []Provenance {
	out := make([]Provenance, 0, len(e.provenance))
	for p := range e.provenance {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		if out[i].Author != out[j].Author {
			return out[i].Author < out[j].Author
		}
		return out[i].Category < out[j].Category
	})
	return out
}

func (e *entry) isTitle() bool {
	for p := range e.provenance {
		if p.Type == TypeTitle {
			return true
		}
	}
	return false
}

// Index is the prefix tree over titles, authors, categories and tokens,
// together with the flat frequency table used for typo correction.
type Index struct {
	trie  *patricia.Trie
	freqs map[string]int
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		trie:  patricia.NewTrie(),
		freqs: make(map[string]int),
	}
}

// Insert adds word to the index. Empty input is ignored.
func (ix *Index) Insert(word string, typ EntryType, author, category string) {
	w := normalize(word)
	if w == "" {
		return
	}
	key := patricia.Prefix(w)

	var e *entry
	if item := ix.trie.Get(key); item != nil {
		e = item.(*entry)
	} else {
		e = &entry{provenance: make(map[Provenance]struct{}, 1)}
		ix.trie.Insert(key, e)
	}
	e.frequency++
	e.provenance[Provenance{Type: typ, Author: author, Category: category}] = struct{}{}
	ix.freqs[w]++
}

// HasPrefix reports whether any indexed string starts with prefix.
func (ix *Index) HasPrefix(prefix string) bool {
	p := normalize(prefix)
	if p == "" {
		return false
	}
	return ix.trie.MatchSubtree(patricia.Prefix(p))
}

// Frequency returns the frequency table count for word.
func (ix *Index) Frequency(word string) int {
	return ix.freqs[normalize(word)]
}

// Size is the number of distinct strings in the frequency table.
func (ix *Index) Size() int {
	return len(ix.freqs)
}

// Collect walks the subtree below prefix and scores every complete string
// found, stopping once max results are gathered.
func (ix *Index) Collect(prefix string, max int) []Result {
	p := normalize(prefix)
	if p == "" || max <= 0 {
		return nil
	}
	if !ix.trie.MatchSubtree(patricia.Prefix(p)) {
		return nil
	}

	base := utf8.RuneCountInString(p)
	results := make([]Result, 0, max)

	err := ix.trie.VisitSubtree(patricia.Prefix(p), func(key patricia.Prefix, item patricia.Item) error {
		if len(results) >= max {
			return errStopWalk
		}
		word := string(key)
		depth := utf8.RuneCountInString(word) - base
		if depth > maxTrieDepth {
			return nil
		}
		e, ok := item.(*entry)
		if !ok {
			log.Errorf("Unknown item type: %T for word %s", item, word)
			return nil
		}
		results = append(results, trieResult(word, p, depth, e))
		return nil
	})
	if err != nil && !errors.Is(err, errStopWalk) {
		log.Errorf("Error visiting trie subtree: %v", err)
	}
	return results
}

func trieResult(word, query string, depth int, e *entry) Result {
	score := math.Log(float64(e.frequency)+1) * 10 * trieMatchBonus
	if depth > deepPenaltyDepth {
		score *= 0.5
	}

	kind := KindPrefix
	if word == query {
		kind = KindExact
	}

	meta := &Metadata{
		Frequency:   e.frequency,
		IsBookTitle: e.isTitle(),
	}
	for _, p := range e.provenances() {
		if meta.Author == "" && p.Author != "" {
			meta.Author = p.Author
		}
		if meta.Category == "" && p.Category != "" {
			meta.Category = p.Category
		}
	}

	return Result{Suggestion: word, Score: score, Kind: kind, Metadata: meta}
}

// frequencies copies the frequency table.
func (ix *Index) frequencies() map[string]int {
	out := make(map[string]int, len(ix.freqs))
	for k, v := range ix.freqs {
		out[k] = v
	}
	return out
}

// setFrequencies replaces the frequency table. The trie nodes keep their
// own counts until the next rebuild.
func (ix *Index) setFrequencies(freqs map[string]int) {
	ix.freqs = make(map[string]int, len(freqs))
	for k, v := range freqs {
		ix.freqs[k] = v
	}
}
