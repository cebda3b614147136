// Package cli handles cmd line input and suggestions for DBG and testing various features
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/booksearch/internal/utils"
	"github.com/bastiangx/booksearch/pkg/search"
	"github.com/charmbracelet/log"
)

// Engine is what the CLI needs from search.Engine.
type Engine interface {
	Autocomplete(input string, opts search.QueryOptions) []search.Result
	Adapt(selected, originalQuery string, action search.Action)
}

// InputHandler processes user input from stdin, providing
// suggestions. It accepts many flags to control behavior such as
// minimum and maximum query length, suggestion limits, and filtering options.
//
// Lines starting with :sel or :rej report feedback on a suggestion of the
// previous query instead of searching.
type InputHandler struct {
	engine         Engine
	reader         io.Reader
	minQueryLength int
	maxQueryLength int
	suggestLimit   int
	noFilter       bool
	lastQuery      string
}

// NewInputHandler handles initialization of the InputHandler with basic parameters
func NewInputHandler(engine Engine, minLength, maxLength, limit int, noFilter bool) *InputHandler {
	return &InputHandler{
		engine:         engine,
		reader:         os.Stdin,
		minQueryLength: minLength,
		maxQueryLength: maxLength,
		suggestLimit:   limit,
		noFilter:       noFilter,
	}
}

// Start begins the interface loop.
// It continuously prompts for input, reads a line from stdin,
// and passes the trimmed input to handleInput() for processing.
// Loop terminates on EOF or when reading from stdin fails.
func (h *InputHandler) Start() error {
	log.Print("BookSearch CLI [BETA]")
	reader := bufio.NewReader(h.reader)
	log.Print("type a query and press Enter to see the suggestions (:sel <text> / :rej <text> for feedback, Ctrl+C to exit):")

	for {
		log.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		h.handleInput(strings.TrimSpace(line))
	}
}

func (h *InputHandler) handleInput(line string) {
	switch {
	case strings.HasPrefix(line, ":sel "):
		h.feedback(strings.TrimPrefix(line, ":sel "), search.ActionSelected)
		return
	case strings.HasPrefix(line, ":rej "):
		h.feedback(strings.TrimPrefix(line, ":rej "), search.ActionRejected)
		return
	}
	h.handleQuery(line)
}

func (h *InputHandler) feedback(selected string, action search.Action) {
	selected = strings.TrimSpace(selected)
	if selected == "" {
		log.Error("Nothing to give feedback on")
		return
	}
	h.engine.Adapt(selected, h.lastQuery, action)
	log.Infof("Recorded %s for '%s'", action, selected)
}

// handleQuery validates a query's length and content, then asks the engine
// for suggestions. An empty line shows the most popular queries.
func (h *InputHandler) handleQuery(query string) {
	length := utf8.RuneCountInString(query)
	if length > 0 && length < h.minQueryLength {
		log.Errorf("Query too short: %s", query)
		return
	}
	if length > h.maxQueryLength {
		log.Errorf("Query too long: %s", query)
		return
	}

	// input filtering by default (unless --no-filter flag is used)
	if !h.noFilter && length > 0 {
		if !utils.IsValidInput(query) {
			log.Warnf("No suggestions found for query: '%s' (filtered out)", query)
			return
		}
	} else if h.noFilter {
		log.Debug("Input filtering disabled")
	}

	start := time.Now()
	log.Debug("Processing request for", "query", query)

	opts := search.DefaultQueryOptions()
	opts.MaxSuggestions = h.suggestLimit
	results := h.engine.Autocomplete(query, opts)
	h.lastQuery = query

	log.Debugf("Took [ %v ] for query '%s'", time.Since(start), query)

	if len(results) == 0 {
		log.Warnf("No suggestions found for query: '%s'", query)
		return
	}

	log.Printf("Found %d suggestions for '%s':", len(results), query)
	for i, r := range results {
		word := fmt.Sprintf("\033[38;5;75m%s\033[0m", r.Suggestion)
		freq := 0
		if r.Metadata != nil {
			freq = r.Metadata.Frequency
		}
		log.Printf("%2d. %-50s %-10s (score: %6.2f, freq: %6s)", i+1, word, r.Kind, r.Score, utils.FormatWithCommas(freq))
	}
}
