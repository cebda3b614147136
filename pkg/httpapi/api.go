/*
Package httpapi exposes the search engine over HTTP with JSON bodies.

Routes:

	GET  /health
	GET  /api/suggest?q=&limit=&corrections=&semantic=&context=
	GET  /api/instant?q=
	GET  /api/contextual?q=&category=&author=&recent=
	POST /api/feedback   {"selected": "...", "query": "...", "action": "selected|rejected"}
	POST /api/track      {"query": "...", "has_results": true}
	GET  /api/learning
	PUT  /api/learning
	GET  /api/stats

Failures are reported as ErrorResponse with the matching status code.
*/
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/booksearch/internal/logger"
	"github.com/bastiangx/booksearch/internal/utils"
	"github.com/bastiangx/booksearch/pkg/config"
	"github.com/bastiangx/booksearch/pkg/search"
	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
)

const (
	maxBodyBytes    = 8 << 20
	shutdownTimeout = 5 * time.Second
)

// Engine is the part of search.Engine the API drives.
type Engine interface {
	Autocomplete(input string, opts search.QueryOptions) []search.Result
	InstantSuggestions(partial string) []string
	ContextualSuggestions(query string, sc search.SearchContext) []search.Result
	Adapt(selected, originalQuery string, action search.Action)
	TrackSearch(query string, hasResults bool)
	ExportLearningData() search.LearningData
	ImportLearningData(data search.LearningData)
	Stats() map[string]int
}

// SuggestResponse is returned by /api/suggest and /api/contextual.
type SuggestResponse struct {
	Query       string          `json:"query"`
	Suggestions []search.Result `json:"suggestions"`
	Count       int             `json:"count"`
	TimeTaken   int64           `json:"time_us"`
}

// InstantResponse is returned by /api/instant.
type InstantResponse struct {
	Query       string   `json:"query"`
	Suggestions []string `json:"suggestions"`
	Count       int      `json:"count"`
}

// FeedbackRequest reports a user's reaction to a suggestion.
type FeedbackRequest struct {
	Selected string `json:"selected"`
	Query    string `json:"query"`
	Action   string `json:"action"`
}

// TrackRequest records a submitted search.
type TrackRequest struct {
	Query      string `json:"query"`
	HasResults bool   `json:"has_results"`
}

// StatusResponse is the body of endpoints with nothing else to say.
type StatusResponse struct {
	Status string `json:"status"`
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// API serves the engine over HTTP.
type API struct {
	engine Engine
	config config.ServerConfig
	router *mux.Router
	log    *log.Logger
}

// New builds the router for engine.
func New(engine Engine, cfg config.ServerConfig) *API {
	a := &API{engine: engine, config: cfg, router: mux.NewRouter(), log: logger.New("http")}

	a.router.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)

	api := a.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/suggest", a.handleSuggest).Methods(http.MethodGet)
	api.HandleFunc("/instant", a.handleInstant).Methods(http.MethodGet)
	api.HandleFunc("/contextual", a.handleContextual).Methods(http.MethodGet)
	api.HandleFunc("/feedback", a.handleFeedback).Methods(http.MethodPost)
	api.HandleFunc("/track", a.handleTrack).Methods(http.MethodPost)
	api.HandleFunc("/learning", a.handleExport).Methods(http.MethodGet)
	api.HandleFunc("/learning", a.handleImport).Methods(http.MethodPut)
	api.HandleFunc("/stats", a.handleStats).Methods(http.MethodGet)
	return a
}

// ServeHTTP implements http.Handler.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (a *API) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.log.Infof("Listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	}
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (a *API) handleSuggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	filtered, err := a.checkQuery(query)
	if err != nil {
		sendError(w, http.StatusBadRequest, err)
		return
	}

	opts := search.DefaultQueryOptions()
	if opts.MaxSuggestions, err = a.parseLimit(q.Get("limit")); err != nil {
		sendError(w, http.StatusBadRequest, err)
		return
	}
	for name, target := range map[string]*bool{
		"corrections": &opts.IncludeCorrections,
		"semantic":    &opts.IncludeSemantic,
		"context":     &opts.ContextBoost,
	} {
		if err := parseBool(q.Get(name), target); err != nil {
			sendError(w, http.StatusBadRequest, fmt.Errorf("invalid %s: %w", name, err))
			return
		}
	}

	start := time.Now()
	results := []search.Result{}
	if !filtered {
		results = nonNil(a.engine.Autocomplete(query, opts))
	}
	sendJSON(w, http.StatusOK, SuggestResponse{
		Query:       query,
		Suggestions: results,
		Count:       len(results),
		TimeTaken:   time.Since(start).Microseconds(),
	})
}

func (a *API) handleInstant(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	filtered, err := a.checkQuery(query)
	if err != nil {
		sendError(w, http.StatusBadRequest, err)
		return
	}
	suggestions := []string{}
	if !filtered {
		suggestions = a.engine.InstantSuggestions(query)
	}
	sendJSON(w, http.StatusOK, InstantResponse{Query: query, Suggestions: suggestions, Count: len(suggestions)})
}

func (a *API) handleContextual(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	filtered, err := a.checkQuery(query)
	if err != nil {
		sendError(w, http.StatusBadRequest, err)
		return
	}

	var recent []string
	for _, v := range q["recent"] {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				recent = append(recent, s)
			}
		}
	}

	start := time.Now()
	results := []search.Result{}
	if !filtered {
		results = nonNil(a.engine.ContextualSuggestions(query, search.SearchContext{
			Category:       q.Get("category"),
			Author:         q.Get("author"),
			RecentSearches: recent,
		}))
	}
	sendJSON(w, http.StatusOK, SuggestResponse{
		Query:       query,
		Suggestions: results,
		Count:       len(results),
		TimeTaken:   time.Since(start).Microseconds(),
	})
}

func (a *API) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := decodeBody(w, r, &req); err != nil {
		sendError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Selected) == "" {
		sendError(w, http.StatusBadRequest, errors.New("missing 'selected'"))
		return
	}
	action := search.Action(req.Action)
	if action != search.ActionSelected && action != search.ActionRejected {
		sendError(w, http.StatusBadRequest, fmt.Errorf("invalid action %q", req.Action))
		return
	}
	a.engine.Adapt(req.Selected, req.Query, action)
	sendJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (a *API) handleTrack(w http.ResponseWriter, r *http.Request) {
	var req TrackRequest
	if err := decodeBody(w, r, &req); err != nil {
		sendError(w, http.StatusBadRequest, err)
		return
	}
	a.engine.TrackSearch(req.Query, req.HasResults)
	sendJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (a *API) handleExport(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, a.engine.ExportLearningData())
}

func (a *API) handleImport(w http.ResponseWriter, r *http.Request) {
	var data search.LearningData
	if err := decodeBody(w, r, &data); err != nil {
		sendError(w, http.StatusBadRequest, err)
		return
	}
	a.engine.ImportLearningData(data)
	sendJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, a.engine.Stats())
}

// checkQuery applies the configured length bounds and input filter.
func (a *API) checkQuery(query string) (filtered bool, err error) {
	length := utf8.RuneCountInString(query)
	if length == 0 {
		return false, nil
	}
	if length < a.config.MinPrefix {
		return false, fmt.Errorf("query must be at least %d characters", a.config.MinPrefix)
	}
	if a.config.MaxPrefix > 0 && length > a.config.MaxPrefix {
		return false, fmt.Errorf("query exceeds maximum length of %d characters", a.config.MaxPrefix)
	}
	if a.config.EnableFilter && !utils.IsValidInput(query) {
		a.log.Debugf("Filtered query '%s'", query)
		return true, nil
	}
	return false, nil
}

// parseLimit returns 0 for an empty limit so the engine's own limit applies.
func (a *API) parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	if a.config.MaxLimit > 0 && limit > a.config.MaxLimit {
		limit = a.config.MaxLimit
	}
	return limit, nil
}

// parseBool leaves target untouched when raw is empty.
func parseBool(raw string, target *bool) error {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return err
	}
	*target = v
	return nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func nonNil(results []search.Result) []search.Result {
	if results == nil {
		return []search.Result{}
	}
	return results
}

func sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Errorf("Encoding response: %v", err)
	}
}

func sendError(w http.ResponseWriter, status int, err error) {
	log.Debugf("Request failed: %v", err)
	sendJSON(w, status, ErrorResponse{Error: err.Error(), Status: status})
}
