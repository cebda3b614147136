package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/booksearch/internal/logger"
	"github.com/bastiangx/booksearch/internal/utils"
	"github.com/bastiangx/booksearch/pkg/config"
	"github.com/bastiangx/booksearch/pkg/search"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrUnknownCommand is reported for requests with an unsupported cmd.
var ErrUnknownCommand = errors.New("unknown command")

// Engine is the part of search.Engine the server drives.
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

// Server handles the IPC for book search suggestions
type Server struct {
	engine     Engine
	config     config.ServerConfig
	configPath string
	decoder    *msgpack.Decoder
	writer     io.Writer
	log        *log.Logger
}

// NewServer creates a server on stdin/stdout.
func NewServer(engine Engine, cfg config.ServerConfig) *Server {
	return NewServerWithIO(engine, cfg, os.Stdin, os.Stdout)
}

// NewServerWithIO creates a server reading requests from r and writing responses to w.
func NewServerWithIO(engine Engine, cfg config.ServerConfig, r io.Reader, w io.Writer) *Server {
	return &Server{
		engine:  engine,
		config:  cfg,
		decoder: msgpack.NewDecoder(bufio.NewReader(r)),
		writer:  w,
		log:     logger.New("ipc"),
	}
}

// SetConfigPath makes config commands persist to the TOML file at path.
// Without it they only change the running server.
func (s *Server) SetConfigPath(path string) {
	s.configPath = path
}

// Start serves requests until the input is closed or ctx is cancelled.
// A blocked read on stdin cannot be interrupted, so on cancellation the
// read loop is abandoned rather than joined.
func (s *Server) Start(ctx context.Context) error {
	s.log.Debug("Starting IPC server.")
	s.sendResponse(StatusResponse{Status: "ready"})

	errc := make(chan error, 1)
	go func() { errc <- s.loop() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return nil
	}
}

func (s *Server) loop() error {
	for {
		var request Request
		if err := s.decoder.Decode(&request); err != nil {
			if errors.Is(err, io.EOF) {
				s.log.Debug("IPC input closed")
				return nil
			}
			// msgpack has no resync point, a broken frame ends the session
			s.sendError("", "Invalid msgpack request", 400)
			return fmt.Errorf("decode request: %w", err)
		}
		s.handleRequest(request)
	}
}

func (s *Server) handleRequest(request Request) {
	switch request.Command {
	case CmdComplete:
		s.handleComplete(request)
	case CmdInstant:
		s.handleInstant(request)
	case CmdContextual:
		s.handleContextual(request)
	case CmdFeedback:
		s.handleFeedback(request)
	case CmdTrack:
		s.engine.TrackSearch(request.Query, request.HasResults)
		s.sendResponse(StatusResponse{ID: request.ID, Status: "ok"})
	case CmdExport:
		s.sendResponse(LearningResponse{ID: request.ID, Data: s.engine.ExportLearningData()})
	case CmdImport:
		if request.Data == nil {
			s.sendError(request.ID, "Missing 'data' field", 400)
			return
		}
		s.engine.ImportLearningData(*request.Data)
		s.sendResponse(StatusResponse{ID: request.ID, Status: "ok"})
	case CmdStats:
		s.sendResponse(StatusResponse{ID: request.ID, Status: "ok", Stats: s.engine.Stats()})
	case CmdHealth:
		s.sendResponse(StatusResponse{ID: request.ID, Status: "ok"})
	case CmdConfig:
		s.handleConfig(request)
	default:
		s.sendError(request.ID, fmt.Sprintf("%v: %q", ErrUnknownCommand, request.Command), 400)
	}
}

// validateQuery applies the configured length bounds and input filter.
// filtered is true when the query is well formed but not worth a lookup.
func (s *Server) validateQuery(request Request) (filtered bool, ok bool) {
	length := utf8.RuneCountInString(request.Query)
	if length == 0 {
		return false, true
	}
	if length < s.config.MinPrefix {
		s.sendError(request.ID, fmt.Sprintf("Query must be at least %d characters", s.config.MinPrefix), 400)
		s.log.Debug("Query is too short in request", "id", request.ID)
		return false, false
	}
	if s.config.MaxPrefix > 0 && length > s.config.MaxPrefix {
		s.sendError(request.ID, fmt.Sprintf("Query exceeds maximum length of %d characters", s.config.MaxPrefix), 400)
		s.log.Debug("Query is too long in request", "id", request.ID)
		return false, false
	}
	if s.config.EnableFilter && !utils.IsValidInput(request.Query) {
		s.log.Debugf("Filtered query '%s'", request.Query)
		return true, true
	}
	return false, true
}

// limit clamps a requested count. Zero leaves the choice to the engine.
func (s *Server) limit(requested int) int {
	if requested < 1 {
		return 0
	}
	if s.config.MaxLimit > 0 && requested > s.config.MaxLimit {
		return s.config.MaxLimit
	}
	return requested
}

func (s *Server) handleComplete(request Request) {
	filtered, ok := s.validateQuery(request)
	if !ok {
		return
	}
	opts := search.DefaultQueryOptions()
	opts.MaxSuggestions = s.limit(request.Limit)
	if request.Corrections != nil {
		opts.IncludeCorrections = *request.Corrections
	}
	if request.Semantic != nil {
		opts.IncludeSemantic = *request.Semantic
	}
	if request.Boost != nil {
		opts.ContextBoost = *request.Boost
	}

	start := time.Now()
	var results []search.Result
	if !filtered {
		results = s.engine.Autocomplete(request.Query, opts)
	}
	s.sendResults(request.ID, results, time.Since(start))
}

func (s *Server) handleInstant(request Request) {
	filtered, ok := s.validateQuery(request)
	if !ok {
		return
	}
	start := time.Now()
	var results []search.Result
	if !filtered {
		for _, w := range s.engine.InstantSuggestions(request.Query) {
			results = append(results, search.Result{Suggestion: w})
		}
	}
	s.sendResults(request.ID, results, time.Since(start))
}

func (s *Server) handleContextual(request Request) {
	filtered, ok := s.validateQuery(request)
	if !ok {
		return
	}
	start := time.Now()
	var results []search.Result
	if !filtered {
		results = s.engine.ContextualSuggestions(request.Query, search.SearchContext{
			Category:       request.Category,
			Author:         request.Author,
			RecentSearches: request.Recent,
		})
		if request.Limit > 0 && len(results) > request.Limit {
			results = results[:request.Limit]
		}
	}
	s.sendResults(request.ID, results, time.Since(start))
}

func (s *Server) handleFeedback(request Request) {
	if request.Selected == "" {
		s.sendError(request.ID, "Missing 'sel' field", 400)
		return
	}
	action := search.Action(request.Action)
	if action != search.ActionSelected && action != search.ActionRejected {
		s.sendError(request.ID, fmt.Sprintf("Invalid action %q", request.Action), 400)
		return
	}
	s.engine.Adapt(request.Selected, request.Query, action)
	s.sendResponse(StatusResponse{ID: request.ID, Status: "ok"})
}

func (s *Server) handleConfig(request Request) {
	next := config.Config{Server: s.config}
	if err := next.Apply(request.MaxLimit, request.MinPrefix, request.MaxPrefix, request.EnableFilter); err != nil {
		s.sendError(request.ID, err.Error(), 400)
		return
	}

	// the file is updated from its own contents so flag overrides stay out of it
	if s.configPath != "" {
		onDisk, err := config.LoadConfig(s.configPath)
		if err == nil {
			err = onDisk.Update(s.configPath, request.MaxLimit, request.MinPrefix, request.MaxPrefix, request.EnableFilter)
		}
		if err != nil {
			code := 500
			if errors.Is(err, config.ErrInvalidServerConfig) {
				code = 400
			}
			s.log.Errorf("Saving config to %s: %v", s.configPath, err)
			s.sendError(request.ID, fmt.Sprintf("Saving config: %v", err), code)
			return
		}
	}

	s.config = next.Server
	s.log.Debug("Server config updated", "max", s.config.MaxLimit, "prmin", s.config.MinPrefix,
		"prmax", s.config.MaxPrefix, "filter", s.config.EnableFilter)
	s.sendResponse(ConfigResponse{
		ID:           request.ID,
		Status:       "ok",
		MaxLimit:     s.config.MaxLimit,
		MinPrefix:    s.config.MinPrefix,
		MaxPrefix:    s.config.MaxPrefix,
		EnableFilter: s.config.EnableFilter,
	})
}

func (s *Server) sendResults(id string, results []search.Result, elapsed time.Duration) {
	ranks := utils.RankPositions(len(results))
	suggestions := make([]CompletionSuggestion, len(results))
	for i, r := range results {
		suggestions[i] = CompletionSuggestion{
			Word:  r.Suggestion,
			Rank:  ranks[i],
			Score: r.Score,
			Kind:  r.Kind,
		}
	}
	s.log.Debugf("Took [ %v ] for request '%s'", elapsed, id)
	s.sendResponse(CompletionResponse{
		ID:          id,
		Suggestions: suggestions,
		Count:       len(suggestions),
		TimeTaken:   elapsed.Microseconds(),
	})
}

// sendResponse encodes one response and writes it in a single call so
// frames are never interleaved.
func (s *Server) sendResponse(response any) {
	data, err := msgpack.Marshal(response)
	if err != nil {
		s.log.Errorf("Marshaling response: %v", err)
		return
	}
	if _, err := s.writer.Write(data); err != nil {
		s.log.Errorf("Writing response: %v", err)
	}
}

func (s *Server) sendError(id, message string, code int) {
	s.sendResponse(CompletionError{ID: id, Error: message, Code: code})
}
