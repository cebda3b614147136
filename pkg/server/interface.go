/*
Package server implements msgpack IPC for book search suggestions.

The server reads msgpack encoded requests from stdin and writes msgpack
responses to stdout. Values are written back to back with no extra framing;
the stream ends when stdin is closed.

# IPC

Every request carries an ID and a command. The ID is echoed back so clients
can pipeline requests.

A completion request looks like:

	{"id": "req_001", "cmd": "complete", "q": "гарі", "l": 8}

and is answered with ranked suggestions:

	{"id": "req_001", "s": [{"w": "гаррі поттер", "r": 1, "s": 41.3, "k": "prefix"}], "c": 1, "t": 145}

Time is reported in microseconds.

# Commands

complete runs the full pipeline: trie lookup, n-gram continuations, typo
corrections, context, popularity and recency boosts. The corr, sem and boost
flags turn single stages off.

instant returns up to five suggestions without typo correction, for
keystroke-level feedback.

contextual narrows the result to a category, an author or the user's recent
searches via cat, a and rec.

feedback reports that a suggestion was selected or rejected (sel, act).
track records a submitted search (q, hr).

export and import move the learning snapshot (popularity, recency and term
frequencies) in and out of the engine. stats and health report status.

config changes the server limits without a restart:

	{"id": "cfg_1", "cmd": "config", "max": 20, "prmin": 2, "filter": false}

Omitted fields keep their value. When the server was started from a config
file the change is also written back to it.

Failed requests are answered with CompletionError, carrying an HTTP-like
status code.
*/
package server

import "github.com/bastiangx/booksearch/pkg/search"

// Request is the envelope for every command. Only the fields relevant to
// Command are read.
type Request struct {
	ID      string `msgpack:"id"`
	Command string `msgpack:"cmd"`
	Query   string `msgpack:"q"`
	Limit   int    `msgpack:"l,omitempty"`

	Corrections *bool `msgpack:"corr,omitempty"`
	Semantic    *bool `msgpack:"sem,omitempty"`
	Boost       *bool `msgpack:"boost,omitempty"`

	Category string   `msgpack:"cat,omitempty"`
	Author   string   `msgpack:"a,omitempty"`
	Recent   []string `msgpack:"rec,omitempty"`

	Selected   string `msgpack:"sel,omitempty"`
	Action     string `msgpack:"act,omitempty"`
	HasResults bool   `msgpack:"hr,omitempty"`

	Data *search.LearningData `msgpack:"data,omitempty"`

	MaxLimit     *int  `msgpack:"max,omitempty"`
	MinPrefix    *int  `msgpack:"prmin,omitempty"`
	MaxPrefix    *int  `msgpack:"prmax,omitempty"`
	EnableFilter *bool `msgpack:"filter,omitempty"`
}

// Commands understood by the server.
const (
	CmdComplete   = "complete"
	CmdInstant    = "instant"
	CmdContextual = "contextual"
	CmdFeedback   = "feedback"
	CmdTrack      = "track"
	CmdExport     = "export"
	CmdImport     = "import"
	CmdStats      = "stats"
	CmdHealth     = "health"
	CmdConfig     = "config"
)

// CompletionSuggestion - minimal suggestion response
type CompletionSuggestion struct {
	Word  string      `msgpack:"w"`
	Rank  uint16      `msgpack:"r"`
	Score float64     `msgpack:"s,omitempty"`
	Kind  search.Kind `msgpack:"k,omitempty"`
}

// CompletionResponse - completion response
type CompletionResponse struct {
	ID          string                 `msgpack:"id"`
	Suggestions []CompletionSuggestion `msgpack:"s"`
	Count       int                    `msgpack:"c"`
	TimeTaken   int64                  `msgpack:"t"`
}

// StatusResponse answers health, stats, feedback, track and import.
type StatusResponse struct {
	ID     string         `msgpack:"id"`
	Status string         `msgpack:"status"`
	Stats  map[string]int `msgpack:"stats,omitempty"`
}

// LearningResponse carries an exported snapshot.
type LearningResponse struct {
	ID   string              `msgpack:"id"`
	Data search.LearningData `msgpack:"data"`
}

// ConfigResponse - config operation response, carrying the values now in effect
type ConfigResponse struct {
	ID           string `msgpack:"id"`
	Status       string `msgpack:"status"`
	MaxLimit     int    `msgpack:"max"`
	MinPrefix    int    `msgpack:"prmin"`
	MaxPrefix    int    `msgpack:"prmax"`
	EnableFilter bool   `msgpack:"filter"`
}

// CompletionError holds basic error information for failed requests
type CompletionError struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
