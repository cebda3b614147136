package main

import (
	"flag"
	"io"
	"testing"

	"github.com/bastiangx/booksearch/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parse registers the server flags on a fresh set the way main does.
func parse(t *testing.T, args ...string) (*flag.FlagSet, *int, *int, *bool, *string) {
	t.Helper()
	fs := flag.NewFlagSet("booksearch", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	minPrefix := fs.Int("prmin", 1, "")
	maxPrefix := fs.Int("prmax", 60, "")
	noFilter := fs.Bool("no-filter", false, "")
	httpAddr := fs.String("http", "", "")
	require.NoError(t, fs.Parse(args))
	return fs, minPrefix, maxPrefix, noFilter, httpAddr
}

func TestServerConfigSurvivesUnsetFlags(t *testing.T) {
	server := config.ServerConfig{MinPrefix: 3, MaxPrefix: 40, EnableFilter: true, HTTPAddr: ":18099"}
	fs, minPrefix, maxPrefix, noFilter, httpAddr := parse(t)

	applyServerFlags(&server, explicitFlags(fs), *minPrefix, *maxPrefix, *noFilter)

	assert.Equal(t, 3, server.MinPrefix)
	assert.Equal(t, 40, server.MaxPrefix)
	assert.True(t, server.EnableFilter)
	assert.Equal(t, ":18099", httpAddress(*httpAddr, server))
}

func TestServerFlagsOverrideConfig(t *testing.T) {
	server := config.ServerConfig{MinPrefix: 3, MaxPrefix: 40, EnableFilter: true, HTTPAddr: ":18099"}
	fs, minPrefix, maxPrefix, noFilter, httpAddr := parse(t, "-prmin", "2", "-prmax", "10", "-no-filter", "-http", ":9000")

	applyServerFlags(&server, explicitFlags(fs), *minPrefix, *maxPrefix, *noFilter)

	assert.Equal(t, 2, server.MinPrefix)
	assert.Equal(t, 10, server.MaxPrefix)
	assert.False(t, server.EnableFilter)
	assert.Equal(t, ":9000", httpAddress(*httpAddr, server))
}

func TestHTTPOffByDefault(t *testing.T) {
	assert.Empty(t, httpAddress("", config.DefaultConfig().Server))
}

func TestCLIDefaultsFromConfig(t *testing.T) {
	cli := config.CliConfig{DefaultLimit: 4, DefaultMinLen: 2, DefaultMaxLen: 30, DefaultNoFilter: true}
	limit, minPrefix, maxPrefix, noFilter := 8, 5, 60, false

	applyCLIDefaults(cli, map[string]bool{"prmin": true}, &limit, &minPrefix, &maxPrefix, &noFilter)

	assert.Equal(t, 4, limit)
	assert.Equal(t, 5, minPrefix, "explicit -prmin must win")
	assert.Equal(t, 30, maxPrefix)
	assert.True(t, noFilter)
}
