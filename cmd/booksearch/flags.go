package main

import (
	"flag"

	"github.com/bastiangx/booksearch/pkg/config"
)

// explicitFlags returns the names of the flags given on the command line.
func explicitFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// applyServerFlags overrides the server bounds with the flags the user
// actually passed. Unset flags leave the config values alone.
func applyServerFlags(server *config.ServerConfig, set map[string]bool, minPrefix, maxPrefix int, noFilter bool) {
	if set["prmin"] {
		server.MinPrefix = minPrefix
	}
	if set["prmax"] {
		server.MaxPrefix = maxPrefix
	}
	if set["no-filter"] && noFilter {
		server.EnableFilter = false
	}
}

// applyCLIDefaults fills unset CLI flags from the [cli] config section.
func applyCLIDefaults(cli config.CliConfig, set map[string]bool, limit, minPrefix, maxPrefix *int, noFilter *bool) {
	if !set["limit"] {
		*limit = cli.DefaultLimit
	}
	if !set["prmin"] {
		*minPrefix = cli.DefaultMinLen
	}
	if !set["prmax"] {
		*maxPrefix = cli.DefaultMaxLen
	}
	if !set["no-filter"] {
		*noFilter = cli.DefaultNoFilter
	}
}

// httpAddress prefers the -http flag over [server] http_addr. An empty
// result means the HTTP API stays off.
func httpAddress(flagAddr string, server config.ServerConfig) string {
	if flagAddr != "" {
		return flagAddr
	}
	return server.HTTPAddr
}
