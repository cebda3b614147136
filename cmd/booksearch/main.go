// Copyright 2025 The BookSearch Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the book search suggestion server and CLI [DBG] application.

Note: This is a BETA release. APIs and functionality may rapidly change.

BookSearch suggests book titles, authors, categories and keywords while a user
types into a children's book catalog search box. Suggestions come from a
Patricia trie over the catalog, word bigrams, typo correction and a small
learning layer that tracks what users search for and pick.

# Usage

Start the msgpack IPC server on stdin/stdout with the catalog from config:

	booksearch

Serve the HTTP API instead, reading the catalog from a file. Setting
http_addr in the config does the same:

	booksearch -catalog data/catalog.json -http :8080

Serve both HTTP and IPC:

	booksearch -http :8080 -ipc

Run in CLI mode for interactive testing:

	booksearch -c -limit 10 -prmin 2

The catalog is a JSON array of items:

	[{"id": "1", "title": "Пригоди Незнайка", "author": "Микола Носов", "category": "пригоди"}]

It can be read from a file, fetched from a URL, or both. A file catalog is
watched and the engine is rebuilt when it changes.

# Configuration

Runtime configuration is managed through a TOML file. It is created with
defaults if it doesn't exist:

	[server]
	max_limit = 64
	min_prefix = 1
	max_prefix = 60
	enable_filter = true
	http_addr = ""

	[engine]
	max_suggestions = 8
	max_typo_distance = 2
	recent_capacity = 100

	[catalog]
	path = "data/catalog.json"
	url = ""
	watch = true
	sanitize_html = true

	[learning]
	backend = "file"
	path = "data/learning.msgpack"
	save_interval_sec = 300

# Learning Data

Popularity, recency and term frequencies are loaded from the learning store
at startup, saved every save_interval_sec and once more on exit. The store is
a msgpack file, a Redis key or nothing (backend "none").

# Command Line Flags

	-version     Show current version
	-d           Enable debug mode with detailed logging
	-c           Run in CLI mode instead of server mode
	-config      Path to a config file
	-catalog     Catalog JSON file (overrides catalog.path)
	-catalog-url Catalog JSON URL (overrides catalog.url)
	-http        Serve the HTTP API on this address (overrides server.http_addr)
	-ipc         Serve msgpack IPC together with HTTP
	-limit       Number of suggestions to return in CLI mode
	-prmin       Minimum query length (overrides server.min_prefix)
	-prmax       Maximum query length (overrides server.max_prefix)
	-no-filter   Disable input filtering for debugging

Flags that are not given leave the config values in place. In CLI mode
they fall back to the [cli] section.
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bastiangx/booksearch/internal/cli"
	"github.com/bastiangx/booksearch/internal/utils"
	"github.com/bastiangx/booksearch/pkg/catalog"
	"github.com/bastiangx/booksearch/pkg/config"
	"github.com/bastiangx/booksearch/pkg/httpapi"
	"github.com/bastiangx/booksearch/pkg/learning"
	"github.com/bastiangx/booksearch/pkg/search"
	"github.com/bastiangx/booksearch/pkg/server"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

const (
	Version = "0.3.0-beta"
	AppName = "booksearch"
	gh      = "https://github.com/bastiangx/booksearch"
)

// main wires config, catalog, engine and learning store together and
// starts the requested surfaces. It does not implement logic for them.
func main() {
	defaultConfig := config.DefaultConfig()

	showVersion := flag.Bool("version", false, "Show current version")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	configPath := flag.String("config", "", "Path to a custom config.toml")
	catalogPath := flag.String("catalog", "", "Catalog JSON file (overrides config)")
	catalogURL := flag.String("catalog-url", "", "Catalog JSON URL (overrides config)")
	httpAddr := flag.String("http", "", "Serve the HTTP API on this address, e.g. :8080")
	ipcMode := flag.Bool("ipc", false, "Also serve msgpack IPC on stdin/stdout when -http is set")
	limit := flag.Int("limit", defaultConfig.CLI.DefaultLimit, "Number of suggestions to return")
	minPrefix := flag.Int("prmin", defaultConfig.CLI.DefaultMinLen, "Minimum query length for suggestions (1 <= n <= prmax)")
	maxPrefix := flag.Int("prmax", defaultConfig.CLI.DefaultMaxLen, "Maximum query length for suggestions")
	noFilter := flag.Bool("no-filter", defaultConfig.CLI.DefaultNoFilter, "Disable input filtering (DBG only)")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	cfg, activeConfig, err := config.LoadConfigWithPriority(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if path := config.GetActiveConfigPath(activeConfig); path != "" {
		log.Debugf("Using config file: (%s)", path)
	}

	if *catalogPath != "" {
		cfg.Catalog.Path = *catalogPath
	}
	if *catalogURL != "" {
		cfg.Catalog.URL = *catalogURL
	}
	set := explicitFlags(flag.CommandLine)
	applyServerFlags(&cfg.Server, set, *minPrefix, *maxPrefix, *noFilter)
	addr := httpAddress(*httpAddr, cfg.Server)

	pathResolver, err := utils.NewPathResolver()
	if err != nil {
		log.Fatalf("Failed to initialize path resolver: %v", err)
	}
	cfg.Catalog.Path = pathResolver.ResolveFile(cfg.Catalog.Path)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sanitizer *catalog.Sanitizer
	if cfg.Catalog.SanitizeHTML {
		sanitizer = catalog.NewSanitizer()
	}
	sources := catalogSources(cfg.Catalog)

	engine := search.New(
		search.WithMaxTypoDistance(cfg.Engine.MaxTypoDistance),
		search.WithRecentCapacity(cfg.Engine.RecentCapacity),
		search.WithMaxSuggestions(cfg.Engine.MaxSuggestions),
	)
	reload := func(ctx context.Context) error {
		items, err := catalog.LoadAll(ctx, sanitizer, sources...)
		if err != nil {
			return err
		}
		engine.Initialize(items)
		return nil
	}
	if err := reload(ctx); err != nil {
		if !errors.Is(err, catalog.ErrEmptyCatalog) {
			log.Fatalf("Failed to load catalog: %v", err)
		}
		log.Warn("Catalog is empty, running with popular queries only...")
	}

	// learning data goes in after Initialize, which resets term frequencies
	store, err := learning.Open(ctx, cfg.Learning)
	if err != nil {
		log.Fatalf("Failed to open learning store: %v", err)
	}
	defer store.Close()
	if data, err := store.Load(ctx); err == nil {
		engine.ImportLearningData(data)
	} else if !errors.Is(err, learning.ErrNoSnapshot) {
		log.Warnf("Ignoring learning data: %v", err)
	}

	// CLI would be mainly used for testing and dbg purposes.
	if *cliMode {
		log.SetReportTimestamp(false)
		applyCLIDefaults(cfg.CLI, set, limit, minPrefix, maxPrefix, noFilter)
		log.Debug("Input info:",
			"minPrefix", *minPrefix,
			"maxPrefix", *maxPrefix,
			"limit", *limit,
			"noFilter", *noFilter)

		inputHandler := cli.NewInputHandler(engine, *minPrefix, *maxPrefix, *limit, *noFilter)
		if err := inputHandler.Start(); err != nil {
			log.Errorf("CLI error: %v", err)
		}
		if err := store.Save(context.Background(), engine.ExportLearningData()); err != nil {
			log.Errorf("Failed to save learning data: %v", err)
		}
		return
	}

	showStartupInfo(cfg, addr)

	if err := serve(ctx, engine, store, cfg, activeConfig, sources, reload, addr, addr == "" || *ipcMode); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	fmt.Fprintf(os.Stderr, "\nExiting...\n")
}

// serve runs every surface under one errgroup. The first failure, a signal
// or the IPC input closing stops them all.
func serve(ctx context.Context, engine *search.Engine, store learning.Store, cfg *config.Config, configPath string,
	sources []catalog.Source, reload func(context.Context) error, httpAddr string, ipc bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	if httpAddr != "" {
		api := httpapi.New(engine, cfg.Server)
		g.Go(func() error { return api.ListenAndServe(ctx, httpAddr) })
	}

	if ipc {
		srv := server.NewServer(engine, cfg.Server)
		srv.SetConfigPath(configPath)
		g.Go(func() error {
			defer cancel()
			return srv.Start(ctx)
		})
	}

	if cfg.Catalog.Watch {
		for _, src := range sources {
			fs, ok := src.(catalog.FileSource)
			if !ok {
				continue
			}
			watcher, err := catalog.NewWatcher(fs.Path, catalog.DefaultDebounce, reload)
			if err != nil {
				log.Warnf("Not watching %s: %v", fs.Path, err)
				continue
			}
			g.Go(func() error { return watcher.Run(ctx) })
		}
	}

	interval := time.Duration(cfg.Learning.SaveIntervalSec) * time.Second
	g.Go(func() error { return learning.Autosave(ctx, engine, store, interval) })

	return g.Wait()
}

// catalogSources turns the catalog config into sources. A directory path
// loads every *.json file inside it.
func catalogSources(cfg config.CatalogConfig) []catalog.Source {
	var sources []catalog.Source
	switch {
	case cfg.Path == "":
	case utils.HasCatalogFiles(cfg.Path):
		matches, _ := filepath.Glob(filepath.Join(cfg.Path, "*.json"))
		for _, m := range matches {
			sources = append(sources, catalog.FileSource{Path: m})
		}
	case utils.FileExists(cfg.Path):
		sources = append(sources, catalog.FileSource{Path: cfg.Path})
	default:
		log.Warnf("Catalog file not found: %s", cfg.Path)
	}
	if cfg.URL != "" {
		sources = append(sources, catalog.NewHTTPSource(cfg.URL))
	}
	return sources
}

func printVersion() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	logger.SetStyles(styles)

	logger.Print("")
	logger.Print("[ BookSearch ] Suggestions for children's book catalogs")
	logger.Print("", "version", Version)
	logger.Print("")
	logger.Print("use -h or --help to see available options")
	logger.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(cfg *config.Config, httpAddr string) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	println("============")
	println(" BookSearch ")
	println("============")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("catalog: ( %s )", cfg.Catalog.Path)
	log.Infof("learning backend: ( %s )", cfg.Learning.Backend)
	if httpAddr != "" {
		log.Infof("http: ( %s )", httpAddr)
	}
	log.Info("status: ready")
	println("============")
	println("Press Ctrl+C to exit")

	log.SetLevel(currentLevel)
}
