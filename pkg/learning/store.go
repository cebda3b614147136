/*
Package learning persists the adaptive part of the search engine.

Popularity, recency and the term frequency table are exported from the
engine as a search.LearningData snapshot and written to one of the Store
backends. Storage is caller driven: the engine never touches a Store itself.
*/
package learning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bastiangx/booksearch/pkg/config"
	"github.com/bastiangx/booksearch/pkg/search"
	"github.com/charmbracelet/log"
)

// ErrNoSnapshot is returned by Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no learning snapshot")

// Store loads and saves learning snapshots.
type Store interface {
	Load(ctx context.Context) (search.LearningData, error)
	Save(ctx context.Context, data search.LearningData) error
	Close() error
}

// Exporter is anything that can produce a learning snapshot.
type Exporter interface {
	ExportLearningData() search.LearningData
}

// NopStore discards everything.
type NopStore struct{}

func (NopStore) Load(context.Context) (search.LearningData, error) {
	return search.LearningData{}, ErrNoSnapshot
}

func (NopStore) Save(context.Context, search.LearningData) error { return nil }

func (NopStore) Close() error { return nil }

// Open returns the store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.LearningConfig) (Store, error) {
	switch cfg.Backend {
	case "", config.BackendNone:
		return NopStore{}, nil
	case config.BackendFile:
		return NewFileStore(cfg.Path), nil
	case config.BackendRedis:
		return NewRedisStore(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
		})
	default:
		return nil, fmt.Errorf("unknown learning backend %q", cfg.Backend)
	}
}

// Autosave saves a snapshot from src every interval until ctx is done,
// then saves one last time. A non-positive interval only saves on exit.
func Autosave(ctx context.Context, src Exporter, store Store, interval time.Duration) error {
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-tick:
			if err := store.Save(ctx, src.ExportLearningData()); err != nil {
				log.Warnf("Autosave failed: %v", err)
			}
		case <-ctx.Done():
			// ctx is already cancelled, the final save gets its own deadline
			saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := store.Save(saveCtx, src.ExportLearningData()); err != nil {
				return fmt.Errorf("final learning save: %w", err)
			}
			log.Debug("Saved learning data on shutdown")
			return nil
		}
	}
}
