package learning

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bastiangx/booksearch/pkg/config"
	"github.com/bastiangx/booksearch/pkg/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleData() search.LearningData {
	return search.LearningData{
		PopularQueries: []search.ScoreEntry{{Query: "казки", Score: 11}, {Query: "пригоди", Score: 9}},
		RecentQueries:  []string{"пригоди", "казки"},
		FrequencyModel: []search.CountEntry{{Term: "гобіт", Count: 3}, {Term: "казки", Count: 1}},
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "nested", "learning.msgpack"))

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	want := sampleData()
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	want.RecentQueries = []string{"фентезі"}
	require.NoError(t, store.Save(ctx, want))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"фентезі"}, got.RecentQueries)

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files should not be left behind")
	require.NoError(t, store.Close())
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "learning.msgpack")
	require.NoError(t, os.WriteFile(path, []byte{0xc1, 0x00}, 0644))

	_, err := NewFileStore(path).Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSnapshot)
}

func TestEngineSnapshotThroughFileStore(t *testing.T) {
	ctx := context.Background()
	engine := search.New()
	engine.Autocomplete("пригоди", search.DefaultQueryOptions())
	engine.Adapt("фентезі", "фен", search.ActionSelected)

	store := NewFileStore(filepath.Join(t.TempDir(), "learning.msgpack"))
	require.NoError(t, store.Save(ctx, engine.ExportLearningData()))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)

	restored := search.New()
	restored.ImportLearningData(loaded)
	assert.Equal(t, engine.ExportLearningData(), restored.ExportLearningData())
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, config.LearningConfig{Backend: config.BackendNone})
	require.NoError(t, err)
	assert.IsType(t, NopStore{}, store)
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	store, err = Open(ctx, config.LearningConfig{Backend: config.BackendFile, Path: "x.msgpack"})
	require.NoError(t, err)
	assert.Equal(t, "x.msgpack", store.(*FileStore).Path())

	_, err = Open(ctx, config.LearningConfig{Backend: "sqlite"})
	assert.Error(t, err)
}

type memStore struct {
	mu    sync.Mutex
	saves int
	last  search.LearningData
}

func (m *memStore) Load(context.Context) (search.LearningData, error) {
	return search.LearningData{}, ErrNoSnapshot
}

func (m *memStore) Save(_ context.Context, data search.LearningData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.last = data
	return nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

type fixedExporter struct{ data search.LearningData }

func (f fixedExporter) ExportLearningData() search.LearningData { return f.data }

func TestAutosave(t *testing.T) {
	store := &memStore{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Autosave(ctx, fixedExporter{data: sampleData()}, store, 5*time.Millisecond)
	}()

	require.Eventually(t, func() bool { return store.count() >= 2 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.GreaterOrEqual(t, store.count(), 3)
	assert.Equal(t, sampleData(), store.last)
}

func TestAutosaveOnlyOnExit(t *testing.T) {
	store := &memStore{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, Autosave(ctx, fixedExporter{}, store, 0))
	assert.Equal(t, 1, store.count())
}
