package learning

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bastiangx/booksearch/pkg/search"
	"github.com/vmihailenco/msgpack/v5"
)

// FileStore keeps the snapshot as a msgpack file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the snapshot location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(ctx context.Context) (search.LearningData, error) {
	var data search.LearningData
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return data, ErrNoSnapshot
	}
	if err != nil {
		return data, fmt.Errorf("read learning snapshot: %w", err)
	}
	if err := msgpack.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("decode learning snapshot %s: %w", s.path, err)
	}
	return data, nil
}

// Save writes to a temp file in the same directory and renames it over the
// old snapshot, so readers never see a partial file.
func (s *FileStore) Save(ctx context.Context, data search.LearningData) error {
	raw, err := msgpack.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode learning snapshot: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create learning dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".learning-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace learning snapshot: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
