package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

const sampleCatalog = `[
  {"id": "1", "title": "Пригоди кота", "author": "Іван Франко", "category": "казки"},
  {"id": "2", "title": "<b>Лис</b> Микита", "description": "<p>Хитрий &amp; спритний</p>", "keywords": ["лис", " ", "<i></i>"]},
  {"id": "3", "title": "<script>alert(1)</script>"}
]`

func writeCatalog(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "catalog.json")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestFileSource(t *testing.T) {
	path := writeCatalog(t, t.TempDir(), sampleCatalog)

	items, err := FileSource{Path: path}.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 raw items, got %d", len(items))
	}
	if items[0].Author != "Іван Франко" || items[0].Category != "казки" {
		t.Errorf("unexpected first item %+v", items[0])
	}

	if _, err := (FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}).Load(context.Background()); err == nil {
		t.Errorf("missing file must fail")
	}
	bad := writeCatalog(t, t.TempDir(), "{not json")
	if _, err := (FileSource{Path: bad}).Load(context.Background()); err == nil {
		t.Errorf("malformed catalog must fail")
	}
}

func TestSanitizerClean(t *testing.T) {
	items := []Item{
		{Title: "<b>Лис</b>   Микита", Description: "<p>Хитрий &amp; спритний</p>", Keywords: []string{"лис", " ", "<i></i>"}},
		{Title: "<script>alert(1)</script>"},
		{},
	}
	got := NewSanitizer().Clean(items)

	expected := []Item{
		{Title: "Лис Микита", Description: "Хитрий & спритний", Keywords: []string{"лис"}},
	}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Clean = %+v, expected %+v", got, expected)
	}
}

func TestHTTPSourceRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, sampleCatalog)
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL)
	src.client.RetryWaitMin = time.Millisecond
	src.client.RetryWaitMax = 5 * time.Millisecond

	items, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("expected 3 items, got %d", len(items))
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestHTTPSourceNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	if _, err := NewHTTPSource(srv.URL).Load(context.Background()); err == nil {
		t.Errorf("404 must fail")
	}
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	first := writeCatalog(t, dir, `[{"title": "Абетка"}]`)
	second := filepath.Join(dir, "more.json")
	if err := os.WriteFile(second, []byte(`[{"title": "Буквар"}, {"title": "<br>"}]`), 0644); err != nil {
		t.Fatal(err)
	}

	items, err := LoadAll(context.Background(), NewSanitizer(), FileSource{Path: first}, FileSource{Path: second})
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(items) != 2 || items[0].Title != "Абетка" || items[1].Title != "Буквар" {
		t.Errorf("unexpected items %+v", items)
	}

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte(`[]`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadAll(context.Background(), NewSanitizer(), FileSource{Path: empty}); !errors.Is(err, ErrEmptyCatalog) {
		t.Errorf("expected ErrEmptyCatalog, got %v", err)
	}

	if _, err := LoadAll(context.Background(), nil, FileSource{Path: first}, FileSource{Path: filepath.Join(dir, "nope.json")}); err == nil {
		t.Errorf("a failing source must fail the load")
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeCatalog(t, dir, `[{"title": "Абетка"}]`)

	reloaded := make(chan struct{}, 4)
	w, err := NewWatcher(path, 20*time.Millisecond, func(ctx context.Context) error {
		reloaded <- struct{}{}
		return nil
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// unrelated files in the same directory are ignored
	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	writeCatalog(t, dir, `[{"title": "Буквар"}]`)

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatalf("reload was not triggered")
	}
}
