package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/errgroup"
)

// ErrEmptyCatalog is returned when a snapshot has no indexable items.
var ErrEmptyCatalog = errors.New("catalog: no indexable items")

// Source produces a catalog snapshot.
type Source interface {
	Load(ctx context.Context) ([]Item, error)
	String() string
}

// FileSource reads a JSON array of items from disk.
type FileSource struct {
	Path string
}

func (fs FileSource) Load(ctx context.Context) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(fs.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog %s: %w", fs.Path, err)
	}
	defer f.Close()
	return decodeItems(f, fs.Path)
}

func (fs FileSource) String() string {
	return "file:" + fs.Path
}

// HTTPSource fetches a JSON array of items from a URL, retrying transient
// failures.
type HTTPSource struct {
	URL    string
	client *retryablehttp.Client
}

// NewHTTPSource returns a source with the default retry policy.
func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{
		URL: url,
		client: &retryablehttp.Client{
			RetryMax:     5,
			RetryWaitMin: 50 * time.Millisecond,
			RetryWaitMax: 2 * time.Second,
			HTTPClient: &http.Client{
				Timeout: 10 * time.Second,
			},
			CheckRetry: retryablehttp.DefaultRetryPolicy,
			Backoff:    retryablehttp.DefaultBackoff,
			Logger:     retryLogger{},
		},
	}
}

func (hs *HTTPSource) Load(ctx context.Context) ([]Item, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, hs.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot create request for the url %s: %w", hs.URL, err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := hs.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannot execute request for the url %s: %w", hs.URL, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog url %s returned status %d", hs.URL, res.StatusCode)
	}
	return decodeItems(res.Body, hs.URL)
}

func (hs *HTTPSource) String() string {
	return "url:" + hs.URL
}

func decodeItems(r io.Reader, origin string) ([]Item, error) {
	var items []Item
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to decode catalog %s: %w", origin, err)
	}
	log.Debugf("Decoded %d catalog items from %s", len(items), origin)
	return items, nil
}

// LoadAll loads every source concurrently, sanitizes the items and
// concatenates them in source order. The first failing source aborts the
// load.
func LoadAll(ctx context.Context, sanitizer *Sanitizer, sources ...Source) ([]Item, error) {
	g, ctx := errgroup.WithContext(ctx)
	parts := make([][]Item, len(sources))

	for i, src := range sources {
		g.Go(func() error {
			items, err := src.Load(ctx)
			if err != nil {
				return fmt.Errorf("%s: %w", src, err)
			}
			parts[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Item
	for _, part := range parts {
		all = append(all, part...)
	}
	if sanitizer != nil {
		all = sanitizer.Clean(all)
	}
	if len(all) == 0 {
		return nil, ErrEmptyCatalog
	}
	return all, nil
}

// retryLogger routes retryablehttp's messages into the charm logger.
type retryLogger struct{}

func (retryLogger) Error(msg string, keysAndValues ...any) { log.Error(msg, keysAndValues...) }
func (retryLogger) Info(msg string, keysAndValues ...any)  { log.Debug(msg, keysAndValues...) }
func (retryLogger) Debug(msg string, keysAndValues ...any) { log.Debug(msg, keysAndValues...) }
func (retryLogger) Warn(msg string, keysAndValues ...any)  { log.Warn(msg, keysAndValues...) }
