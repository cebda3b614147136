package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/bastiangx/booksearch/pkg/catalog"
	"github.com/bastiangx/booksearch/pkg/config"
	"github.com/bastiangx/booksearch/pkg/search"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

func newTestAPI(t *testing.T) (*API, *search.Engine) {
	t.Helper()
	engine := search.New()
	engine.Initialize([]catalog.Item{
		{Title: "Пригоди кота", Author: "Іван Франко", Category: "казки"},
		{Title: "Пригоди Незнайка", Author: "Микола Носов", Category: "пригоди"},
		{Title: "Лис Микита", Author: "Іван Франко", Category: "казки", Description: "Лис Микита хитрий"},
		{Title: "Гобіт", Author: "Толкін", Category: "фентезі"},
	})
	return New(engine, config.DefaultConfig().Server), engine
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	api, _ := newTestAPI(t)
	rec := do(t, api, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ok", decode[StatusResponse](t, rec).Status)
}

func TestSuggest(t *testing.T) {
	api, _ := newTestAPI(t)
	rec := do(t, api, http.MethodGet, "/api/suggest?q="+url.QueryEscape("приг")+"&limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[SuggestResponse](t, rec)
	assert.Equal(t, "приг", resp.Query)
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Suggestions, 2)
	for _, s := range resp.Suggestions {
		assert.True(t, strings.HasPrefix(s.Suggestion, "приг"), s.Suggestion)
	}
	assert.GreaterOrEqual(t, resp.Suggestions[0].Score, resp.Suggestions[1].Score)
}

func TestSuggestEngineDefaultLimit(t *testing.T) {
	engine := search.New(search.WithMaxSuggestions(2))
	engine.Initialize([]catalog.Item{
		{Title: "Пригоди кота", Category: "казки"},
		{Title: "Пригоди Незнайка", Category: "пригоди"},
		{Title: "Пригоди Тома Сойєра", Category: "пригоди"},
	})
	api := New(engine, config.DefaultConfig().Server)

	resp := decode[SuggestResponse](t, do(t, api, http.MethodGet, "/api/suggest?q="+url.QueryEscape("пригоди"), ""))
	assert.Equal(t, 2, resp.Count)

	resp = decode[SuggestResponse](t, do(t, api, http.MethodGet, "/api/suggest?q="+url.QueryEscape("пригоди")+"&limit=3", ""))
	assert.Equal(t, 3, resp.Count)
}

func TestSuggestMinPrefixFromConfig(t *testing.T) {
	_, engine := newTestAPI(t)
	cfg := config.DefaultConfig().Server
	cfg.MinPrefix = 3
	api := New(engine, cfg)

	rec := do(t, api, http.MethodGet, "/api/suggest?q="+url.QueryEscape("п"), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, api, http.MethodGet, "/api/suggest?q="+url.QueryEscape("при"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotZero(t, decode[SuggestResponse](t, rec).Count)
}

func TestSuggestEmptyReturnsPopular(t *testing.T) {
	api, _ := newTestAPI(t)
	resp := decode[SuggestResponse](t, do(t, api, http.MethodGet, "/api/suggest", ""))
	require.NotEmpty(t, resp.Suggestions)
	assert.Equal(t, "казки", resp.Suggestions[0].Suggestion)
	assert.Equal(t, search.KindPopular, resp.Suggestions[0].Kind)
}

func TestSuggestDisableCorrections(t *testing.T) {
	api, _ := newTestAPI(t)
	resp := decode[SuggestResponse](t, do(t, api, http.MethodGet,
		"/api/suggest?corrections=false&q="+url.QueryEscape("гобит"), ""))
	for _, s := range resp.Suggestions {
		assert.NotEqual(t, search.KindCorrection, s.Kind)
	}

	resp = decode[SuggestResponse](t, do(t, api, http.MethodGet,
		"/api/suggest?q="+url.QueryEscape("гобит"), ""))
	assert.Contains(t, search.Texts(resp.Suggestions), "гобіт")
}

func TestSuggestBadParams(t *testing.T) {
	api, _ := newTestAPI(t)
	for _, target := range []string{
		"/api/suggest?q=a&limit=zero",
		"/api/suggest?q=a&limit=-1",
		"/api/suggest?q=a&semantic=maybe",
		"/api/suggest?q=" + strings.Repeat("a", 61),
	} {
		rec := do(t, api, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, http.StatusBadRequest, decode[ErrorResponse](t, rec).Status)
	}
}

func TestSuggestFiltered(t *testing.T) {
	api, _ := newTestAPI(t)
	resp := decode[SuggestResponse](t, do(t, api, http.MethodGet, "/api/suggest?q=2024", ""))
	assert.Equal(t, 0, resp.Count)
	assert.NotNil(t, resp.Suggestions)
}

func TestInstant(t *testing.T) {
	api, _ := newTestAPI(t)
	resp := decode[InstantResponse](t, do(t, api, http.MethodGet, "/api/instant?q="+url.QueryEscape("лис"), ""))
	assert.Contains(t, resp.Suggestions, "лис микита")
	assert.LessOrEqual(t, resp.Count, 5)

	resp = decode[InstantResponse](t, do(t, api, http.MethodGet, "/api/instant?q="+url.QueryEscape("л"), ""))
	assert.Empty(t, resp.Suggestions)
}

func TestContextual(t *testing.T) {
	api, _ := newTestAPI(t)
	q := url.QueryEscape("приг")
	plain := decode[SuggestResponse](t, do(t, api, http.MethodGet, "/api/suggest?q="+q, ""))

	target := "/api/contextual?q=" + q +
		"&category=" + url.QueryEscape("пригоди") + "&recent=" + url.QueryEscape("незнайка, кіт")
	rec := do(t, api, http.MethodGet, target, "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[SuggestResponse](t, rec)
	require.NotEmpty(t, resp.Suggestions)
	assert.LessOrEqual(t, resp.Count, search.DefaultMaxSuggestions)

	score := func(results []search.Result, text string) float64 {
		for _, r := range results {
			if r.Suggestion == text {
				return r.Score
			}
		}
		t.Fatalf("%q missing from %v", text, search.Texts(results))
		return 0
	}
	// category and recent search both match
	assert.InDelta(t, score(plain.Suggestions, "пригоди незнайка")*1.4*1.2,
		score(resp.Suggestions, "пригоди незнайка"), 1e-9)
}

func TestFeedbackAndTrack(t *testing.T) {
	api, engine := newTestAPI(t)

	rec := do(t, api, http.MethodPost, "/api/feedback", `{"selected":"гобіт","query":"гоб","action":"selected"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, api, http.MethodPost, "/api/track", `{"query":"толкін","has_results":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	data := engine.ExportLearningData()
	assert.Equal(t, []string{"толкін", "гобіт"}, data.RecentQueries[:2])

	for _, body := range []string{
		`{"selected":"гобіт","action":"loved"}`,
		`{"action":"selected"}`,
		`not json`,
	} {
		rec = do(t, api, http.MethodPost, "/api/feedback", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestLearningExportImport(t *testing.T) {
	api, _ := newTestAPI(t)
	do(t, api, http.MethodGet, "/api/suggest?q="+url.QueryEscape("лис"), "")

	rec := do(t, api, http.MethodGet, "/api/learning", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"recentQueries":["лис"]`)
	exported := decode[search.LearningData](t, rec)

	other, otherEngine := newTestAPI(t)
	rec = do(t, other, http.MethodPut, "/api/learning", rec.Body.String())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, exported, otherEngine.ExportLearningData())

	rec = do(t, other, http.MethodPut, "/api/learning", `{"popularQueries":[["a"]]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStats(t *testing.T) {
	api, _ := newTestAPI(t)
	stats := decode[map[string]int](t, do(t, api, http.MethodGet, "/api/stats", ""))
	assert.Equal(t, 4, stats["documents"])
	assert.Positive(t, stats["vocabulary"])
}

func TestMethodNotAllowed(t *testing.T) {
	api, _ := newTestAPI(t)
	rec := do(t, api, http.MethodPost, "/api/stats", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
