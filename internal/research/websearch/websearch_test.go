package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/akolanti/ResearchAPI/internal/data/cache"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerper_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("X-API-KEY"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "go generics", body["q"])

		_, _ = w.Write([]byte(`{"organic":[
			{"title":"A","link":"https://a.example","snippet":"first"},
			{"title":"no link","link":"","snippet":"skip"},
			{"title":"B","link":"https://b.example","snippet":"second"},
			{"title":"C","link":"https://c.example","snippet":"third"}]}`))
	}))
	defer srv.Close()

	s := &serper{apiKey: "secret", endpoint: srv.URL, client: srv.Client()}
	results, err := s.Search(context.Background(), "go generics", 2)
	require.NoError(t, err)
	assert.Equal(t, []Result{
		{Title: "A", Url: "https://a.example", Snippet: "first"},
		{Title: "B", Url: "https://b.example", Snippet: "second"},
	}, results)
}

func TestBrave_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token", r.Header.Get("X-Subscription-Token"))
		assert.Equal(t, "rust vs go", r.URL.Query().Get("q"))
		assert.Equal(t, "3", r.URL.Query().Get("count"))
		_, _ = w.Write([]byte(`{"web":{"results":[{"title":"T","url":"https://t.example","description":"d"}]}}`))
	}))
	defer srv.Close()

	b := &brave{apiKey: "token", endpoint: srv.URL, client: srv.Client()}
	results, err := b.Search(context.Background(), "rust vs go", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "d", results[0].Snippet)
}

func TestSearch_StatusAndInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := &serper{apiKey: "k", endpoint: srv.URL, client: srv.Client()}
	_, err := s.Search(context.Background(), "q", 5)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.Code)

	_, err = s.Search(context.Background(), "   ", 5)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestNew_Providers(t *testing.T) {
	_, err := New(SerperProvider, "", http.DefaultClient)
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = New("bing", "k", http.DefaultClient)
	assert.ErrorIs(t, err, ErrUnsupportedProvider)

	s, err := New("Brave", "k", http.DefaultClient)
	require.NoError(t, err)
	assert.IsType(t, &brave{}, s)
}

type countingSearcher struct {
	calls int
	fn    func(query string) ([]Result, error)
}

func (c *countingSearcher) Search(ctx context.Context, query string, k int) ([]Result, error) {
	c.calls++
	return c.fn(query)
}

func TestWithGuard_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &countingSearcher{fn: func(string) ([]Result, error) { return nil, errors.New("upstream down") }}
	g := WithGuard(inner, 1000, 100)

	for i := 0; i < 5; i++ {
		_, err := g.Search(context.Background(), "q", 3)
		require.Error(t, err)
	}
	_, err := g.Search(context.Background(), "q", 3)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 5, inner.calls)
}

func TestWithGuard_CanceledContext(t *testing.T) {
	inner := &countingSearcher{fn: func(string) ([]Result, error) { return nil, nil }}
	g := WithGuard(inner, 0.001, 1)
	_, _ = g.Search(context.Background(), "q", 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Search(ctx, "q", 1)
	assert.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestWithGuard_ContextErrorsDoNotTrip(t *testing.T) {
	inner := &countingSearcher{fn: func(string) ([]Result, error) {
		return nil, fmt.Errorf("serper request: %w", context.DeadlineExceeded)
	}}
	g := WithGuard(inner, 1000, 100)

	for i := 0; i < 8; i++ {
		_, err := g.Search(context.Background(), "q", 3)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	}
	assert.Equal(t, 8, inner.calls, "the breaker stays closed for timed out callers")
}

func TestWithCache_ServesRepeatQueries(t *testing.T) {
	inner := &countingSearcher{fn: func(q string) ([]Result, error) {
		return []Result{{Title: q, Url: "https://x.example"}}, nil
	}}
	c := WithCache(inner, cache.NewInMemory(), time.Minute)

	first, err := c.Search(context.Background(), "Go Channels", 5)
	require.NoError(t, err)
	second, err := c.Search(context.Background(), "  go channels ", 5)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)

	_, err = c.Search(context.Background(), "go channels", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestWithCache_ErrorsAreNotCached(t *testing.T) {
	fail := true
	inner := &countingSearcher{fn: func(q string) ([]Result, error) {
		if fail {
			return nil, errors.New("boom")
		}
		return []Result{{Url: "https://ok.example"}}, nil
	}}
	c := WithCache(inner, cache.NewInMemory(), time.Minute)

	_, err := c.Search(context.Background(), "q", 5)
	require.Error(t, err)
	fail = false
	results, err := c.Search(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}
