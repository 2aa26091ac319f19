package websearch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Result struct {
	Title   string `json:"title"`
	Url     string `json:"url"`
	Snippet string `json:"snippet"`
}

type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]Result, error)
}

type Provider string

const (
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
)

var (
	ErrUnsupportedProvider = errors.New("unsupported search provider")
	ErrMissingAPIKey       = errors.New("search api key is not set")
	ErrEmptyQuery          = errors.New("search query is empty")
)

// StatusError is returned when a provider answers with a non-2xx status.
type StatusError struct {
	Provider Provider
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s search returned status %d", e.Provider, e.Code)
}

func New(provider Provider, apiKey string, client *http.Client) (Searcher, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	switch Provider(strings.ToLower(string(provider))) {
	case SerperProvider:
		return NewSerper(apiKey, client), nil
	case BraveProvider:
		return NewBrave(apiKey, client), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}
}

func checkStatus(provider Provider, resp *http.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Provider: provider, Code: resp.StatusCode}
	}
	return nil
}
