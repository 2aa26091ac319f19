package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

const serperEndpoint = "https://google.serper.dev/search"

type serper struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

func NewSerper(apiKey string, client *http.Client) Searcher {
	return &serper{apiKey: apiKey, endpoint: serperEndpoint, client: client}
}

func (s *serper) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	body, err := json.Marshal(map[string]any{"q": query, "num": k})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err = checkStatus(SerperProvider, resp); err != nil {
		return nil, err
	}

	var raw struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	out := make([]Result, 0, min(k, len(raw.Organic)))
	for _, it := range raw.Organic {
		if len(out) >= k {
			break
		}
		if it.Link == "" {
			continue
		}
		out = append(out, Result{Title: it.Title, Url: it.Link, Snippet: it.Snippet})
	}
	return out, nil
}
