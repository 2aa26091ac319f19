package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
)

const maxPageBytes = 5 << 20

var ErrNotHTML = errors.New("url did not return an html page")

type WebPage struct {
	Url     string
	Title   string
	Content string
}

// FetchWebPage downloads a page and reduces it to its readable text.
func FetchWebPage(ctx context.Context, client *http.Client, rawURL string) (WebPage, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return WebPage{}, fmt.Errorf("invalid url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return WebPage{}, err
	}
	req.Header.Set("User-Agent", "ResearchAPI/1.0 (+readability)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := client.Do(req)
	if err != nil {
		return WebPage{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return WebPage{}, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return WebPage{}, ErrNotHTML
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxPageBytes), parsed)
	if err != nil {
		return WebPage{}, fmt.Errorf("parse %s: %w", rawURL, err)
	}

	title := strings.TrimSpace(article.Title)
	if title == "" {
		title = parsed.Host
	}
	return WebPage{
		Url:     rawURL,
		Title:   title,
		Content: strings.TrimSpace(article.TextContent),
	}, nil
}
