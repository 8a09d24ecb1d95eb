package websearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

const maxPageBytes = 5 << 20

// ReadabilityFetcher downloads pages and keeps the readable article text.
type ReadabilityFetcher struct {
	HTTP      *http.Client
	UserAgent string
}

func NewReadabilityFetcher() *ReadabilityFetcher {
	return &ReadabilityFetcher{
		HTTP:      &http.Client{},
		UserAgent: "Mozilla/5.0 (compatible; simcheck/1.0)",
	}
}

func (f *ReadabilityFetcher) Fetch(ctx context.Context, pageURL string) (Page, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return Page{}, fmt.Errorf("invalid page url %q: %w", pageURL, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Page{}, err
	}
	req.Header.Set("User-Agent", f.UserAgent)

	resp, err := f.HTTP.Do(req)
	if err != nil {
		return Page{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxPageBytes), parsed)
	if err != nil {
		return Page{}, fmt.Errorf("readability extraction failed: %w", err)
	}
	return Page{
		URL:   pageURL,
		Title: article.Title,
		Text:  strings.TrimSpace(article.TextContent),
	}, nil
}
