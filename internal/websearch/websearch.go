// Package websearch checks a document's originality against web content:
// search queries from its significant sentences, fetch the hits, score each
// page and summarize.
package websearch

import (
	"context"
	"errors"

	"simcheck/internal/reports"
	"simcheck/internal/scoring"
	"simcheck/internal/store"
)

var ErrNotConfigured = errors.New("web search provider is not configured")

// Hit is one organic search result.
type Hit struct {
	Title   string
	Link    string
	Snippet string
}

// Page is the readable text of a fetched web page.
type Page struct {
	URL   string
	Title string
	Text  string
}

// Outcome is the result of one web check. Report is optional.
type Outcome struct {
	Score   float64
	Summary string
	Sources []store.WebSource
	Report  *reports.Artifact
}

// Provider scores one document against web content.
type Provider interface {
	Check(ctx context.Context, doc scoring.Source) (Outcome, error)
}

// Searcher runs one web search query.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Hit, error)
}

// Fetcher downloads a page and returns its main text.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// Disabled is the provider used when WEB_PROVIDER=none.
type Disabled struct{}

func (Disabled) Check(context.Context, scoring.Source) (Outcome, error) {
	return Outcome{}, ErrNotConfigured
}
