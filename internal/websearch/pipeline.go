package websearch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"simcheck/internal/chunker"
	"simcheck/internal/llm"
	"simcheck/internal/reports"
	"simcheck/internal/scoring"
	"simcheck/internal/store"
)

// Options bounds how much of the web one check touches.
type Options struct {
	Queries         int
	MinQueryWords   int
	ResultsPerQuery int
	MaxSources      int
}

func DefaultOptions() Options {
	return Options{Queries: 3, MinQueryWords: 5, ResultsPerQuery: 5, MaxSources: 5}
}

// Pipeline is the Provider built from a Searcher, a Fetcher and an optional LLM.
type Pipeline struct {
	searcher Searcher
	fetcher  Fetcher
	llm      llm.Client
	opts     Options
	log      *slog.Logger
	now      func() time.Time
}

// NewPipeline wires a pipeline; assessor may be nil, in which case the summary
// is derived from the source scores alone.
func NewPipeline(searcher Searcher, fetcher Fetcher, assessor llm.Client, opts Options, log *slog.Logger) *Pipeline {
	def := DefaultOptions()
	if opts.Queries <= 0 {
		opts.Queries = def.Queries
	}
	if opts.MinQueryWords <= 0 {
		opts.MinQueryWords = def.MinQueryWords
	}
	if opts.ResultsPerQuery <= 0 {
		opts.ResultsPerQuery = def.ResultsPerQuery
	}
	if opts.MaxSources <= 0 {
		opts.MaxSources = def.MaxSources
	}
	return &Pipeline{searcher: searcher, fetcher: fetcher, llm: assessor, opts: opts, log: log, now: time.Now}
}

type scoredPage struct {
	Page
	similarity float64
}

func (p *Pipeline) Check(ctx context.Context, doc scoring.Source) (Outcome, error) {
	log := p.log.With("document_id", doc.ID)

	hits, err := p.search(ctx, log, doc.Text)
	if err != nil {
		return Outcome{}, err
	}
	pages := p.fetchAll(ctx, log, hits)
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	var (
		score   float64
		sources = make([]store.WebSource, 0, len(pages))
		best    *scoredPage
	)
	for i := range pages {
		pg := &pages[i]
		pg.similarity = scoring.Percent(scoring.Similarity(doc.Text, pg.Text))
		sources = append(sources, store.WebSource{URL: pg.URL, Title: pg.Title, Similarity: pg.similarity})
		if best == nil || pg.similarity > best.similarity {
			best = pg
		}
	}
	if best != nil {
		score = best.similarity
	}

	assessment := p.assess(ctx, log, doc, pages)
	summary := assessment.Summary
	if summary == "" {
		summary = heuristicSummary(score, best)
	}

	report := p.webReport(doc, score, summary, assessment, sources)
	return Outcome{Score: score, Summary: summary, Sources: sources, Report: &report}, nil
}

// search runs every query and de-duplicates hits by URL in first-seen order.
// It fails only when every query failed.
func (p *Pipeline) search(ctx context.Context, log *slog.Logger, text string) ([]Hit, error) {
	queries := chunker.SignificantSentences(text, p.opts.Queries, p.opts.MinQueryWords)
	var (
		hits    []Hit
		seen    = make(map[string]bool)
		lastErr error
		failed  int
	)
	for _, q := range queries {
		found, err := p.searcher.Search(ctx, q, p.opts.ResultsPerQuery)
		if err != nil {
			log.Warn("web search query failed", "err", err)
			lastErr = err
			failed++
			continue
		}
		for _, h := range found {
			if h.Link == "" || seen[h.Link] {
				continue
			}
			seen[h.Link] = true
			hits = append(hits, h)
		}
	}
	if len(queries) > 0 && failed == len(queries) {
		return nil, fmt.Errorf("all %d web search queries failed: %w", failed, lastErr)
	}
	if len(hits) > p.opts.MaxSources {
		hits = hits[:p.opts.MaxSources]
	}
	return hits, nil
}

// fetchAll downloads hits concurrently and keeps pages with text, in hit order.
func (p *Pipeline) fetchAll(ctx context.Context, log *slog.Logger, hits []Hit) []scoredPage {
	fetched := make([]*Page, len(hits))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.MaxSources)
	for i, h := range hits {
		g.Go(func() error {
			page, err := p.fetcher.Fetch(gctx, h.Link)
			if err != nil {
				log.Warn("web page fetch failed", "url", h.Link, "err", err)
				return nil
			}
			if page.Title == "" {
				page.Title = h.Title
			}
			if page.URL == "" {
				page.URL = h.Link
			}
			fetched[i] = &page
			return nil
		})
	}
	_ = g.Wait()

	out := make([]scoredPage, 0, len(hits))
	for _, pg := range fetched {
		if pg != nil && strings.TrimSpace(pg.Text) != "" {
			out = append(out, scoredPage{Page: *pg})
		}
	}
	return out
}

func (p *Pipeline) assess(ctx context.Context, log *slog.Logger, doc scoring.Source, pages []scoredPage) llm.Assessment {
	if p.llm == nil {
		return llm.Assessment{Score: -1}
	}
	excerpts := make([]llm.SourceExcerpt, len(pages))
	for i, pg := range pages {
		excerpts[i] = llm.SourceExcerpt{URL: pg.URL, Title: pg.Title, Content: pg.Text, Similarity: pg.similarity}
	}
	a, err := p.llm.AssessWebSimilarity(ctx, doc.Text, excerpts)
	if err != nil {
		log.Warn("llm assessment failed; using heuristic summary", "err", err)
		return llm.Assessment{Score: -1}
	}
	return a
}

func heuristicSummary(score float64, best *scoredPage) string {
	switch {
	case best == nil:
		return "No matching web content was found; minimal overlap with indexed sources."
	case score < 10:
		return fmt.Sprintf("Minimal overlap with web content; the closest source scored %.2f%%.", score)
	case score < 40:
		return fmt.Sprintf("Some overlap with web content; the closest source (%s) scored %.2f%%.", best.URL, score)
	default:
		return fmt.Sprintf("Substantial overlap with web content; the closest source (%s) scored %.2f%%. Review the matched passages.", best.URL, score)
	}
}

func (p *Pipeline) webReport(doc scoring.Source, score float64, summary string, a llm.Assessment, sources []store.WebSource) reports.Artifact {
	var sb strings.Builder
	sb.WriteString("Web Similarity Report\n\n")
	fmt.Fprintf(&sb, "Document: %s (%s)\n", doc.Title, doc.ID)
	fmt.Fprintf(&sb, "Overall Web Similarity Score: %.2f%%\n\n", score)
	fmt.Fprintf(&sb, "Assessment:\n%s\n\n", summary)
	if a.Score >= 0 {
		fmt.Fprintf(&sb, "Model similarity estimate: %.0f%%\n\n", scoring.Clamp(a.Score))
	}

	if len(sources) == 0 {
		sb.WriteString("No web sources were retrieved.\n")
	} else {
		sb.WriteString("Web Sources:\n")
		for i, s := range sources {
			fmt.Fprintf(&sb, "%d. %s\n   %s\n   similarity: %.2f%%\n", i+1, s.Title, s.URL, s.Similarity)
		}
	}

	if len(a.Matches) > 0 {
		sb.WriteString("\nDetailed Matches:\n")
		for _, m := range a.Matches {
			fmt.Fprintf(&sb, "- [%s, %.0f%%] %q\n  source %s: %q\n", m.MatchType, m.Similarity, m.DocumentText, m.SourceURL, m.SourceText)
		}
	}
	if a.Conclusion != "" {
		fmt.Fprintf(&sb, "\nConclusion:\n%s\n", a.Conclusion)
	}

	sum := sha256.Sum256([]byte(doc.ID + "_" + strconv.FormatInt(p.now().UnixNano(), 10)))
	return reports.Artifact{
		Kind:        store.ReportWeb,
		Name:        "web_similarity_report_" + hex.EncodeToString(sum[:])[:8],
		Ext:         ".txt",
		ContentType: "text/plain; charset=utf-8",
		Body:        []byte(sb.String()),
	}
}
