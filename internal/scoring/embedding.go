package scoring

import (
	"context"
	"fmt"
	"sync"

	"simcheck/internal/chunker"
	"simcheck/internal/embeddings"
)

// EmbeddingEngine compares the mean chunk embeddings of two documents.
// Document vectors are memoized by id since documents are immutable once ready.
type EmbeddingEngine struct {
	embedder embeddings.Embedder
	opts     chunker.Options

	mu      sync.Mutex
	vectors map[string]embeddings.Vector
}

func NewEmbedding(embedder embeddings.Embedder) *EmbeddingEngine {
	return &EmbeddingEngine{
		embedder: embedder,
		opts:     chunker.Options{MaxTokens: 400, Overlap: 50, MaxChunks: 64},
		vectors:  make(map[string]embeddings.Vector),
	}
}

func (e *EmbeddingEngine) Compare(ctx context.Context, a, b Source) (Outcome, error) {
	va, err := e.vector(ctx, a)
	if err != nil {
		return Outcome{}, err
	}
	vb, err := e.vector(ctx, b)
	if err != nil {
		return Outcome{}, err
	}
	score := Percent(float64(embeddings.CosineSimilarity(va, vb)))
	report := PairReport(a, b, score, SharedPhrases(a.Text, b.Text, DefaultMinPhraseWords))
	return Outcome{Score: score, Report: &report}, nil
}

func (e *EmbeddingEngine) vector(ctx context.Context, src Source) (embeddings.Vector, error) {
	e.mu.Lock()
	v, ok := e.vectors[src.ID]
	e.mu.Unlock()
	if ok {
		return v, nil
	}

	chunks := chunker.ChunkText(src.Text, e.opts)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document %s has no text to embed", src.ID)
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed document %s: %w", src.ID, err)
	}
	v = embeddings.Mean(vecs)

	e.mu.Lock()
	e.vectors[src.ID] = v
	e.mu.Unlock()
	return v, nil
}
