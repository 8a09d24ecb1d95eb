// Package chunker splits document text into embedding windows and picks the
// sentences used as web search queries.
package chunker

import (
	"strings"
)

// Options controls how text is chunked.
type Options struct {
	MaxTokens int
	Overlap   int
	// MaxChunks caps the result by sampling chunks evenly across the text; 0 means no cap.
	MaxChunks int
}

// Chunk represents a slice of the document text.
type Chunk struct {
	Index      int
	Text       string
	TokenCount int
}

// ChunkText performs a simple token-based sliding window with overlap.
// Tokens are approximated by whitespace-delimited words.
func ChunkText(text string, opts Options) []Chunk {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 400
	}
	if opts.Overlap < 0 {
		opts.Overlap = 0
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := opts.MaxTokens - opts.Overlap
	if step <= 0 {
		step = opts.MaxTokens
	}

	var chunks []Chunk
	for start := 0; start < len(words); start += step {
		end := min(start+opts.MaxTokens, len(words))
		chunks = append(chunks, Chunk{
			Index:      len(chunks),
			Text:       strings.Join(words[start:end], " "),
			TokenCount: end - start,
		})
		if end == len(words) {
			break
		}
	}
	return sample(chunks, opts.MaxChunks)
}

func sample(chunks []Chunk, limit int) []Chunk {
	if limit <= 0 || len(chunks) <= limit {
		return chunks
	}
	out := make([]Chunk, 0, limit)
	for i := 0; i < limit; i++ {
		c := chunks[i*len(chunks)/limit]
		c.Index = i
		out = append(out, c)
	}
	return out
}

// Sentences splits text on '.', '!' and '?' and trims each part. Empty parts are dropped.
func Sentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.Join(strings.Fields(p), " "); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SignificantSentences picks up to n search queries from sentences longer than
// minWords words: the first, the middle and the last when there are enough of
// them, otherwise all of them. Text without such sentences yields its first
// 100 characters.
func SignificantSentences(text string, n, minWords int) []string {
	var significant []string
	for _, s := range Sentences(text) {
		if len(strings.Fields(s)) > minWords {
			significant = append(significant, s)
		}
	}
	if len(significant) == 0 {
		head := strings.TrimSpace(text)
		if r := []rune(head); len(r) > 100 {
			head = string(r[:100])
		}
		if head == "" {
			return nil
		}
		return []string{head}
	}
	if n <= 0 || len(significant) < n {
		return significant
	}
	if n < 3 {
		return significant[:n]
	}
	return []string{
		significant[0],
		significant[len(significant)/2],
		significant[len(significant)-1],
	}
}
