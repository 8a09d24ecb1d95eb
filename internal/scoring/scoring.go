// Package scoring holds the pairwise similarity engines: a local TF-IDF
// engine, an embedding engine and a client for a remote scoring service.
package scoring

import (
	"context"
	"math"

	"simcheck/internal/reports"
)

// Source is one side of a comparison.
type Source struct {
	ID    string
	Title string
	Text  string
}

// Outcome is an engine result. Report is optional.
type Outcome struct {
	Score  float64
	Report *reports.Artifact
}

// Engine scores two documents in [0,100].
type Engine interface {
	Compare(ctx context.Context, a, b Source) (Outcome, error)
}

// Percent converts a cosine in [-1,1] to a score in [0,100] rounded to two decimals.
func Percent(cosine float64) float64 {
	return Clamp(math.Round(cosine*100*100) / 100)
}

// Clamp bounds a score to [0,100]. NaN becomes 0.
func Clamp(score float64) float64 {
	switch {
	case math.IsNaN(score), score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}
