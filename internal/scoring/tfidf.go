package scoring

import (
	"context"
	"math"
	"strings"
	"unicode"

	"simcheck/internal/apperr"
)

// Tokenize lowercases text, drops punctuation without splitting words on it,
// and keeps tokens of at least two word characters.
func Tokenize(text string) []string {
	var (
		tokens []string
		cur    []rune
	)
	flush := func() {
		if len(cur) >= 2 {
			tokens = append(tokens, string(cur))
		}
		cur = cur[:0]
	}
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsMark(r), r == '_':
			cur = append(cur, r)
		case unicode.IsSpace(r):
			flush()
		}
	}
	flush()
	return tokens
}

// Similarity returns the TF-IDF cosine similarity of a and b in [0,1], fitting
// the vocabulary on the two texts with smoothed idf and L2-normalized rows.
func Similarity(a, b string) float64 {
	return similarityTokens(Tokenize(a), Tokenize(b))
}

func similarityTokens(ta, tb []string) float64 {
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	ca, cb := counts(ta), counts(tb)

	// idf = ln((1+n)/(1+df)) + 1 with n = 2 documents.
	idf := func(term string) float64 {
		df := 0.0
		if ca[term] > 0 {
			df++
		}
		if cb[term] > 0 {
			df++
		}
		return math.Log(3/(1+df)) + 1
	}

	wa := make(map[string]float64, len(ca))
	for term, n := range ca {
		wa[term] = float64(n) * idf(term)
	}
	wb := make(map[string]float64, len(cb))
	for term, n := range cb {
		wb[term] = float64(n) * idf(term)
	}

	var dot float64
	for term, w := range wa {
		dot += w * wb[term]
	}
	na, nb := norm(wa), norm(wb)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (na * nb)
}

func counts(tokens []string) map[string]int {
	out := make(map[string]int, len(tokens))
	for _, t := range tokens {
		out[t]++
	}
	return out
}

func norm(w map[string]float64) float64 {
	var sum float64
	for _, v := range w {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// TFIDFEngine scores locally and attaches a shared-phrase report.
type TFIDFEngine struct {
	MinPhraseWords int
}

func NewTFIDF() *TFIDFEngine {
	return &TFIDFEngine{MinPhraseWords: DefaultMinPhraseWords}
}

func (e *TFIDFEngine) Compare(ctx context.Context, a, b Source) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	ta, tb := Tokenize(a.Text), Tokenize(b.Text)
	if len(ta) == 0 && len(tb) == 0 {
		return Outcome{}, apperr.Validation("documents %s and %s have no comparable text", a.ID, b.ID)
	}
	score := Percent(similarityTokens(ta, tb))
	phrases := SharedPhrases(a.Text, b.Text, e.MinPhraseWords)
	report := PairReport(a, b, score, phrases)
	return Outcome{Score: score, Report: &report}, nil
}
