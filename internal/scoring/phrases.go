package scoring

import (
	"strings"
	"unicode"
)

const DefaultMinPhraseWords = 4

// Phrase is a run of consecutive words found in both documents.
type Phrase struct {
	TextA  string
	TextB  string
	Length int
}

type word struct {
	raw  string
	norm string
}

func words(text string) []word {
	fields := strings.Fields(text)
	out := make([]word, 0, len(fields))
	for _, f := range fields {
		n := strings.ToLower(strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		}))
		if n == "" {
			continue
		}
		out = append(out, word{raw: f, norm: n})
	}
	return out
}

// SharedPhrases returns maximal runs of at least minWords consecutive words that
// appear in both texts, in the order they occur in a. Matching ignores case and
// surrounding punctuation. A matched run is not reported again from inside itself.
func SharedPhrases(a, b string, minWords int) []Phrase {
	if minWords <= 0 {
		minWords = DefaultMinPhraseWords
	}
	wa, wb := words(a), words(b)
	if len(wa) < minWords || len(wb) < minWords {
		return nil
	}

	key := func(ws []word, i int) string {
		parts := make([]string, minWords)
		for k := 0; k < minWords; k++ {
			parts[k] = ws[i+k].norm
		}
		return strings.Join(parts, "\x00")
	}
	index := make(map[string][]int)
	for j := 0; j+minWords <= len(wb); j++ {
		k := key(wb, j)
		index[k] = append(index[k], j)
	}

	var out []Phrase
	for i := 0; i+minWords <= len(wa); {
		bestLen, bestJ := 0, -1
		for _, j := range index[key(wa, i)] {
			n := minWords
			for i+n < len(wa) && j+n < len(wb) && wa[i+n].norm == wb[j+n].norm {
				n++
			}
			if n > bestLen {
				bestLen, bestJ = n, j
			}
		}
		if bestJ < 0 {
			i++
			continue
		}
		out = append(out, Phrase{
			TextA:  join(wa[i : i+bestLen]),
			TextB:  join(wb[bestJ : bestJ+bestLen]),
			Length: bestLen,
		})
		i += bestLen
	}
	return out
}

func join(ws []word) string {
	parts := make([]string, len(ws))
	for i, w := range ws {
		parts[i] = w.raw
	}
	return strings.Join(parts, " ")
}
