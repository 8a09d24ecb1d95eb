package scoring

import (
	"fmt"
	"strings"

	"simcheck/internal/reports"
	"simcheck/internal/store"
)

const maxReportPhrases = 50

// PairReport renders the plain-text similarity report for one pair.
func PairReport(a, b Source, score float64, phrases []Phrase) reports.Artifact {
	var sb strings.Builder
	sb.WriteString("Similarity Analysis Report\n\n")
	fmt.Fprintf(&sb, "Overall Similarity Score: %.2f%%\n\n", score)
	sb.WriteString("Files Compared:\n")
	fmt.Fprintf(&sb, "1. %s (%s)\n", a.Title, a.ID)
	fmt.Fprintf(&sb, "2. %s (%s)\n\n", b.Title, b.ID)

	if len(phrases) == 0 {
		sb.WriteString("No significant similar phrases found.\n")
	} else {
		sb.WriteString("Similar Phrases Found:\n\n")
		for i, p := range phrases {
			if i == maxReportPhrases {
				fmt.Fprintf(&sb, "... and %d more\n", len(phrases)-maxReportPhrases)
				break
			}
			fmt.Fprintf(&sb, "[%d words]\n  Document 1: %s\n  Document 2: %s\n", p.Length, p.TextA, p.TextB)
		}
	}

	return reports.Artifact{
		Kind:        store.ReportPairwise,
		Name:        fmt.Sprintf("report_%s_%s", short(a.ID), short(b.ID)),
		Ext:         ".txt",
		ContentType: "text/plain; charset=utf-8",
		Body:        []byte(sb.String()),
	}
}

// short keeps the random tail of a UUIDv7 so names from the same millisecond differ.
func short(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) <= 8 {
		return id
	}
	return id[len(id)-8:]
}
