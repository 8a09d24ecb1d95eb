package llm

import "context"

// SourceExcerpt is one web page shown to the model.
type SourceExcerpt struct {
	URL        string
	Title      string
	Content    string
	Similarity float64
}

// Match is a passage the model found in both the document and a source.
type Match struct {
	DocumentText string  `json:"assignment_text"`
	SourceURL    string  `json:"source_url"`
	SourceText   string  `json:"source_text"`
	Similarity   float64 `json:"similarity"`
	MatchType    string  `json:"match_type"`
}

// Assessment is the model's reading of a document against its web sources.
type Assessment struct {
	Score      float64 `json:"overall_similarity_score"`
	Summary    string  `json:"similarity_assessment"`
	Matches    []Match `json:"detailed_matches"`
	Conclusion string  `json:"conclusion"`
}

// Client is a minimal LLM interface to allow pluggable providers.
type Client interface {
	AssessWebSimilarity(ctx context.Context, text string, sources []SourceExcerpt) (Assessment, error)
}
