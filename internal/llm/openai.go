package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"simcheck/internal/apperr"
)

// OpenAIClient calls the OpenAI Chat Completions API.
type OpenAIClient struct {
	model  openai.ChatModel
	client *openai.Client
}

const (
	defaultChatTemperature = 0.2
	maxDocumentChars       = 3000
	maxSourceChars         = 1000
)

// NewOpenAIClient builds a client with defaults against api.openai.com.
func NewOpenAIClient(apiKey string, model openai.ChatModel) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key required")
	}
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	cli := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIClient{
		model:  model,
		client: &cli,
	}, nil
}

const assessInstructions = `You compare a student document with web content and judge originality.
Respond with JSON only, using these keys:
- overall_similarity_score: a number from 0-100
- similarity_assessment: a short description of the overall similarity
- detailed_matches: array of {assignment_text, source_url, source_text, similarity (0-100), match_type ("Exact Match", "Similar Content" or "Common Knowledge")}
- conclusion: whether the document looks like potential plagiarism or original work
Distinguish copied passages from common knowledge and standard phrasing.`

func (c *OpenAIClient) AssessWebSimilarity(ctx context.Context, text string, sources []SourceExcerpt) (Assessment, error) {
	if c == nil || c.client == nil {
		return Assessment{}, fmt.Errorf("nil openai client")
	}
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    buildMessages(assessInstructions, assessPrompt(text, sources)),
		Temperature: openai.Float(defaultChatTemperature),
	})
	if err != nil {
		return Assessment{}, classify(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return Assessment{}, fmt.Errorf("openai: no choices returned")
	}
	return parseAssessment(resp.Choices[0].Message.Content), nil
}

func assessPrompt(text string, sources []SourceExcerpt) string {
	var sb strings.Builder
	sb.WriteString("DOCUMENT TEXT:\n```\n")
	sb.WriteString(truncate(text, maxDocumentChars))
	sb.WriteString("\n```\n\nWEB CONTENT SOURCES:\n")
	for i, s := range sources {
		fmt.Fprintf(&sb, "\nSOURCE %d - %s (TF-IDF similarity %.2f%%):\n```\n%s\n```\n", i+1, s.URL, s.Similarity, truncate(s.Content, maxSourceChars))
	}
	if len(sources) == 0 {
		sb.WriteString("(no web sources were found)\n")
	}
	return sb.String()
}

func buildMessages(system, user string) []openai.ChatCompletionMessageParamUnion {
	return []openai.ChatCompletionMessageParamUnion{
		{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(system),
				},
			},
		},
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfString: openai.String(user),
				},
			},
		},
	}
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")

// parseAssessment reads the JSON reply, fenced or bare. Replies that are not
// JSON become a free-text summary with a negative score, meaning "not scored".
func parseAssessment(content string) Assessment {
	raw := strings.TrimSpace(content)
	if m := fencedJSON.FindStringSubmatch(raw); m != nil {
		raw = m[1]
	}
	var a Assessment
	if err := json.Unmarshal([]byte(raw), &a); err == nil {
		return a
	}
	return Assessment{
		Score:      -1,
		Summary:    truncate(content, 500),
		Conclusion: tail(content, 500),
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func tail(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

// classify marks rate limits, server errors and transport failures as retryable.
func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500 {
			return apperr.Upstream("openai chat", err)
		}
		return fmt.Errorf("openai chat: %w", err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return apperr.Upstream("openai chat", err)
}
