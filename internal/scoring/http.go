package scoring

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"simcheck/internal/apperr"
	"simcheck/internal/reports"
	"simcheck/internal/store"
)

// HTTPEngine delegates scoring to a remote service.
//
// Request:  POST {"doc_a": {...}, "doc_b": {...}} with id, title and text.
// Response: {"similarity_score": 0-100, "report": {"filename", "content_type", "content_base64"}}.
type HTTPEngine struct {
	URL    string
	Client *http.Client
}

func NewHTTP(url string) (*HTTPEngine, error) {
	if url == "" {
		return nil, errors.New("SCORING_URL is required for the http scoring provider")
	}
	return &HTTPEngine{URL: url, Client: &http.Client{}}, nil
}

type httpDoc struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

type httpResponse struct {
	SimilarityScore *float64 `json:"similarity_score"`
	Report          *struct {
		Filename      string `json:"filename"`
		ContentType   string `json:"content_type"`
		ContentBase64 string `json:"content_base64"`
	} `json:"report"`
}

func (e *HTTPEngine) Compare(ctx context.Context, a, b Source) (Outcome, error) {
	body, err := json.Marshal(map[string]httpDoc{
		"doc_a": {ID: a.ID, Title: a.Title, Text: a.Text},
		"doc_b": {ID: b.ID, Title: b.Title, Text: b.Text},
	})
	if err != nil {
		return Outcome{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, bytes.NewReader(body))
	if err != nil {
		return Outcome{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{}, ctx.Err()
		}
		return Outcome{}, apperr.Upstream("scoring service", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Outcome{}, apperr.Upstream("scoring service", fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Outcome{}, fmt.Errorf("scoring service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out httpResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Outcome{}, fmt.Errorf("decode scoring response: %w", err)
	}
	if out.SimilarityScore == nil {
		return Outcome{}, errors.New("scoring response missing similarity_score")
	}

	outcome := Outcome{Score: Clamp(*out.SimilarityScore)}
	if out.Report != nil && out.Report.ContentBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(out.Report.ContentBase64)
		if err != nil {
			return Outcome{}, fmt.Errorf("decode scoring report: %w", err)
		}
		ext := filepath.Ext(out.Report.Filename)
		outcome.Report = &reports.Artifact{
			Kind:        store.ReportPairwise,
			Name:        strings.TrimSuffix(filepath.Base(out.Report.Filename), ext),
			Ext:         ext,
			ContentType: out.Report.ContentType,
			Body:        data,
		}
	}
	return outcome, nil
}
