package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"simcheck/internal/apperr"
)

// SerperClient queries the Serper Google search API.
type SerperClient struct {
	APIKey string
	URL    string
	HTTP   *http.Client
}

func NewSerper(apiKey, url string) (*SerperClient, error) {
	if apiKey == "" {
		return nil, errors.New("SERPER_API_KEY is required for the serper web provider")
	}
	return &SerperClient{APIKey: apiKey, URL: url, HTTP: &http.Client{}}, nil
}

type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

func (c *SerperClient) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	body, err := json.Marshal(map[string]any{"q": query, "num": limit})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperr.Upstream("serper", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, apperr.Upstream("serper", fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serper returned status %d", resp.StatusCode)
	}

	var out serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode serper response: %w", err)
	}
	hits := make([]Hit, 0, len(out.Organic))
	for _, o := range out.Organic {
		if limit > 0 && len(hits) == limit {
			break
		}
		hits = append(hits, Hit{Title: o.Title, Link: o.Link, Snippet: o.Snippet})
	}
	return hits, nil
}
