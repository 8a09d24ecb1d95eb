package websearch

import (
	"context"

	"github.com/stretchr/testify/mock"

	"simcheck/internal/scoring"
)

// MockProvider is a mock implementation of Provider using testify/mock.
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Check(ctx context.Context, doc scoring.Source) (Outcome, error) {
	args := m.Called(ctx, doc)
	return args.Get(0).(Outcome), args.Error(1)
}

// MockSearcher is a mock implementation of Searcher using testify/mock.
type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Hit), args.Error(1)
}

// MockFetcher is a mock implementation of Fetcher using testify/mock.
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) (Page, error) {
	args := m.Called(ctx, url)
	return args.Get(0).(Page), args.Error(1)
}
