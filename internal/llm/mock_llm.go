package llm

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockClient is a mock implementation of Client using testify/mock.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) AssessWebSimilarity(ctx context.Context, text string, sources []SourceExcerpt) (Assessment, error) {
	args := m.Called(ctx, text, sources)
	return args.Get(0).(Assessment), args.Error(1)
}
