package scoring

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockEngine is a mock implementation of Engine using testify/mock.
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) Compare(ctx context.Context, a, b Source) (Outcome, error) {
	args := m.Called(ctx, a, b)
	return args.Get(0).(Outcome), args.Error(1)
}
