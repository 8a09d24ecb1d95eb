package store

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of Store using testify/mock.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateDocument(ctx context.Context, doc Document) (Document, error) {
	args := m.Called(ctx, doc)
	return args.Get(0).(Document), args.Error(1)
}

func (m *MockStore) GetDocument(ctx context.Context, id string) (Document, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Document), args.Error(1)
}

func (m *MockStore) ListDocuments(ctx context.Context, filter DocumentFilter) ([]Document, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Document), args.Error(1)
}

func (m *MockStore) FindDocumentByHash(ctx context.Context, ownerID, hash string) (Document, error) {
	args := m.Called(ctx, ownerID, hash)
	return args.Get(0).(Document), args.Error(1)
}

func (m *MockStore) UpdateDocumentTitle(ctx context.Context, id, title string) error {
	args := m.Called(ctx, id, title)
	return args.Error(0)
}

func (m *MockStore) UpdateDocumentStatus(ctx context.Context, id string, status DocumentStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockStore) DeleteDocument(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) SaveComparisonJob(ctx context.Context, job ComparisonJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockStore) GetComparisonJob(ctx context.Context, id string) (ComparisonJob, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(ComparisonJob), args.Error(1)
}

func (m *MockStore) SaveWebCheckJob(ctx context.Context, job WebCheckJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockStore) GetWebCheckJob(ctx context.Context, id string) (WebCheckJob, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(WebCheckJob), args.Error(1)
}

func (m *MockStore) CreateReport(ctx context.Context, report Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockStore) GetReport(ctx context.Context, id string) (Report, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Report), args.Error(1)
}

func (m *MockStore) ListReports(ctx context.Context, ownerID string) ([]Report, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Report), args.Error(1)
}

func (m *MockStore) DeleteReport(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
