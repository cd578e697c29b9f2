package controller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/fonsecaaso/tinylink/internal/model"
	"github.com/fonsecaaso/tinylink/internal/repository"
)

// MockLinkRepository is a mock implementation of repository.LinkRepository
type MockLinkRepository struct {
	mock.Mock
}

func (m *MockLinkRepository) ListLinks(ctx context.Context) ([]model.Link, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Link), args.Error(1)
}

func (m *MockLinkRepository) CreateLink(ctx context.Context, longURL, code string) (*model.Link, error) {
	args := m.Called(ctx, longURL, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Link), args.Error(1)
}

func (m *MockLinkRepository) DeleteLink(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *MockLinkRepository) GetLink(ctx context.Context, code string) (*model.Link, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Link), args.Error(1)
}

func (m *MockLinkRepository) Health(ctx context.Context) (*model.Health, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Health), args.Error(1)
}

var _ repository.LinkRepository = (*MockLinkRepository)(nil)

func setupLogger(t *testing.T) {
	// Initialize logger for tests
	logger, _ := zap.NewDevelopment()
	zap.ReplaceGlobals(logger)
}

func apiError(kind error, status int, message string) error {
	return &repository.APIError{Kind: kind, Status: status, Message: message}
}

func sampleLinks() []model.Link {
	return []model.Link{
		{Code: "docs12", LongURL: "https://example.com/docs/getting-started", Clicks: 42},
		{Code: "login88", LongURL: "https://app.example.com/login", Clicks: 5},
	}
}
