package document

import (
	"context"

	appnotification "github.com/bapx/backend/internal/application/notification"
	"github.com/bapx/backend/internal/domain/document"
	"github.com/bapx/backend/internal/domain/notification"
	"github.com/bapx/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockDocumentRepository is a mock implementation of document.Repository
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindAll(ctx context.Context, filter document.ListFilter) ([]*document.Document, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*document.Document), args.Get(1).(int64), args.Error(2)
}

func (m *MockDocumentRepository) Create(ctx context.Context, d *document.Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDocumentRepository) UpdateDraft(ctx context.Context, d *document.Document, expectedVersion int) error {
	args := m.Called(ctx, d, expectedVersion)
	return args.Error(0)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, d *document.Document) ([]string, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockDocumentRepository) SaveTransition(ctx context.Context, d *document.Document, t *document.Transition) error {
	args := m.Called(ctx, d, t)
	return args.Error(0)
}

func (m *MockDocumentRepository) FindTransitions(ctx context.Context, documentID uuid.UUID) ([]document.Transition, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]document.Transition), args.Error(1)
}

func (m *MockDocumentRepository) CountByStatus(ctx context.Context, filter document.ListFilter) ([]document.StatusCount, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]document.StatusCount), args.Error(1)
}

func (m *MockDocumentRepository) GenerateNumber(ctx context.Context, t document.Type) (string, error) {
	args := m.Called(ctx, t)
	return args.String(0), args.Error(1)
}

// MockDispatcher is a mock NotificationDispatcher
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, tc appnotification.TransitionContext) ([]*notification.Notification, error) {
	args := m.Called(ctx, tc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*notification.Notification), args.Error(1)
}

// MockObjectRemover is a mock ObjectRemover
type MockObjectRemover struct {
	mock.Mock
}

func (m *MockObjectRemover) RemoveObjects(ctx context.Context, keys []string) {
	m.Called(ctx, keys)
}

// MockEventPublisher is a mock shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}
