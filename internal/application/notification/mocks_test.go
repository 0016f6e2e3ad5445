package notification

import (
	"context"
	"time"

	"github.com/bapx/backend/internal/domain/document"
	"github.com/bapx/backend/internal/domain/identity"
	"github.com/bapx/backend/internal/domain/notification"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Mock Repositories
// =============================================================================

// MockNotificationRepository is a mock implementation of notification.Repository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) CreateBatch(ctx context.Context, items []*notification.Notification) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

func (m *MockNotificationRepository) FindByID(ctx context.Context, id uuid.UUID) (*notification.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.Notification), args.Error(1)
}

func (m *MockNotificationRepository) FindByRecipient(ctx context.Context, recipientID uuid.UUID, filter notification.ListFilter) ([]*notification.Notification, int64, error) {
	args := m.Called(ctx, recipientID, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*notification.Notification), args.Get(1).(int64), args.Error(2)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, id, recipientID uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, id, recipientID, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID, at time.Time) (int64, error) {
	args := m.Called(ctx, recipientID, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	args := m.Called(ctx, recipientID)
	return args.Get(0).(int64), args.Error(1)
}

// MockPreferenceRepository is a mock implementation of notification.PreferenceRepository
type MockPreferenceRepository struct {
	mock.Mock
}

func (m *MockPreferenceRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*notification.Preference, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.Preference), args.Error(1)
}

func (m *MockPreferenceRepository) FindByUsers(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]*notification.Preference, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]*notification.Preference), args.Error(1)
}

func (m *MockPreferenceRepository) Save(ctx context.Context, p *notification.Preference) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

// MockUserRepository is a mock implementation of identity.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*identity.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindActiveByRole(ctx context.Context, role identity.Role) ([]*identity.User, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*identity.User), args.Error(1)
}

// =============================================================================
// Mock collaborators
// =============================================================================

// MockUnreadCache is a mock implementation of notification.UnreadCountCache
type MockUnreadCache struct {
	mock.Mock
}

func (m *MockUnreadCache) Get(ctx context.Context, userID uuid.UUID) (int64, int64, bool, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Get(1).(int64), args.Bool(2), args.Error(3)
}

func (m *MockUnreadCache) Set(ctx context.Context, userID uuid.UUID, count, gen int64, ttl time.Duration) error {
	args := m.Called(ctx, userID, count, gen, ttl)
	return args.Error(0)
}

func (m *MockUnreadCache) Invalidate(ctx context.Context, userIDs ...uuid.UUID) error {
	args := m.Called(ctx, userIDs)
	return args.Error(0)
}

// MockBroadcaster is a mock implementation of notification.Broadcaster
type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) Publish(ctx context.Context, msg notification.StreamMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockBroadcaster) Subscribe(ctx context.Context, userID uuid.UUID) (<-chan notification.StreamMessage, func(), error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(<-chan notification.StreamMessage), args.Get(1).(func()), args.Error(2)
}

func (m *MockBroadcaster) Close() error {
	return m.Called().Error(0)
}

// MockDispatchRecorder records RecordDispatch calls
type MockDispatchRecorder struct {
	mock.Mock
}

func (m *MockDispatchRecorder) RecordDispatch(ctx context.Context, docType document.Type, to document.Status, written int, elapsed time.Duration, err error) {
	m.Called(ctx, docType, to, written, err)
}

// MockStreamRecorder records live feed lifecycle calls
type MockStreamRecorder struct {
	mock.Mock
}

func (m *MockStreamRecorder) StreamOpened(ctx context.Context) { m.Called() }
func (m *MockStreamRecorder) StreamClosed(ctx context.Context) { m.Called() }
