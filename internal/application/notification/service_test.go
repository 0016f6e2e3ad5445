package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bapx/backend/internal/domain/notification"
	"github.com/bapx/backend/internal/domain/shared"
	"github.com/bapx/backend/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newUnread(t *testing.T, recipient uuid.UUID) *notification.Notification {
	t.Helper()
	n, err := notification.NewNotification(recipient, nil, notification.KindInfo, "BAPB-2024-0001 menunggu pemeriksaan", "")
	require.NoError(t, err)
	return n
}

func fixedClock(s *Service, at time.Time) {
	s.now = func() time.Time { return at }
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	repo := new(MockNotificationRepository)
	svc := NewService(repo, new(MockPreferenceRepository), nil)

	user := uuid.New()
	items := []*notification.Notification{newUnread(t, user), newUnread(t, user)}
	repo.On("FindByRecipient", ctx, user, mock.MatchedBy(func(f notification.ListFilter) bool {
		return f.UnreadOnly && f.Page == 2 && f.PageSize == 2
	})).Return(items, int64(5), nil)

	page, err := svc.List(ctx, user, ListQuery{UnreadOnly: true, Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
	assert.Equal(t, 2, page.Pagination.CurrentPage)
	assert.Equal(t, 3, page.Pagination.TotalPages)
	assert.Equal(t, int64(5), page.Pagination.TotalItems)
}

func TestService_List_ClampsLimit(t *testing.T) {
	ctx := context.Background()
	repo := new(MockNotificationRepository)
	svc := NewService(repo, new(MockPreferenceRepository), nil)

	user := uuid.New()
	repo.On("FindByRecipient", ctx, user, mock.MatchedBy(func(f notification.ListFilter) bool {
		return f.Page == 1 && f.PageSize == shared.MaxPageSize
	})).Return([]*notification.Notification{}, int64(0), nil)

	page, err := svc.List(ctx, user, ListQuery{Limit: 5000})
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.NotNil(t, page.Data)
}

func TestService_MarkRead(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	t.Run("marks unread notification and invalidates count", func(t *testing.T) {
		repo := new(MockNotificationRepository)
		counts := new(MockUnreadCache)
		svc := NewService(repo, new(MockPreferenceRepository), nil, WithUnreadCache(counts, time.Second))
		fixedClock(svc, at)

		user := uuid.New()
		n := newUnread(t, user)
		repo.On("FindByID", ctx, n.ID).Return(n, nil)
		repo.On("MarkRead", ctx, n.ID, user, at).Return(true, nil)
		counts.On("Invalidate", mock.Anything, []uuid.UUID{user}).Return(nil)

		resp, err := svc.MarkRead(ctx, user, n.ID)
		require.NoError(t, err)
		assert.True(t, resp.IsRead)
		assert.Equal(t, at, *resp.ReadAt)
		counts.AssertExpectations(t)
	})

	t.Run("already read does not write", func(t *testing.T) {
		repo := new(MockNotificationRepository)
		svc := NewService(repo, new(MockPreferenceRepository), nil)

		user := uuid.New()
		n := newUnread(t, user)
		n.MarkRead(at)
		repo.On("FindByID", ctx, n.ID).Return(n, nil)

		resp, err := svc.MarkRead(ctx, user, n.ID)
		require.NoError(t, err)
		assert.True(t, resp.IsRead)
		repo.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("another user's notification is forbidden", func(t *testing.T) {
		repo := new(MockNotificationRepository)
		svc := NewService(repo, new(MockPreferenceRepository), nil)

		n := newUnread(t, uuid.New())
		repo.On("FindByID", ctx, n.ID).Return(n, nil)

		_, err := svc.MarkRead(ctx, uuid.New(), n.ID)
		assert.ErrorIs(t, err, shared.ErrForbidden)
		repo.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown notification", func(t *testing.T) {
		repo := new(MockNotificationRepository)
		svc := NewService(repo, new(MockPreferenceRepository), nil)

		id := uuid.New()
		repo.On("FindByID", ctx, id).Return(nil, shared.NewNotFoundError("notification", id))

		_, err := svc.MarkRead(ctx, uuid.New(), id)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("pushes the new unread count to live feeds", func(t *testing.T) {
		repo := new(MockNotificationRepository)
		b := new(MockBroadcaster)
		svc := NewService(repo, new(MockPreferenceRepository), nil, WithBroadcaster(b))
		fixedClock(svc, at)

		user := uuid.New()
		n := newUnread(t, user)
		repo.On("FindByID", ctx, n.ID).Return(n, nil)
		repo.On("MarkRead", ctx, n.ID, user, at).Return(true, nil)
		repo.On("CountUnread", mock.Anything, user).Return(int64(4), nil)
		b.On("Publish", mock.Anything, mock.MatchedBy(func(m notification.StreamMessage) bool {
			return m.RecipientID == user && m.UnreadCount != nil && *m.UnreadCount == 4
		})).Return(nil)

		_, err := svc.MarkRead(ctx, user, n.ID)
		require.NoError(t, err)
		b.AssertExpectations(t)
	})
}

func TestService_MarkAllRead(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	repo := new(MockNotificationRepository)
	counts := new(MockUnreadCache)
	svc := NewService(repo, new(MockPreferenceRepository), nil, WithUnreadCache(counts, 0))
	fixedClock(svc, at)

	user := uuid.New()
	repo.On("MarkAllRead", ctx, user, at).Return(int64(3), nil).Once()
	repo.On("MarkAllRead", ctx, user, at).Return(int64(0), nil).Once()
	counts.On("Invalidate", mock.Anything, []uuid.UUID{user}).Return(nil).Once()

	updated, err := svc.MarkAllRead(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated)

	updated, err = svc.MarkAllRead(ctx, user)
	require.NoError(t, err)
	assert.Zero(t, updated)

	counts.AssertNumberOfCalls(t, "Invalidate", 1)
}

func TestService_UnreadCount(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()

	t.Run("cache hit skips the store", func(t *testing.T) {
		repo := new(MockNotificationRepository)
		counts := new(MockUnreadCache)
		svc := NewService(repo, new(MockPreferenceRepository), nil, WithUnreadCache(counts, time.Minute))
		counts.On("Get", ctx, user).Return(int64(7), int64(0), true, nil)

		count, err := svc.UnreadCount(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, int64(7), count)
		repo.AssertNotCalled(t, "CountUnread", mock.Anything, mock.Anything)
	})

	t.Run("cache miss reads through", func(t *testing.T) {
		repo := new(MockNotificationRepository)
		counts := new(MockUnreadCache)
		svc := NewService(repo, new(MockPreferenceRepository), nil, WithUnreadCache(counts, time.Minute))
		counts.On("Get", ctx, user).Return(int64(0), int64(3), false, nil)
		repo.On("CountUnread", ctx, user).Return(int64(2), nil)
		counts.On("Set", ctx, user, int64(2), int64(3), time.Minute).Return(nil)

		count, err := svc.UnreadCount(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
		counts.AssertExpectations(t)
	})

	t.Run("cache errors fall back to the store", func(t *testing.T) {
		repo := new(MockNotificationRepository)
		counts := new(MockUnreadCache)
		svc := NewService(repo, new(MockPreferenceRepository), nil, WithUnreadCache(counts, time.Minute))
		counts.On("Get", ctx, user).Return(int64(0), int64(0), false, errors.New("redis down"))
		repo.On("CountUnread", ctx, user).Return(int64(1), nil)

		count, err := svc.UnreadCount(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
		counts.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("failed write still answers from the store", func(t *testing.T) {
		repo := new(MockNotificationRepository)
		counts := new(MockUnreadCache)
		svc := NewService(repo, new(MockPreferenceRepository), nil, WithUnreadCache(counts, time.Minute))
		counts.On("Get", ctx, user).Return(int64(0), int64(0), false, nil)
		repo.On("CountUnread", ctx, user).Return(int64(1), nil)
		counts.On("Set", ctx, user, int64(1), int64(0), time.Minute).Return(errors.New("redis down"))

		count, err := svc.UnreadCount(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("dispatch between count and cache write", func(t *testing.T) {
		repo := new(MockNotificationRepository)
		unread := cache.NewInMemoryUnreadCountCache()
		svc := NewService(repo, new(MockPreferenceRepository), nil, WithUnreadCache(unread, time.Minute))

		// The first count is taken just before a new notification lands
		repo.On("CountUnread", ctx, user).Return(int64(2), nil).Once().
			Run(func(mock.Arguments) { require.NoError(t, unread.Invalidate(ctx, user)) })
		repo.On("CountUnread", ctx, user).Return(int64(3), nil).Once()

		count, err := svc.UnreadCount(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		count, err = svc.UnreadCount(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count, "stale count must not be served from cache")

		count, err = svc.UnreadCount(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
		repo.AssertNumberOfCalls(t, "CountUnread", 2)
	})

	t.Run("without cache", func(t *testing.T) {
		repo := new(MockNotificationRepository)
		svc := NewService(repo, new(MockPreferenceRepository), nil)
		repo.On("CountUnread", ctx, user).Return(int64(0), nil)

		count, err := svc.UnreadCount(ctx, user)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestService_Preferences(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()

	t.Run("missing preference means everything enabled", func(t *testing.T) {
		prefs := new(MockPreferenceRepository)
		svc := NewService(new(MockNotificationRepository), prefs, nil)
		prefs.On("FindByUser", ctx, user).Return(nil, shared.NewNotFoundError("notification preference", user))

		resp, err := svc.GetPreferences(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, PreferenceResponse{true, true, true, true}, *resp)
	})

	t.Run("partial update keeps omitted switches", func(t *testing.T) {
		prefs := new(MockPreferenceRepository)
		svc := NewService(new(MockNotificationRepository), prefs, nil)

		stored := notification.DefaultPreference(user)
		stored.NotifyOnReview = false
		prefs.On("FindByUser", ctx, user).Return(stored, nil)
		prefs.On("Save", ctx, mock.MatchedBy(func(p *notification.Preference) bool {
			return p.UserID == user && !p.NotifyOnApproval && !p.NotifyOnReview && p.NotifyOnRejection
		})).Return(nil)

		off := false
		resp, err := svc.UpdatePreferences(ctx, user, UpdatePreferencesRequest{NotifyOnApproval: &off})
		require.NoError(t, err)
		assert.False(t, resp.NotifyOnApproval)
		assert.False(t, resp.NotifyOnReview)
		assert.True(t, resp.NotifyOnSubmission)
		prefs.AssertExpectations(t)
	})

	t.Run("storage failure", func(t *testing.T) {
		prefs := new(MockPreferenceRepository)
		svc := NewService(new(MockNotificationRepository), prefs, nil)
		prefs.On("FindByUser", ctx, user).Return(nil, shared.NewStorageError("load preference", errors.New("eof")))

		_, err := svc.GetPreferences(ctx, user)
		assert.ErrorIs(t, err, shared.ErrStorageFailure)
	})
}

func TestService_Subscribe(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()

	t.Run("unavailable without broadcaster", func(t *testing.T) {
		svc := NewService(new(MockNotificationRepository), new(MockPreferenceRepository), nil)
		_, _, err := svc.Subscribe(ctx, user)
		assert.ErrorIs(t, err, ErrStreamUnavailable)
	})

	t.Run("records open and close", func(t *testing.T) {
		b := new(MockBroadcaster)
		streams := new(MockStreamRecorder)
		svc := NewService(new(MockNotificationRepository), new(MockPreferenceRepository), nil,
			WithBroadcaster(b), WithStreamRecorder(streams))

		ch := make(chan notification.StreamMessage)
		cancelled := false
		b.On("Subscribe", ctx, user).Return((<-chan notification.StreamMessage)(ch), func() { cancelled = true }, nil)
		streams.On("StreamOpened").Return().Once()
		streams.On("StreamClosed").Return().Once()

		feed, cancel, err := svc.Subscribe(ctx, user)
		require.NoError(t, err)
		assert.NotNil(t, feed)

		cancel()
		assert.True(t, cancelled)
		streams.AssertExpectations(t)
	})
}
