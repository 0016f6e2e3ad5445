package notification

import (
	"context"
	"errors"
	"time"

	"github.com/bapx/backend/internal/domain/notification"
	"github.com/bapx/backend/internal/domain/shared"
	"github.com/bapx/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultUnreadCacheTTL is used when no TTL is configured
const DefaultUnreadCacheTTL = 30 * time.Second

// ErrStreamUnavailable is returned by Subscribe when no broadcaster is configured
var ErrStreamUnavailable = errors.New("notification stream is not available")

// StreamRecorder tracks open live feeds
type StreamRecorder interface {
	StreamOpened(ctx context.Context)
	StreamClosed(ctx context.Context)
}

// Service handles inbox and preference operations for the calling user
type Service struct {
	notifications notification.Repository
	preferences   notification.PreferenceRepository
	cache         notification.UnreadCountCache
	cacheTTL      time.Duration
	broadcaster   notification.Broadcaster
	streams       StreamRecorder
	logger        *zap.Logger
	now           func() time.Time
}

// ServiceOption configures optional Service collaborators
type ServiceOption func(*Service)

// WithUnreadCache enables the read-through unread count cache
func WithUnreadCache(cache notification.UnreadCountCache, ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.cache = cache
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithBroadcaster enables live feeds
func WithBroadcaster(b notification.Broadcaster) ServiceOption {
	return func(s *Service) {
		s.broadcaster = b
	}
}

// WithStreamRecorder sets the metrics sink for live feeds
func WithStreamRecorder(r StreamRecorder) ServiceOption {
	return func(s *Service) {
		s.streams = r
	}
}

// NewService creates a new notification Service
func NewService(
	notifications notification.Repository,
	preferences notification.PreferenceRepository,
	logger *zap.Logger,
	opts ...ServiceOption,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		notifications: notifications,
		preferences:   preferences,
		cacheTTL:      DefaultUnreadCacheTTL,
		logger:        logger,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns a page of the user's notifications, newest first
func (s *Service) List(ctx context.Context, userID uuid.UUID, q ListQuery) (*NotificationListResponse, error) {
	filter := shared.DefaultFilter()
	filter.Page = q.Page
	filter.PageSize = q.Limit
	filter = filter.Normalize()

	items, total, err := s.notifications.FindByRecipient(ctx, userID, notification.ListFilter{
		Filter:     filter,
		UnreadOnly: q.UnreadOnly,
	})
	if err != nil {
		return nil, err
	}

	page := shared.NewPaginated(ToNotificationResponses(items), total, filter.Page, filter.PageSize)
	return &page, nil
}

// MarkRead marks one notification of the caller as read. A notification
// that is already read is returned without a write.
func (s *Service) MarkRead(ctx context.Context, callerID, id uuid.UUID) (*NotificationResponse, error) {
	n, err := s.notifications.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := n.EnsureOwnedBy(callerID); err != nil {
		return nil, err
	}
	if n.IsRead {
		resp := ToNotificationResponse(n)
		return &resp, nil
	}

	at := s.now()
	updated, err := s.notifications.MarkRead(ctx, id, callerID, at)
	if err != nil {
		return nil, err
	}
	n.MarkRead(at)
	if updated {
		s.inboxChanged(ctx, callerID)
	}

	resp := ToNotificationResponse(n)
	return &resp, nil
}

// MarkAllRead marks every unread notification of the caller as read and
// returns the number of rows written. A second call writes nothing.
func (s *Service) MarkAllRead(ctx context.Context, callerID uuid.UUID) (int64, error) {
	updated, err := s.notifications.MarkAllRead(ctx, callerID, s.now())
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		s.inboxChanged(ctx, callerID)
	}
	return updated, nil
}

// UnreadCount returns the number of unread notifications of the user. A
// count read from the store is cached only if no invalidation happened
// since the cache lookup.
func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var gen int64
	cacheable := false
	if s.cache != nil {
		count, g, ok, err := s.cache.Get(ctx, userID)
		switch {
		case err != nil:
			logger.L(ctx, s.logger).Warn("unread count cache read failed", zap.Error(err))
		case ok:
			return count, nil
		default:
			gen, cacheable = g, true
		}
	}

	count, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return 0, err
	}

	if cacheable {
		if err := s.cache.Set(ctx, userID, count, gen, s.cacheTTL); err != nil {
			logger.L(ctx, s.logger).Warn("unread count cache write failed", zap.Error(err))
		}
	}
	return count, nil
}

// GetPreferences returns the user's switches; users without a stored
// preference get everything enabled
func (s *Service) GetPreferences(ctx context.Context, userID uuid.UUID) (*PreferenceResponse, error) {
	p, err := s.loadPreference(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := ToPreferenceResponse(p)
	return &resp, nil
}

// UpdatePreferences merges req into the stored preference
func (s *Service) UpdatePreferences(ctx context.Context, userID uuid.UUID, req UpdatePreferencesRequest) (*PreferenceResponse, error) {
	p, err := s.loadPreference(ctx, userID)
	if err != nil {
		return nil, err
	}
	p.Apply(req.toDomain())
	if err := s.preferences.Save(ctx, p); err != nil {
		return nil, err
	}

	logger.L(ctx, s.logger).Info("notification preferences updated", zap.String("user_id", userID.String()))
	resp := ToPreferenceResponse(p)
	return &resp, nil
}

func (s *Service) loadPreference(ctx context.Context, userID uuid.UUID) (*notification.Preference, error) {
	p, err := s.preferences.FindByUser(ctx, userID)
	if errors.Is(err, shared.ErrNotFound) {
		return notification.DefaultPreference(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Subscribe opens the user's live feed. The cancel func must be called
// when the client goes away.
func (s *Service) Subscribe(ctx context.Context, userID uuid.UUID) (<-chan notification.StreamMessage, func(), error) {
	if s.broadcaster == nil {
		return nil, nil, ErrStreamUnavailable
	}
	ch, cancel, err := s.broadcaster.Subscribe(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	if s.streams == nil {
		return ch, cancel, nil
	}
	s.streams.StreamOpened(ctx)
	return ch, func() {
		cancel()
		s.streams.StreamClosed(context.WithoutCancel(ctx))
	}, nil
}

// inboxChanged drops the cached count and pushes the new count to live
// feeds. The write has committed, so the caller going away does not skip
// either step.
func (s *Service) inboxChanged(ctx context.Context, userID uuid.UUID) {
	ctx = context.WithoutCancel(ctx)
	log := logger.L(ctx, s.logger)
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, userID); err != nil {
			log.Error("failed to invalidate unread count", zap.String("user_id", userID.String()), zap.Error(err))
		}
	}
	if s.broadcaster == nil {
		return
	}

	count, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		log.Warn("failed to count unread notifications", zap.Error(err))
		return
	}
	msg := notification.StreamMessage{
		RecipientID: userID,
		UnreadCount: &count,
		Timestamp:   s.now().UnixMilli(),
	}
	if err := s.broadcaster.Publish(ctx, msg); err != nil {
		log.Warn("failed to publish unread count", zap.Error(err))
	}
}
