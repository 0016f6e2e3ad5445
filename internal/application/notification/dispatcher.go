package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/bapx/backend/internal/domain/document"
	"github.com/bapx/backend/internal/domain/identity"
	"github.com/bapx/backend/internal/domain/notification"
	"github.com/bapx/backend/internal/infrastructure/logger"
	"github.com/bapx/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransitionContext is what the dispatcher needs to know about an accepted transition
type TransitionContext struct {
	Document *document.Document
	From     document.Status
	To       document.Status
	ActorID  uuid.UUID
}

// DispatchRecorder records dispatch outcomes
type DispatchRecorder interface {
	RecordDispatch(ctx context.Context, docType document.Type, to document.Status, written int, elapsed time.Duration, err error)
}

// Dispatcher turns an accepted transition into notification rows.
// It runs synchronously after the transition has been committed.
type Dispatcher struct {
	notifications notification.Repository
	preferences   notification.PreferenceRepository
	users         identity.UserRepository
	cache         notification.UnreadCountCache
	broadcaster   notification.Broadcaster
	metrics       DispatchRecorder
	logger        *zap.Logger
}

// DispatcherOption configures optional Dispatcher collaborators
type DispatcherOption func(*Dispatcher)

// WithDispatchCache invalidates unread counts of every recipient after a write
func WithDispatchCache(cache notification.UnreadCountCache) DispatcherOption {
	return func(d *Dispatcher) {
		d.cache = cache
	}
}

// WithDispatchBroadcaster pushes every written notification to live subscribers
func WithDispatchBroadcaster(b notification.Broadcaster) DispatcherOption {
	return func(d *Dispatcher) {
		d.broadcaster = b
	}
}

// WithDispatchRecorder sets the metrics sink
func WithDispatchRecorder(r DispatchRecorder) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = r
	}
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(
	notifications notification.Repository,
	preferences notification.PreferenceRepository,
	users identity.UserRepository,
	logger *zap.Logger,
	opts ...DispatcherOption,
) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		notifications: notifications,
		preferences:   preferences,
		users:         users,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch resolves the recipients of a transition, drops those who
// switched the matching preference off and writes one row each in a
// single batch.
func (d *Dispatcher) Dispatch(ctx context.Context, tc TransitionContext) (created []*notification.Notification, err error) {
	doc := tc.Document
	ctx, span := telemetry.StartServiceSpan(ctx, "notification", "dispatch",
		telemetry.AttrDocumentID, doc.ID,
		telemetry.AttrDocumentType, string(doc.Type),
		telemetry.AttrToStatus, string(tc.To),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		telemetry.SetAttributes(span, telemetry.AttrRecipients, len(created))
		telemetry.RecordError(span, err)
		if d.metrics != nil {
			d.metrics.RecordDispatch(ctx, doc.Type, tc.To, len(created), time.Since(start), err)
		}
	}()

	rule, err := notification.RuleFor(doc.Type, tc.To)
	if err != nil {
		return nil, err
	}

	var members []*identity.User
	if rule.Audience == notification.AudienceRole {
		members, err = d.users.FindActiveByRole(ctx, rule.Role)
		if err != nil {
			return nil, fmt.Errorf("resolve %s recipients: %w", rule.Role, err)
		}
	}

	recipients := rule.Resolve(doc, tc.ActorID, members)
	if len(recipients) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(recipients))
	for i, r := range recipients {
		ids[i] = r.UserID
	}
	prefs, err := d.preferences.FindByUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}

	title, message := rule.Render(doc)
	docID := doc.ID
	batch := make([]*notification.Notification, 0, len(recipients))
	for _, r := range recipients {
		if p, ok := prefs[r.UserID]; ok && !p.Allows(rule.Toggle) {
			continue
		}
		n, err := notification.NewNotification(r.UserID, &docID, rule.Kind, title, message)
		if err != nil {
			return nil, err
		}
		batch = append(batch, n)
	}
	if len(batch) == 0 {
		return nil, nil
	}

	if err := d.notifications.CreateBatch(ctx, batch); err != nil {
		return nil, err
	}

	d.afterWrite(ctx, batch)
	return batch, nil
}

// afterWrite drops cached counts and pushes live events. Failures here
// never undo the rows already written.
func (d *Dispatcher) afterWrite(ctx context.Context, batch []*notification.Notification) {
	if d.cache != nil {
		ids := make([]uuid.UUID, len(batch))
		for i, n := range batch {
			ids[i] = n.RecipientID
		}
		if err := d.cache.Invalidate(ctx, ids...); err != nil {
			logger.L(ctx, d.logger).Error("failed to invalidate unread counts", zap.Int("recipients", len(ids)), zap.Error(err))
		}
	}

	if d.broadcaster == nil {
		return
	}
	for _, n := range batch {
		msg := notification.StreamMessage{
			RecipientID:  n.RecipientID,
			Notification: n,
			Timestamp:    time.Now().UnixMilli(),
		}
		if err := d.broadcaster.Publish(ctx, msg); err != nil {
			logger.L(ctx, d.logger).Warn("failed to publish live notification",
				zap.String("recipient_id", n.RecipientID.String()),
				zap.Error(err),
			)
		}
	}
}
