package notification

import (
	"context"
	"time"

	"github.com/bapx/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ListFilter narrows a notification listing
type ListFilter struct {
	shared.Filter
	UnreadOnly bool
}

// Repository defines the interface for notification persistence
type Repository interface {
	// CreateBatch inserts all notifications of one dispatch in a single statement
	CreateBatch(ctx context.Context, notifications []*Notification) error

	// FindByID finds a notification by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Notification, error)

	// FindByRecipient returns a page of a user's notifications, newest first
	FindByRecipient(ctx context.Context, recipientID uuid.UUID, filter ListFilter) ([]*Notification, int64, error)

	// MarkRead sets is_read on one unread notification of the recipient.
	// Returns false when nothing was updated.
	MarkRead(ctx context.Context, id, recipientID uuid.UUID, at time.Time) (bool, error)

	// MarkAllRead sets is_read on every unread notification of the
	// recipient and returns the number of rows written
	MarkAllRead(ctx context.Context, recipientID uuid.UUID, at time.Time) (int64, error)

	// CountUnread counts unread notifications of the recipient
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error)
}

// PreferenceRepository defines the interface for preference persistence
type PreferenceRepository interface {
	// FindByUser returns the stored preference or shared.ErrNotFound
	FindByUser(ctx context.Context, userID uuid.UUID) (*Preference, error)

	// FindByUsers returns stored preferences keyed by user; users without a
	// row are absent from the map
	FindByUsers(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]*Preference, error)

	// Save inserts or updates a preference
	Save(ctx context.Context, p *Preference) error
}
