package notification

import (
	"strings"
	"time"

	"github.com/bapx/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Kind is the visual severity of a notification
type Kind string

const (
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// IsValid checks if the kind is known
func (k Kind) IsValid() bool {
	switch k {
	case KindSuccess, KindWarning, KindError, KindInfo:
		return true
	}
	return false
}

// Notification is a message for exactly one recipient
type Notification struct {
	shared.BaseEntity
	RecipientID uuid.UUID
	DocumentID  *uuid.UUID // nil for system notices
	Kind        Kind
	Title       string
	Message     string
	IsRead      bool
	ReadAt      *time.Time
}

// NewNotification creates an unread notification
func NewNotification(recipientID uuid.UUID, documentID *uuid.UUID, kind Kind, title, message string) (*Notification, error) {
	if recipientID == uuid.Nil {
		return nil, shared.NewValidationError("recipient cannot be empty")
	}
	if !kind.IsValid() {
		return nil, shared.NewValidationError("unknown notification kind %q", kind)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, shared.NewValidationError("title cannot be empty")
	}
	return &Notification{
		BaseEntity:  shared.NewBaseEntity(),
		RecipientID: recipientID,
		DocumentID:  documentID,
		Kind:        kind,
		Title:       title,
		Message:     strings.TrimSpace(message),
	}, nil
}

// EnsureOwnedBy returns Forbidden unless callerID is the recipient
func (n *Notification) EnsureOwnedBy(callerID uuid.UUID) error {
	if n.RecipientID != callerID {
		return shared.NewForbiddenError("notification belongs to another user")
	}
	return nil
}

// MarkRead flips the read flag. It reports false when the notification
// was already read; the flag never goes back to false.
func (n *Notification) MarkRead(at time.Time) bool {
	if n.IsRead {
		return false
	}
	n.IsRead = true
	n.ReadAt = &at
	n.UpdatedAt = at
	return true
}
