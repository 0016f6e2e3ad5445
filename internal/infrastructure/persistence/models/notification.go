package models

import (
	"time"

	"github.com/bapx/backend/internal/domain/notification"
	"github.com/google/uuid"
)

// NotificationModel is the persistence model for the Notification domain entity.
type NotificationModel struct {
	BaseModel
	RecipientID uuid.UUID         `gorm:"type:uuid;not null;index:idx_notifications_recipient_read"`
	DocumentID  *uuid.UUID        `gorm:"type:uuid;index"`
	Kind        notification.Kind `gorm:"type:varchar(20);not null"`
	Title       string            `gorm:"type:varchar(255);not null"`
	Message     string            `gorm:"type:text"`
	IsRead      bool              `gorm:"not null;index:idx_notifications_recipient_read"`
	ReadAt      *time.Time
}

// TableName returns the table name for GORM
func (NotificationModel) TableName() string {
	return "notifications"
}

// ToDomain converts the persistence model to a domain Notification.
func (m *NotificationModel) ToDomain() *notification.Notification {
	return &notification.Notification{
		BaseEntity:  m.Entity(),
		RecipientID: m.RecipientID,
		DocumentID:  m.DocumentID,
		Kind:        m.Kind,
		Title:       m.Title,
		Message:     m.Message,
		IsRead:      m.IsRead,
		ReadAt:      m.ReadAt,
	}
}

// NotificationModelFromDomain creates a new persistence model from a domain Notification.
func NotificationModelFromDomain(n *notification.Notification) *NotificationModel {
	m := &NotificationModel{
		RecipientID: n.RecipientID,
		DocumentID:  n.DocumentID,
		Kind:        n.Kind,
		Title:       n.Title,
		Message:     n.Message,
		IsRead:      n.IsRead,
		ReadAt:      n.ReadAt,
	}
	m.SetEntity(n.BaseEntity)
	return m
}

// NotificationPreferenceModel is the persistence model for notification preferences.
type NotificationPreferenceModel struct {
	UserID             uuid.UUID `gorm:"type:uuid;primary_key"`
	NotifyOnSubmission bool      `gorm:"not null"`
	NotifyOnReview     bool      `gorm:"not null"`
	NotifyOnApproval   bool      `gorm:"not null"`
	NotifyOnRejection  bool      `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (NotificationPreferenceModel) TableName() string {
	return "notification_preferences"
}

// ToDomain converts the persistence model to a domain Preference.
func (m *NotificationPreferenceModel) ToDomain() *notification.Preference {
	return &notification.Preference{
		UserID:             m.UserID,
		NotifyOnSubmission: m.NotifyOnSubmission,
		NotifyOnReview:     m.NotifyOnReview,
		NotifyOnApproval:   m.NotifyOnApproval,
		NotifyOnRejection:  m.NotifyOnRejection,
		UpdatedAt:          m.UpdatedAt,
	}
}

// PreferenceModelFromDomain creates a new persistence model from a domain Preference.
func PreferenceModelFromDomain(p *notification.Preference) *NotificationPreferenceModel {
	return &NotificationPreferenceModel{
		UserID:             p.UserID,
		NotifyOnSubmission: p.NotifyOnSubmission,
		NotifyOnReview:     p.NotifyOnReview,
		NotifyOnApproval:   p.NotifyOnApproval,
		NotifyOnRejection:  p.NotifyOnRejection,
		UpdatedAt:          p.UpdatedAt,
	}
}
