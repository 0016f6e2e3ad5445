package notification

import (
	"time"

	"github.com/bapx/backend/internal/domain/notification"
	"github.com/bapx/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ListQuery narrows a notification listing
type ListQuery struct {
	UnreadOnly bool
	Page       int
	Limit      int
}

// NotificationResponse represents a notification in API responses
type NotificationResponse struct {
	ID         uuid.UUID         `json:"id"`
	DocumentID *uuid.UUID        `json:"documentId,omitempty"`
	Kind       notification.Kind `json:"type"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	IsRead     bool              `json:"isRead"`
	ReadAt     *time.Time        `json:"readAt,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// ToNotificationResponse converts a domain Notification to a response DTO
func ToNotificationResponse(n *notification.Notification) NotificationResponse {
	return NotificationResponse{
		ID:         n.ID,
		DocumentID: n.DocumentID,
		Kind:       n.Kind,
		Title:      n.Title,
		Message:    n.Message,
		IsRead:     n.IsRead,
		ReadAt:     n.ReadAt,
		CreatedAt:  n.CreatedAt,
	}
}

// ToNotificationResponses converts a slice of notifications
func ToNotificationResponses(items []*notification.Notification) []NotificationResponse {
	out := make([]NotificationResponse, len(items))
	for i, n := range items {
		out[i] = ToNotificationResponse(n)
	}
	return out
}

// NotificationListResponse is a page of notifications
type NotificationListResponse = shared.Paginated[NotificationResponse]

// PreferenceResponse represents notification switches in API responses
type PreferenceResponse struct {
	NotifyOnSubmission bool `json:"notifyOnSubmission"`
	NotifyOnReview     bool `json:"notifyOnReview"`
	NotifyOnApproval   bool `json:"notifyOnApproval"`
	NotifyOnRejection  bool `json:"notifyOnRejection"`
}

// ToPreferenceResponse converts a domain Preference to a response DTO
func ToPreferenceResponse(p *notification.Preference) PreferenceResponse {
	return PreferenceResponse{
		NotifyOnSubmission: p.NotifyOnSubmission,
		NotifyOnReview:     p.NotifyOnReview,
		NotifyOnApproval:   p.NotifyOnApproval,
		NotifyOnRejection:  p.NotifyOnRejection,
	}
}

// UpdatePreferencesRequest is a partial update; omitted switches keep their value
type UpdatePreferencesRequest struct {
	NotifyOnSubmission *bool `json:"notifyOnSubmission"`
	NotifyOnReview     *bool `json:"notifyOnReview"`
	NotifyOnApproval   *bool `json:"notifyOnApproval"`
	NotifyOnRejection  *bool `json:"notifyOnRejection"`
}

func (r UpdatePreferencesRequest) toDomain() notification.PreferenceUpdate {
	return notification.PreferenceUpdate{
		NotifyOnSubmission: r.NotifyOnSubmission,
		NotifyOnReview:     r.NotifyOnReview,
		NotifyOnApproval:   r.NotifyOnApproval,
		NotifyOnRejection:  r.NotifyOnRejection,
	}
}

// UnreadCountResponse carries the unread badge count
type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

// MarkAllReadResponse reports how many notifications were updated
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}
