package handler

import (
	appnotification "github.com/bapx/backend/internal/application/notification"
	"github.com/gin-gonic/gin"
)

// NotificationHandler handles the caller's inbox and preferences
type NotificationHandler struct {
	BaseHandler
	notificationService *appnotification.Service
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notificationService *appnotification.Service) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// ListNotificationsQuery holds the query string of an inbox listing
type ListNotificationsQuery struct {
	Unread bool `form:"unread"`
	Page   int  `form:"page" binding:"omitempty,min=1"`
	Limit  int  `form:"limit" binding:"omitempty,min=1"`
}

// List returns a page of the caller's notifications, newest first.
// GET /notifications
func (h *NotificationHandler) List(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	var q ListNotificationsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.HandleValidation(c, err)
		return
	}

	result, err := h.notificationService.List(c.Request.Context(), actor.UserID, appnotification.ListQuery{
		UnreadOnly: q.Unread,
		Page:       q.Page,
		Limit:      q.Limit,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// UnreadCount returns how many of the caller's notifications are unread.
// GET /notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	count, err := h.notificationService.UnreadCount(c.Request.Context(), actor.UserID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, appnotification.UnreadCountResponse{Count: count})
}

// MarkRead marks one of the caller's notifications as read.
// PATCH /notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	n, err := h.notificationService.MarkRead(c.Request.Context(), actor.UserID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, n)
}

// MarkAllRead marks every unread notification of the caller as read.
// PATCH /notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	updated, err := h.notificationService.MarkAllRead(c.Request.Context(), actor.UserID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, appnotification.MarkAllReadResponse{Updated: updated})
}

// GetPreferences returns the caller's notification switches.
// GET /notifications/preferences
func (h *NotificationHandler) GetPreferences(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	prefs, err := h.notificationService.GetPreferences(c.Request.Context(), actor.UserID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, prefs)
}

// UpdatePreferences changes the switches present in the body.
// PUT /notifications/preferences
func (h *NotificationHandler) UpdatePreferences(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	var req appnotification.UpdatePreferencesRequest
	if !h.BindJSON(c, &req) {
		return
	}

	prefs, err := h.notificationService.UpdatePreferences(c.Request.Context(), actor.UserID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, prefs)
}
