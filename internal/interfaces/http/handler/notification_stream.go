package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	appnotification "github.com/bapx/backend/internal/application/notification"
	"github.com/bapx/backend/internal/domain/notification"
	"github.com/bapx/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SSE event names
const (
	StreamEventConnected    = "connected"
	StreamEventNotification = "notification"
	StreamEventUnreadCount  = "unread_count"
	StreamEventHeartbeat    = "heartbeat"
)

// StreamEvent is one server-sent event
type StreamEvent struct {
	Event string
	ID    string
	Data  string
}

// streamNotificationPayload is the data of a notification event
type streamNotificationPayload struct {
	Notification appnotification.NotificationResponse `json:"notification"`
	UnreadCount  *int64                               `json:"unreadCount,omitempty"`
}

// NotificationStreamHandler serves the caller's live notification feed
type NotificationStreamHandler struct {
	BaseHandler
	notificationService *appnotification.Service
	logger              *zap.Logger
	heartbeat           time.Duration
	maxClients          int64
	clients             atomic.Int64
	ctx                 context.Context
	cancel              context.CancelFunc
}

// NotificationStreamOption configures a NotificationStreamHandler
type NotificationStreamOption func(*NotificationStreamHandler)

// WithStreamLogger sets the logger
func WithStreamLogger(logger *zap.Logger) NotificationStreamOption {
	return func(h *NotificationStreamHandler) {
		h.logger = logger
	}
}

// WithStreamHeartbeat sets the heartbeat interval
func WithStreamHeartbeat(interval time.Duration) NotificationStreamOption {
	return func(h *NotificationStreamHandler) {
		if interval > 0 {
			h.heartbeat = interval
		}
	}
}

// WithStreamMaxClients caps concurrent streams; zero means no cap
func WithStreamMaxClients(max int) NotificationStreamOption {
	return func(h *NotificationStreamHandler) {
		h.maxClients = int64(max)
	}
}

// NewNotificationStreamHandler creates a new NotificationStreamHandler
func NewNotificationStreamHandler(notificationService *appnotification.Service, opts ...NotificationStreamOption) *NotificationStreamHandler {
	ctx, cancel := context.WithCancel(context.Background())
	h := &NotificationStreamHandler{
		notificationService: notificationService,
		logger:              zap.NewNop(),
		heartbeat:           25 * time.Second,
		maxClients:          10000,
		ctx:                 ctx,
		cancel:              cancel,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Stop disconnects every open stream. Called on shutdown so that the
// HTTP server is not held open by long-lived requests.
func (h *NotificationStreamHandler) Stop() {
	h.cancel()
}

// ClientCount returns the number of open streams
func (h *NotificationStreamHandler) ClientCount() int {
	return int(h.clients.Load())
}

// Stream holds the request open and pushes new notifications and unread
// counts as server-sent events until the client goes away.
// GET /notifications/stream
func (h *NotificationStreamHandler) Stream(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	if n := h.clients.Add(1); h.maxClients > 0 && n > h.maxClients {
		h.clients.Add(-1)
		h.Error(c, dto.ErrCodeServiceUnavailable, "Maximum number of live connections reached")
		return
	}
	defer h.clients.Add(-1)

	reqCtx := c.Request.Context()
	feed, unsubscribe, err := h.notificationService.Subscribe(reqCtx, actor.UserID)
	if err != nil {
		if errors.Is(err, appnotification.ErrStreamUnavailable) {
			h.Error(c, dto.ErrCodeServiceUnavailable, "Live notifications are not available")
			return
		}
		h.HandleError(c, err)
		return
	}
	defer unsubscribe()

	count, err := h.notificationService.UnreadCount(reqCtx, actor.UserID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	log := h.logger.With(zap.String("user_id", actor.UserID.String()))
	log.Info("Notification stream opened")

	h.send(c, StreamEvent{
		Event: StreamEventConnected,
		Data:  fmt.Sprintf(`{"unreadCount":%d,"timestamp":%d}`, count, time.Now().UnixMilli()),
	})

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-reqCtx.Done():
			log.Info("Notification stream closed by client")
			return
		case <-h.ctx.Done():
			log.Info("Notification stream closed by server")
			return
		case msg, ok := <-feed:
			if !ok {
				log.Info("Notification feed ended")
				return
			}
			event, err := toStreamEvent(msg)
			if err != nil {
				log.Error("Failed to encode stream message", zap.Error(err))
				continue
			}
			h.send(c, event)
		case <-ticker.C:
			h.send(c, StreamEvent{
				Event: StreamEventHeartbeat,
				Data:  fmt.Sprintf(`{"timestamp":%d}`, time.Now().UnixMilli()),
			})
		}
	}
}

func (h *NotificationStreamHandler) send(c *gin.Context, event StreamEvent) {
	writeStreamEvent(c.Writer, event)
	c.Writer.Flush()
}

// toStreamEvent converts a feed message. A message carrying a notification
// becomes a notification event, a bare count an unread_count event.
func toStreamEvent(msg notification.StreamMessage) (StreamEvent, error) {
	id := strconv.FormatInt(msg.Timestamp, 10)
	if msg.Notification != nil {
		data, err := json.Marshal(streamNotificationPayload{
			Notification: appnotification.ToNotificationResponse(msg.Notification),
			UnreadCount:  msg.UnreadCount,
		})
		if err != nil {
			return StreamEvent{}, err
		}
		return StreamEvent{Event: StreamEventNotification, ID: id, Data: string(data)}, nil
	}

	var count int64
	if msg.UnreadCount != nil {
		count = *msg.UnreadCount
	}
	return StreamEvent{
		Event: StreamEventUnreadCount,
		ID:    id,
		Data:  fmt.Sprintf(`{"unreadCount":%d}`, count),
	}, nil
}

func writeStreamEvent(w io.Writer, event StreamEvent) {
	if event.Event != "" {
		fmt.Fprintf(w, "event: %s\n", event.Event)
	}
	if event.ID != "" {
		fmt.Fprintf(w, "id: %s\n", event.ID)
	}
	fmt.Fprintf(w, "data: %s\n\n", event.Data)
}
