package router

import (
	"github.com/bapx/backend/internal/domain/document"
	"github.com/bapx/backend/internal/interfaces/http/handler"
	"github.com/bapx/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// Handlers bundles every handler the API mounts
type Handlers struct {
	Health       *handler.HealthHandler
	Auth         *handler.AuthHandler
	Document     *handler.DocumentHandler
	Attachment   *handler.AttachmentHandler
	Notification *handler.NotificationHandler
	Stream       *handler.NotificationStreamHandler
}

// APIConfig holds the middleware wrapped around the versioned API
type APIConfig struct {
	// Authenticate resolves the caller; it must skip the login path
	Authenticate gin.HandlerFunc
	// After runs once the caller is known, e.g. middleware.SpanEnricher
	After []gin.HandlerFunc
	// LoginLimiter throttles login attempts per client IP; nil disables it
	LoginLimiter *middleware.RateLimiter
}

// Mount registers the probes and every API route on engine and returns
// the API route table relative to the base path
func Mount(engine *gin.Engine, h Handlers, cfg APIConfig) []string {
	engine.GET("/health", h.Health.Health)
	engine.GET("/ready", h.Health.Ready)

	r := NewRouter(engine, WithAPIVersion("v1"))
	if cfg.Authenticate != nil {
		r.Use(cfg.Authenticate)
	}
	r.Use(cfg.After...)

	var table []string
	for _, g := range []*DomainGroup{
		authRoutes(h.Auth, cfg.LoginLimiter),
		documentRoutes(h.Document),
		attachmentRoutes(h.Attachment),
		notificationRoutes(h.Notification, h.Stream),
	} {
		r.Register(g)
		table = append(table, g.Paths()...)
	}

	r.Setup()
	return table
}

func authRoutes(h *handler.AuthHandler, limiter *middleware.RateLimiter) *DomainGroup {
	g := NewDomainGroup("auth", "/auth")
	if limiter != nil {
		g.POST("/login", middleware.RateLimit(limiter), h.Login)
	} else {
		g.POST("/login", h.Login)
	}
	g.POST("/logout", h.Logout)
	g.GET("/me", h.GetCurrentUser)
	return g
}

func documentRoutes(h *handler.DocumentHandler) *DomainGroup {
	g := NewDomainGroup("documents", "/documents")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/summary", h.Summary)
	g.GET("/:id", h.GetByID)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/transitions", h.Transition)
	g.GET("/:id/history", h.History)
	return g
}

// attachmentRoutes nests uploads under the document type so a BAPP id can
// never be reached through the BAPB path
func attachmentRoutes(h *handler.AttachmentHandler) *DomainGroup {
	g := NewDomainGroup("attachments", "")
	g.GET("/bapb/:id/attachments", h.ListFor(document.TypeBAPB))
	g.POST("/bapb/:id/attachments", h.UploadFor(document.TypeBAPB))
	g.GET("/bapp/:id/attachments", h.ListFor(document.TypeBAPP))
	g.POST("/bapp/:id/attachments", h.UploadFor(document.TypeBAPP))
	g.DELETE("/attachments/:id", h.Delete)
	g.GET("/attachments/:id/download", h.Download)
	return g
}

func notificationRoutes(h *handler.NotificationHandler, stream *handler.NotificationStreamHandler) *DomainGroup {
	g := NewDomainGroup("notifications", "/notifications")
	g.GET("", h.List)
	g.GET("/unread-count", h.UnreadCount)
	g.GET("/stream", stream.Stream)
	g.PATCH("/read-all", h.MarkAllRead)
	g.PATCH("/:id/read", h.MarkRead)
	g.GET("/preferences", h.GetPreferences)
	g.PUT("/preferences", h.UpdatePreferences)
	return g
}
