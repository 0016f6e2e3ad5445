package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appattachment "github.com/bapx/backend/internal/application/attachment"
	appdocument "github.com/bapx/backend/internal/application/document"
	appidentity "github.com/bapx/backend/internal/application/identity"
	appnotification "github.com/bapx/backend/internal/application/notification"
	"github.com/bapx/backend/internal/domain/attachment"
	"github.com/bapx/backend/internal/domain/document"
	"github.com/bapx/backend/internal/domain/identity"
	"github.com/bapx/backend/internal/infrastructure/auth"
	"github.com/bapx/backend/internal/infrastructure/cache"
	"github.com/bapx/backend/internal/infrastructure/config"
	"github.com/bapx/backend/internal/infrastructure/persistence"
	"github.com/bapx/backend/internal/infrastructure/storage"
	"github.com/bapx/backend/internal/interfaces/http/dto"
	"github.com/bapx/backend/internal/interfaces/http/middleware"
	"github.com/bapx/backend/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// envelope mirrors dto.Response with a typed payload
type envelope[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data"`
	Error   *dto.ErrorInfo `json:"error"`
}

// testApp wires the real services on an in-memory sqlite database and
// mounts every handler. Callers authenticate with the development headers.
type testApp struct {
	db          *gorm.DB
	router      *gin.Engine
	jwt         *auth.JWTService
	blacklist   *auth.InMemoryTokenBlacklist
	storage     *storage.MemoryObjectStorage
	broadcaster *cache.InMemoryBroadcaster
	stream      *NotificationStreamHandler

	vendor  *identity.User
	pic1    *identity.User
	pic2    *identity.User
	direksi *identity.User
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	middleware.SetupValidator()

	db := testutil.NewSQLiteDB(t)
	app := &testApp{
		db: db,
		jwt: auth.NewJWTService(config.JWTConfig{
			Secret:                "test-secret-key-at-least-32-chars",
			AccessTokenExpiration: 15 * time.Minute,
			Issuer:                "test-issuer",
		}),
		blacklist:   auth.NewInMemoryTokenBlacklist(),
		storage:     storage.NewMemoryObjectStorage(),
		broadcaster: cache.NewInMemoryBroadcaster(),
		vendor:      testutil.SeedUser(t, db, "vendor", identity.RoleVendor),
		pic1:        testutil.SeedUser(t, db, "pic1", identity.RolePIC),
		pic2:        testutil.SeedUser(t, db, "pic2", identity.RolePIC),
		direksi:     testutil.SeedUser(t, db, "direksi", identity.RoleDireksi),
	}
	t.Cleanup(func() { _ = app.broadcaster.Close() })

	userRepo := persistence.NewGormUserRepository(db)
	docRepo := persistence.NewGormDocumentRepository(db)
	notifRepo := persistence.NewGormNotificationRepository(db)
	prefRepo := persistence.NewGormPreferenceRepository(db)

	policy, err := attachment.NewPolicy(attachment.DefaultPolicyConfig())
	require.NoError(t, err)

	attachmentService := appattachment.NewService(
		persistence.NewGormAttachmentRepository(db),
		docRepo,
		app.storage,
		policy,
		appattachment.DefaultServiceConfig(),
		nil,
	)
	dispatcher := appnotification.NewDispatcher(notifRepo, prefRepo, userRepo, nil,
		appnotification.WithDispatchBroadcaster(app.broadcaster))
	notificationService := appnotification.NewService(notifRepo, prefRepo, nil,
		appnotification.WithBroadcaster(app.broadcaster))
	documentService := appdocument.NewService(docRepo, dispatcher, attachmentService, nil)
	authService := appidentity.NewAuthService(userRepo, app.jwt, app.blacklist, nil)

	authHandler := NewAuthHandler(authService)
	documentHandler := NewDocumentHandler(documentService)
	attachmentHandler := NewAttachmentHandler(attachmentService)
	notificationHandler := NewNotificationHandler(notificationService)
	app.stream = NewNotificationStreamHandler(notificationService, WithStreamHeartbeat(50*time.Millisecond))
	t.Cleanup(app.stream.Stop)

	r := gin.New()
	r.Use(middleware.RequestID())
	authCfg := middleware.DefaultAuthConfig(app.jwt)
	authCfg.TokenBlacklist = app.blacklist
	authCfg.AllowDevHeaders = true
	r.Use(middleware.Authenticate(authCfg))

	api := r.Group("/api/v1")
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/logout", authHandler.Logout)
	api.GET("/auth/me", authHandler.GetCurrentUser)

	docs := api.Group("/documents")
	docs.GET("", documentHandler.List)
	docs.POST("", documentHandler.Create)
	docs.GET("/summary", documentHandler.Summary)
	docs.GET("/:id", documentHandler.GetByID)
	docs.PUT("/:id", documentHandler.Update)
	docs.DELETE("/:id", documentHandler.Delete)
	docs.POST("/:id/transitions", documentHandler.Transition)
	docs.GET("/:id/history", documentHandler.History)

	api.GET("/bapb/:id/attachments", attachmentHandler.ListFor(document.TypeBAPB))
	api.POST("/bapb/:id/attachments", attachmentHandler.UploadFor(document.TypeBAPB))
	api.GET("/bapp/:id/attachments", attachmentHandler.ListFor(document.TypeBAPP))
	api.POST("/bapp/:id/attachments", attachmentHandler.UploadFor(document.TypeBAPP))
	api.DELETE("/attachments/:id", attachmentHandler.Delete)
	api.GET("/attachments/:id/download", attachmentHandler.Download)

	notifs := api.Group("/notifications")
	notifs.GET("", notificationHandler.List)
	notifs.GET("/unread-count", notificationHandler.UnreadCount)
	notifs.GET("/stream", app.stream.Stream)
	notifs.PATCH("/read-all", notificationHandler.MarkAllRead)
	notifs.PATCH("/:id/read", notificationHandler.MarkRead)
	notifs.GET("/preferences", notificationHandler.GetPreferences)
	notifs.PUT("/preferences", notificationHandler.UpdatePreferences)

	app.router = r
	return app
}

// do sends a JSON request as user; a nil user sends no identity
func (a *testApp) do(t *testing.T, method, path string, body any, user *identity.User) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	asUser(req, user)

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func asUser(req *http.Request, user *identity.User) {
	if user == nil {
		return
	}
	req.Header.Set(middleware.DevUserIDHeader, user.ID.String())
	req.Header.Set(middleware.DevUserRoleHeader, string(user.Role))
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func requireErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	env := decode[json.RawMessage](t, w)
	require.False(t, env.Success)
	require.NotNil(t, env.Error)
	require.Equal(t, code, env.Error.Code)
}

// createDocument creates a draft with two line items as the vendor
func (a *testApp) createDocument(t *testing.T, docType document.Type) appdocument.DocumentResponse {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/documents", map[string]any{
		"documentType": string(docType),
		"title":        "Penerimaan material gudang A",
		"lineItems": []map[string]any{
			{"name": "Semen 50kg", "quantity": "20", "unit": "sak", "unitPrice": "65000"},
			{"name": "Besi beton 10mm", "quantity": "12.5", "unit": "batang", "unitPrice": "92000"},
		},
	}, a.vendor)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[appdocument.DocumentResponse](t, w).Data
}

// transition posts a status change and returns the recorder
func (a *testApp) transition(t *testing.T, id string, user *identity.User, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	return a.do(t, http.MethodPost, "/api/v1/documents/"+id+"/transitions", body, user)
}

// checkAll builds an inspection payload accepting every line item
func checkAll(doc appdocument.DocumentResponse) []map[string]any {
	items := make([]map[string]any, len(doc.LineItems))
	for i, li := range doc.LineItems {
		items[i] = map[string]any{"lineItemId": li.ID.String(), "checked": true, "note": "sesuai"}
	}
	return items
}
