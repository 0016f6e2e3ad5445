package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appattachment "github.com/bapx/backend/internal/application/attachment"
	appdocument "github.com/bapx/backend/internal/application/document"
	appidentity "github.com/bapx/backend/internal/application/identity"
	appnotification "github.com/bapx/backend/internal/application/notification"
	"github.com/bapx/backend/internal/domain/attachment"
	"github.com/bapx/backend/internal/domain/document"
	"github.com/bapx/backend/internal/domain/notification"
	"github.com/bapx/backend/internal/infrastructure/auth"
	"github.com/bapx/backend/internal/infrastructure/cache"
	"github.com/bapx/backend/internal/infrastructure/config"
	"github.com/bapx/backend/internal/infrastructure/event"
	"github.com/bapx/backend/internal/infrastructure/logger"
	"github.com/bapx/backend/internal/infrastructure/persistence"
	"github.com/bapx/backend/internal/infrastructure/storage"
	"github.com/bapx/backend/internal/infrastructure/telemetry"
	"github.com/bapx/backend/internal/interfaces/http/handler"
	"github.com/bapx/backend/internal/interfaces/http/middleware"
	"github.com/bapx/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// objectStore is the attachment storage plus its readiness probe
type objectStore interface {
	appattachment.ObjectStorage
	Ping(ctx context.Context) error
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}

	// Bootstrap logger, replaced once the OTLP log bridge is known
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// Telemetry providers. Disabled providers fall back to no-ops.
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogExportEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	if loggerProvider.IsEnabled() {
		log, err = logger.New(logCfg, loggerProvider.Core(logger.ParseLevel(cfg.Log.Level)))
		if err != nil {
			panic("Failed to initialize logger: " + err.Error())
		}
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting BAPB/BAPP approval backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Every document edge must have a recipient rule before serving traffic
	if err := notification.CheckRules(document.AllEdges()); err != nil {
		log.Fatal("Notification recipient rules are incomplete", zap.Error(err))
	}

	// Database
	db, err := persistence.NewDatabase(ctx, &cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	dbTracing.LogFullSQL = cfg.Telemetry.DBLogFullSQL
	dbTracing.SlowQueryThresh = cfg.Database.SlowThreshold
	dbTracing.DBName = cfg.Database.DBName
	if err := telemetry.RegisterDBTracing(db.DB, dbTracing, log); err != nil {
		log.Warn("Failed to register database tracing", zap.Error(err))
	}

	meter := meterProvider.Meter(cfg.Telemetry.ServiceName)
	if _, err := telemetry.RegisterDBPoolMetrics(meter, db.SQL()); err != nil {
		log.Warn("Failed to register database pool metrics", zap.Error(err))
	}
	approvalMetrics, err := telemetry.NewApprovalMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create approval metrics", zap.Error(err))
	}

	// Notification caches and live fan-out: Redis when configured, in process otherwise
	caches, err := cache.NewFactory(cfg.Redis, cfg.Notification, cache.WithLogger(log)).Create(ctx)
	if err != nil {
		log.Fatal("Failed to initialize notification caches", zap.Error(err))
	}
	defer func() {
		if err := caches.Close(); err != nil {
			log.Error("Error closing notification caches", zap.Error(err))
		}
	}()

	// Token revocation shares the Redis client when there is one
	var blacklist auth.TokenBlacklist
	if caches.Client != nil {
		blacklist = auth.NewRedisTokenBlacklist(caches.Client)
	} else {
		blacklist = auth.NewInMemoryTokenBlacklist()
	}

	// Attachment storage
	objects, err := newObjectStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize attachment storage", zap.Error(err))
	}

	// Repositories
	userRepo := persistence.NewGormUserRepository(db.DB)
	documentRepo := persistence.NewGormDocumentRepository(db.DB)
	notificationRepo := persistence.NewGormNotificationRepository(db.DB)
	preferenceRepo := persistence.NewGormPreferenceRepository(db.DB)
	attachmentRepo := persistence.NewGormAttachmentRepository(db.DB)

	// Application services
	policy, err := attachment.NewPolicy(cfg.Attachment.PolicyConfig())
	if err != nil {
		log.Fatal("Invalid attachment policy", zap.Error(err))
	}
	attachmentService := appattachment.NewService(
		attachmentRepo,
		documentRepo,
		objects,
		policy,
		appattachment.ServiceConfig{
			UploadConcurrency: cfg.Attachment.UploadConcurrency,
			MaxFilesPerUpload: cfg.Attachment.MaxFilesPerUpload,
		},
		log,
	)
	attachmentService.SetRecorder(approvalMetrics)

	dispatcher := appnotification.NewDispatcher(notificationRepo, preferenceRepo, userRepo, log,
		appnotification.WithDispatchCache(caches.Unread),
		appnotification.WithDispatchBroadcaster(caches.Broadcaster),
		appnotification.WithDispatchRecorder(approvalMetrics),
	)
	notificationService := appnotification.NewService(notificationRepo, preferenceRepo, log,
		appnotification.WithUnreadCache(caches.Unread, cfg.Notification.UnreadCacheTTL),
		appnotification.WithBroadcaster(caches.Broadcaster),
		appnotification.WithStreamRecorder(approvalMetrics),
	)
	documentService := appdocument.NewService(documentRepo, dispatcher, attachmentService, log)
	documentService.SetDispatchTimeout(cfg.Notification.DispatchTimeout)

	jwtService := auth.NewJWTService(cfg.JWT)
	authService := appidentity.NewAuthService(userRepo, jwtService, blacklist, log)

	// Event bus: document events feed the approval metrics
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(approvalMetrics)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()
	documentService.SetEventPublisher(eventBus)

	// HTTP handlers
	readiness := []handler.HealthCheck{
		{Name: "database", Check: db.Ping},
		{Name: "storage", Check: objects.Ping},
	}
	if caches.Client != nil {
		readiness = append(readiness, handler.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return caches.Client.Ping(ctx).Err()
		}})
	}
	streamHandler := handler.NewNotificationStreamHandler(notificationService,
		handler.WithStreamLogger(log),
		handler.WithStreamHeartbeat(cfg.Notification.StreamHeartbeat),
	)
	handlers := router.Handlers{
		Health:       handler.NewHealthHandler(cfg.App.Name, version, readiness...),
		Auth:         handler.NewAuthHandler(authService),
		Document:     handler.NewDocumentHandler(documentService),
		Attachment:   handler.NewAttachmentHandler(attachmentService),
		Notification: handler.NewNotificationHandler(notificationService),
		Stream:       streamHandler,
	}

	// Set Gin mode based on environment
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Global middleware, in order:
	// request id, access log, panic recovery, server span, security
	// headers, CORS, body limit, request metrics
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     tracerProvider.IsEnabled(),
	}))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "Content-Disposition", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(middleware.BodyLimitConfig{
		MaxBytes:          cfg.HTTP.MaxBodySize,
		MaxMultipartBytes: cfg.HTTP.MaxUploadSize,
	}))
	engine.Use(middleware.HTTPMetrics(meter, log))

	authConfig := middleware.DefaultAuthConfig(jwtService)
	authConfig.TokenBlacklist = blacklist
	authConfig.AllowDevHeaders = cfg.JWT.AllowDevHeaders
	authConfig.Logger = log
	if cfg.JWT.AllowDevHeaders {
		log.Warn("Development identity headers are accepted; never enable this in production")
	}

	apiConfig := router.APIConfig{
		Authenticate: middleware.Authenticate(authConfig),
		After:        []gin.HandlerFunc{middleware.SpanEnricher()},
	}

	serverCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()
	if cfg.HTTP.LoginRateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.HTTP.LoginRateLimit, cfg.HTTP.LoginRateWindow)
		limiter.StartCleanup(serverCtx)
		apiConfig.LoginLimiter = limiter
		log.Info("Login rate limiting enabled",
			zap.Int("requests", cfg.HTTP.LoginRateLimit),
			zap.Duration("window", cfg.HTTP.LoginRateWindow),
		)
	}

	routes := router.Mount(engine, handlers, apiConfig)
	log.Info("API routes mounted", zap.Int("count", len(routes)))
	log.Debug("API route table", zap.Strings("routes", routes))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Live streams never finish on their own; end them before draining
	streamHandler.Stop()
	stopBackground()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	shutdownTelemetry(shutdownCtx, log, tracerProvider, meterProvider, loggerProvider)
	log.Info("Server exited gracefully")
}

// newObjectStore returns S3 storage when credentials are configured and an
// in-process store otherwise
func newObjectStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (objectStore, error) {
	if cfg.Storage.AccessKeyID == "" {
		if cfg.App.IsProduction() {
			return nil, errors.New("storage credentials are required in production")
		}
		log.Warn("Object storage not configured, attachments are kept in memory")
		return storage.NewMemoryObjectStorage(), nil
	}

	s3Store, err := storage.NewS3ObjectStorage(ctx, &cfg.Storage, storage.WithLogger(log))
	if err != nil {
		return nil, err
	}
	if cfg.Storage.CreateBucket {
		if err := s3Store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
	}
	log.Info("Using S3 object storage",
		zap.String("bucket", s3Store.Bucket()),
		zap.String("endpoint", cfg.Storage.Endpoint),
	)
	return s3Store, nil
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

func shutdownTelemetry(ctx context.Context, log *zap.Logger, providers ...shutdowner) {
	for _, p := range providers {
		if err := p.Shutdown(ctx); err != nil {
			log.Error("Error shutting down telemetry provider", zap.Error(err))
		}
	}
}
