package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/bapx/backend/internal/domain/notification"
	"github.com/bapx/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

// NotificationCaches bundles the cache and fan-out used by the notification services
type NotificationCaches struct {
	Unread      notification.UnreadCountCache
	Broadcaster notification.Broadcaster
	// Client is nil when running in process
	Client *redis.Client
}

// Close stops the broadcaster and closes the Redis client
func (c *NotificationCaches) Close() error {
	err := c.Broadcaster.Close()
	if c.Client != nil {
		if cerr := c.Client.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Factory creates notification caches based on configuration
type Factory struct {
	redisConfig           config.RedisConfig
	notificationConfig    config.NotificationConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-process caches when Redis is unavailable.
// Default is true (allow fallback)
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(redisCfg config.RedisConfig, notificationCfg config.NotificationConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           redisCfg,
		notificationConfig:    notificationCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewRedisClient creates a client and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// CreateInMemory creates in-process caches.
// WARNING: other instances never see their invalidations or live messages.
func (f *Factory) CreateInMemory() *NotificationCaches {
	return &NotificationCaches{
		Unread: NewInMemoryUnreadCountCache(),
		Broadcaster: NewInMemoryBroadcaster(
			WithSubscriberBuffer(f.notificationConfig.StreamBufferSize),
			WithBroadcasterLogger(f.logger),
		),
	}
}

// CreateRedis creates Redis-backed caches and starts the Pub/Sub relay
func (f *Factory) CreateRedis(ctx context.Context) (*NotificationCaches, error) {
	client, err := NewRedisClient(ctx, f.redisConfig)
	if err != nil {
		return nil, err
	}

	broadcaster := NewRedisBroadcaster(client,
		WithBroadcastChannel(f.notificationConfig.BroadcastChannel),
		WithRedisBroadcasterLogger(f.logger),
		WithLocalBroadcaster(NewInMemoryBroadcaster(
			WithSubscriberBuffer(f.notificationConfig.StreamBufferSize),
			WithBroadcasterLogger(f.logger),
		)),
	)
	if err := broadcaster.Start(context.WithoutCancel(ctx)); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &NotificationCaches{
		Unread:      NewRedisUnreadCountCache(client, WithUnreadCacheLogger(f.logger)),
		Broadcaster: broadcaster,
		Client:      client,
	}, nil
}

// Create uses Redis when it is configured and reachable, falling back to
// in-process caches when AllowInMemoryFallback is true
func (f *Factory) Create(ctx context.Context) (*NotificationCaches, error) {
	if !f.redisConfig.Enabled() {
		f.logger.Info("Redis not configured, using in-process notification caches")
		return f.CreateInMemory(), nil
	}

	caches, err := f.CreateRedis(ctx)
	if err == nil {
		f.logger.Info("using Redis notification caches", zap.String("addr", f.redisConfig.Addr()))
		return caches, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for notification caches but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-process notification caches. "+
		"Live feeds will not reach users connected to other instances.",
		zap.Error(err),
	)
	return f.CreateInMemory(), nil
}
