package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bapx/backend/internal/domain/notification"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultUnreadKeyPrefix = "notification:unread:"

	// generationTTL outlives any count TTL by far; an expired generation
	// restarts at zero, which only turns in-flight Sets into no-ops.
	generationTTL = 24 * time.Hour
)

// errGenerationMoved aborts a Set whose count predates an invalidation
var errGenerationMoved = errors.New("unread count generation moved")

// RedisUnreadCountCache implements notification.UnreadCountCache using Redis
type RedisUnreadCountCache struct {
	client    redis.UniversalClient
	keyPrefix string
	logger    *zap.Logger
}

// RedisUnreadCountCacheOption is a functional option for configuring the cache
type RedisUnreadCountCacheOption func(*RedisUnreadCountCache)

// WithUnreadKeyPrefix sets the key prefix
func WithUnreadKeyPrefix(prefix string) RedisUnreadCountCacheOption {
	return func(c *RedisUnreadCountCache) {
		if prefix != "" {
			c.keyPrefix = prefix
		}
	}
}

// WithUnreadCacheLogger sets the logger for the cache
func WithUnreadCacheLogger(logger *zap.Logger) RedisUnreadCountCacheOption {
	return func(c *RedisUnreadCountCache) {
		c.logger = logger
	}
}

// NewRedisUnreadCountCache creates a cache on a shared client.
// The caller retains ownership of the client.
func NewRedisUnreadCountCache(client redis.UniversalClient, opts ...RedisUnreadCountCacheOption) *RedisUnreadCountCache {
	c := &RedisUnreadCountCache{
		client:    client,
		keyPrefix: defaultUnreadKeyPrefix,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// key and genKey share a hash tag so both land in one cluster slot
func (c *RedisUnreadCountCache) key(userID uuid.UUID) string {
	return c.keyPrefix + "{" + userID.String() + "}"
}

func (c *RedisUnreadCountCache) genKey(userID uuid.UUID) string {
	return c.key(userID) + ":gen"
}

// Get returns the cached count and generation of a user in one MGET
func (c *RedisUnreadCountCache) Get(ctx context.Context, userID uuid.UUID) (int64, int64, bool, error) {
	vals, err := c.client.MGet(ctx, c.key(userID), c.genKey(userID)).Result()
	if err != nil {
		return 0, 0, false, fmt.Errorf("failed to read unread count: %w", err)
	}
	gen, err := parseCounter(vals[1])
	if err != nil {
		return 0, 0, false, fmt.Errorf("failed to read unread count generation: %w", err)
	}
	if vals[0] == nil {
		return 0, gen, false, nil
	}
	count, err := parseCounter(vals[0])
	if err != nil {
		return 0, 0, false, fmt.Errorf("failed to read unread count: %w", err)
	}
	return count, gen, true, nil
}

// Set stores a count with the specified TTL. The write is made under WATCH
// on the generation key and is skipped when the generation differs from gen
// or changes before EXEC.
func (c *RedisUnreadCountCache) Set(ctx context.Context, userID uuid.UUID, count, gen int64, ttl time.Duration) error {
	genKey := c.genKey(userID)
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errGenerationMoved
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key(userID), count, ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, errGenerationMoved), errors.Is(err, redis.TxFailedErr):
		c.logger.Debug("skipped stale unread count", zap.String("user_id", userID.String()))
		return nil
	default:
		return fmt.Errorf("failed to store unread count: %w", err)
	}
}

// Invalidate advances the generations and drops the counts of the given
// users in one pipeline
func (c *RedisUnreadCountCache) Invalidate(ctx context.Context, userIDs ...uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range userIDs {
			pipe.Incr(ctx, c.genKey(id))
			pipe.Expire(ctx, c.genKey(id), generationTTL)
			pipe.Del(ctx, c.key(id))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate unread counts: %w", err)
	}
	c.logger.Debug("invalidated unread counts", zap.Int("users", len(userIDs)))
	return nil
}

func parseCounter(v any) (int64, error) {
	switch v := v.(type) {
	case nil:
		return 0, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected value type %T", v)
	}
}

var _ notification.UnreadCountCache = (*RedisUnreadCountCache)(nil)
