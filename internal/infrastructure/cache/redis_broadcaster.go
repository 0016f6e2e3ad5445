package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/bapx/backend/internal/domain/notification"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultBroadcastChannel = "bapx:notifications"
	defaultCloseTimeout     = 5 * time.Second
)

// RedisBroadcaster implements notification.Broadcaster over Redis Pub/Sub.
// Every instance publishes to one channel and relays what it receives to
// its local subscribers, so a user connected to any instance gets the feed.
type RedisBroadcaster struct {
	client  redis.UniversalClient
	channel string
	local   *InMemoryBroadcaster
	logger  *zap.Logger

	mu       sync.Mutex
	cancelFn context.CancelFunc
	doneCh   chan struct{}
	doneOnce sync.Once
	running  bool
}

// RedisBroadcasterOption is a functional option for configuring the broadcaster
type RedisBroadcasterOption func(*RedisBroadcaster)

// WithBroadcastChannel sets the Pub/Sub channel name
func WithBroadcastChannel(channel string) RedisBroadcasterOption {
	return func(b *RedisBroadcaster) {
		if channel != "" {
			b.channel = channel
		}
	}
}

// WithRedisBroadcasterLogger sets the logger for the broadcaster
func WithRedisBroadcasterLogger(logger *zap.Logger) RedisBroadcasterOption {
	return func(b *RedisBroadcaster) {
		b.logger = logger
	}
}

// WithLocalBroadcaster replaces the in-process fan-out
func WithLocalBroadcaster(local *InMemoryBroadcaster) RedisBroadcasterOption {
	return func(b *RedisBroadcaster) {
		b.local = local
	}
}

// NewRedisBroadcaster creates a broadcaster on a shared client.
// The caller retains ownership of the client. Start must be called before
// messages from other instances are relayed.
func NewRedisBroadcaster(client redis.UniversalClient, opts ...RedisBroadcasterOption) *RedisBroadcaster {
	b := &RedisBroadcaster{
		client:  client,
		channel: defaultBroadcastChannel,
		logger:  zap.NewNop(),
		doneCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.local == nil {
		b.local = NewInMemoryBroadcaster(WithBroadcasterLogger(b.logger))
	}
	return b
}

// Publish sends msg to every instance
func (b *RedisBroadcaster) Publish(ctx context.Context, msg notification.StreamMessage) error {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal stream message: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish stream message: %w", err)
	}
	return nil
}

// Subscribe opens a feed for userID on this instance
func (b *RedisBroadcaster) Subscribe(ctx context.Context, userID uuid.UUID) (<-chan notification.StreamMessage, func(), error) {
	return b.local.Subscribe(ctx, userID)
}

// Start subscribes to the channel and relays messages until ctx is done
// or Close is called. It returns once the subscription is confirmed.
func (b *RedisBroadcaster) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return fmt.Errorf("broadcaster already running")
	}
	subCtx, cancel := context.WithCancel(ctx)
	b.cancelFn = cancel
	b.running = true
	b.mu.Unlock()

	pubsub := b.client.Subscribe(subCtx, b.channel)
	if _, err := pubsub.Receive(subCtx); err != nil {
		_ = pubsub.Close()
		cancel()
		b.mu.Lock()
		b.running = false
		b.mu.Unlock()
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}

	b.logger.Info("subscribed to notification channel", zap.String("channel", b.channel))
	go b.relay(subCtx, pubsub)
	return nil
}

func (b *RedisBroadcaster) relay(ctx context.Context, pubsub *redis.PubSub) {
	defer func() {
		_ = pubsub.Close()
		b.mu.Lock()
		b.running = false
		b.mu.Unlock()
		b.doneOnce.Do(func() { close(b.doneCh) })
	}()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("notification channel subscription stopped")
			return
		case raw, ok := <-ch:
			if !ok {
				b.logger.Warn("notification channel closed")
				return
			}
			var msg notification.StreamMessage
			if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
				b.logger.Error("failed to unmarshal stream message",
					zap.String("payload", raw.Payload),
					zap.Error(err))
				continue
			}
			b.local.deliver(msg)
		}
	}
}

// Close stops the relay and closes every local feed
func (b *RedisBroadcaster) Close() error {
	b.mu.Lock()
	cancelFn := b.cancelFn
	b.mu.Unlock()

	if cancelFn != nil {
		cancelFn()
		select {
		case <-b.doneCh:
		case <-time.After(defaultCloseTimeout):
			b.logger.Warn("timeout waiting for notification relay to stop")
		}
	}
	return b.local.Close()
}

var _ notification.Broadcaster = (*RedisBroadcaster)(nil)
