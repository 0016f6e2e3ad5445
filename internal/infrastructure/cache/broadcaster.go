package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/bapx/backend/internal/domain/notification"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultSubscriberBuffer = 16

type subscriber struct {
	ch   chan notification.StreamMessage
	once sync.Once
}

// InMemoryBroadcaster fans messages out to subscribers of this process.
// A slow subscriber whose buffer is full misses messages instead of
// blocking the publisher.
type InMemoryBroadcaster struct {
	mu      sync.RWMutex
	subs    map[uuid.UUID]map[*subscriber]struct{}
	buffer  int
	logger  *zap.Logger
	closed  bool
	dropped atomic.Int64
}

// InMemoryBroadcasterOption is a functional option for configuring the broadcaster
type InMemoryBroadcasterOption func(*InMemoryBroadcaster)

// WithSubscriberBuffer sets the per-subscriber channel capacity
func WithSubscriberBuffer(n int) InMemoryBroadcasterOption {
	return func(b *InMemoryBroadcaster) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// WithBroadcasterLogger sets the logger for the broadcaster
func WithBroadcasterLogger(logger *zap.Logger) InMemoryBroadcasterOption {
	return func(b *InMemoryBroadcaster) {
		b.logger = logger
	}
}

// NewInMemoryBroadcaster creates a new in-process broadcaster
func NewInMemoryBroadcaster(opts ...InMemoryBroadcasterOption) *InMemoryBroadcaster {
	b := &InMemoryBroadcaster{
		subs:   make(map[uuid.UUID]map[*subscriber]struct{}),
		buffer: defaultSubscriberBuffer,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish delivers msg to every local subscriber of the recipient
func (b *InMemoryBroadcaster) Publish(_ context.Context, msg notification.StreamMessage) error {
	b.deliver(msg)
	return nil
}

func (b *InMemoryBroadcaster) deliver(msg notification.StreamMessage) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for s := range b.subs[msg.RecipientID] {
		select {
		case s.ch <- msg:
		default:
			b.dropped.Add(1)
			b.logger.Warn("live feed buffer full, message dropped",
				zap.String("recipient_id", msg.RecipientID.String()))
		}
	}
}

// Subscribe opens a feed for userID
func (b *InMemoryBroadcaster) Subscribe(_ context.Context, userID uuid.UUID) (<-chan notification.StreamMessage, func(), error) {
	s := &subscriber{ch: make(chan notification.StreamMessage, b.buffer)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(s.ch)
		return s.ch, func() {}, nil
	}
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[*subscriber]struct{})
	}
	b.subs[userID][s] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if set, ok := b.subs[userID]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(b.subs, userID)
			}
		}
		s.once.Do(func() { close(s.ch) })
	}
	return s.ch, cancel, nil
}

// Subscribers returns the number of open feeds of userID
func (b *InMemoryBroadcaster) Subscribers(userID uuid.UUID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[userID])
}

// Dropped returns the number of messages dropped on full buffers
func (b *InMemoryBroadcaster) Dropped() int64 {
	return b.dropped.Load()
}

// Close closes every open feed
func (b *InMemoryBroadcaster) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for userID, set := range b.subs {
		for s := range set {
			s.once.Do(func() { close(s.ch) })
		}
		delete(b.subs, userID)
	}
	return nil
}

var _ notification.Broadcaster = (*InMemoryBroadcaster)(nil)
