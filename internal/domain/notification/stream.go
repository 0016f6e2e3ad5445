package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UnreadCountCache is a read-through cache in front of Repository.CountUnread.
//
// Keys follow the pattern notification:unread:{user_id}. Every user also has
// a generation that Invalidate advances. A reader takes the generation from
// Get before counting and hands it back to Set, so a count taken before an
// invalidation is never stored after it.
type UnreadCountCache interface {
	// Get returns the cached count and the user's current generation.
	// ok is false on a miss; gen is valid either way.
	Get(ctx context.Context, userID uuid.UUID) (count, gen int64, ok bool, err error)

	// Set stores a count with the specified TTL unless the user's
	// generation has moved past gen, in which case it does nothing
	Set(ctx context.Context, userID uuid.UUID, count, gen int64, ttl time.Duration) error

	// Invalidate advances the generation of the given users and drops
	// their cached counts
	Invalidate(ctx context.Context, userIDs ...uuid.UUID) error
}

// StreamMessage is pushed to a user's live feed
type StreamMessage struct {
	RecipientID  uuid.UUID     `json:"recipient_id"`
	Notification *Notification `json:"notification,omitempty"`
	UnreadCount  *int64        `json:"unread_count,omitempty"`
	Timestamp    int64         `json:"timestamp"`
}

// Broadcaster fans new notifications out to live subscribers, possibly
// across process instances
type Broadcaster interface {
	// Publish delivers msg to the subscribers of msg.RecipientID
	Publish(ctx context.Context, msg StreamMessage) error

	// Subscribe opens a feed for one user. The returned cancel func must be
	// called to release it; the channel is closed afterwards.
	Subscribe(ctx context.Context, userID uuid.UUID) (<-chan StreamMessage, func(), error)

	// Close releases any resources held by the broadcaster
	Close() error
}
