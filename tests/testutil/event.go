package testutil

import (
	"context"
	"sync"

	"github.com/bapx/backend/internal/domain/document"
	"github.com/bapx/backend/internal/domain/identity"
	"github.com/bapx/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// EventRecorder is an event handler that keeps everything it is given.
// With no types it subscribes to whatever the bus hands it.
type EventRecorder struct {
	mu     sync.Mutex
	types  []string
	events []shared.DomainEvent
	err    error
}

func NewEventRecorder(eventTypes ...string) *EventRecorder {
	return &EventRecorder{types: eventTypes}
}

func (r *EventRecorder) EventTypes() []string {
	return r.types
}

func (r *EventRecorder) Handle(_ context.Context, event shared.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

// Events returns a snapshot of the recorded events
func (r *EventRecorder) Events() []shared.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]shared.DomainEvent(nil), r.events...)
}

func (r *EventRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// FailWith makes every later Handle call record the event and return err
func (r *EventRecorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Transitions returns the recorded pipeline moves as "from->to" strings
func (r *EventRecorder) Transitions() []string {
	var out []string
	for _, e := range r.Events() {
		if te, ok := e.(*document.DocumentTransitionedEvent); ok {
			out = append(out, string(te.From)+"->"+string(te.To))
		}
	}
	return out
}

// CreatedEvent is the event a fresh draft of docType raises
func CreatedEvent(docType document.Type) *document.DocumentCreatedEvent {
	return document.NewDocumentCreatedEvent(&document.Document{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Type:              docType,
		Number:            string(docType) + "-2026-0001",
		OwnerID:           uuid.New(),
	})
}

// TransitionedEvent is the event raised when actor moves a docType
// document from one status to another.
func TransitionedEvent(docType document.Type, actor identity.Actor, from, to document.Status) *document.DocumentTransitionedEvent {
	d := &document.Document{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Type:              docType,
		Number:            string(docType) + "-2026-0001",
		Status:            to,
		OwnerID:           uuid.New(),
	}
	return document.NewDocumentTransitionedEvent(d, &document.Transition{
		From:      from,
		To:        to,
		ActorID:   actor.UserID,
		ActorRole: actor.Role,
	})
}
