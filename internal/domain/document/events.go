package document

import (
	"github.com/bapx/backend/internal/domain/identity"
	"github.com/bapx/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant
const AggregateTypeDocument = "Document"

// Event type constants
const (
	EventTypeDocumentCreated      = "DocumentCreated"
	EventTypeDocumentTransitioned = "DocumentTransitioned"
	EventTypeDocumentDeleted      = "DocumentDeleted"
)

// DocumentCreatedEvent is raised when a vendor creates a draft
type DocumentCreatedEvent struct {
	shared.BaseDomainEvent
	DocumentType Type      `json:"document_type"`
	Number       string    `json:"number"`
	OwnerID      uuid.UUID `json:"owner_id"`
}

// NewDocumentCreatedEvent creates a new DocumentCreatedEvent
func NewDocumentCreatedEvent(d *Document) *DocumentCreatedEvent {
	return &DocumentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentCreated, AggregateTypeDocument, d.ID),
		DocumentType:    d.Type,
		Number:          d.Number,
		OwnerID:         d.OwnerID,
	}
}

// DocumentTransitionedEvent is raised when a pipeline edge is taken
type DocumentTransitionedEvent struct {
	shared.BaseDomainEvent
	DocumentType Type          `json:"document_type"`
	Number       string        `json:"number"`
	OwnerID      uuid.UUID     `json:"owner_id"`
	From         Status        `json:"from"`
	To           Status        `json:"to"`
	ActorID      uuid.UUID     `json:"actor_id"`
	ActorRole    identity.Role `json:"actor_role"`
}

// NewDocumentTransitionedEvent creates a new DocumentTransitionedEvent
func NewDocumentTransitionedEvent(d *Document, t *Transition) *DocumentTransitionedEvent {
	return &DocumentTransitionedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentTransitioned, AggregateTypeDocument, d.ID),
		DocumentType:    d.Type,
		Number:          d.Number,
		OwnerID:         d.OwnerID,
		From:            t.From,
		To:              t.To,
		ActorID:         t.ActorID,
		ActorRole:       t.ActorRole,
	}
}

// DocumentDeletedEvent is raised when a draft is deleted by its owner
type DocumentDeletedEvent struct {
	shared.BaseDomainEvent
	DocumentType Type      `json:"document_type"`
	Number       string    `json:"number"`
	DeletedBy    uuid.UUID `json:"deleted_by"`
}

// NewDocumentDeletedEvent creates a new DocumentDeletedEvent
func NewDocumentDeletedEvent(d *Document, by uuid.UUID) *DocumentDeletedEvent {
	return &DocumentDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentDeleted, AggregateTypeDocument, d.ID),
		DocumentType:    d.Type,
		Number:          d.Number,
		DeletedBy:       by,
	}
}
