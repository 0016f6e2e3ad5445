package document

import (
	"context"

	"github.com/bapx/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ListFilter narrows a document listing
type ListFilter struct {
	shared.Filter
	Type     *Type
	Statuses []Status

	// Visibility. OwnerID limits results to one author; ExcludeDraft hides
	// drafts. A vendor listing sets OwnerID, a reviewer listing sets
	// ExcludeDraft.
	OwnerID      *uuid.UUID
	ExcludeDraft bool
}

// StatusCount is the number of documents of one type in one state
type StatusCount struct {
	Type   Type
	Status Status
	Count  int64
}

// Repository defines the interface for document persistence
type Repository interface {
	// FindByID loads a document with its line items and review notes
	FindByID(ctx context.Context, id uuid.UUID) (*Document, error)

	// FindAll returns a page of documents and the total matching count
	FindAll(ctx context.Context, filter ListFilter) ([]*Document, int64, error)

	// Create inserts a new draft with its line items. A number already in
	// use fails with AlreadyExists.
	Create(ctx context.Context, d *Document) error

	// UpdateDraft replaces title, description and line items of a draft.
	// Fails with InvalidTransition if the stored document is no longer a
	// draft at the expected version.
	UpdateDraft(ctx context.Context, d *Document, expectedVersion int) error

	// Delete removes d while it is still a draft at d.Version, with its
	// line items, transition log and attachment rows, in one transaction.
	// It returns the storage keys of the removed attachments. A document
	// that has left draft fails with Forbidden; any other change since d
	// was loaded fails with InvalidTransition.
	Delete(ctx context.Context, d *Document) ([]string, error)

	// SaveTransition atomically compare-and-sets status and version,
	// persists inspection verdicts and appends the transition record.
	// When the stored status or version no longer matches it returns an
	// InvalidTransition error naming the actual status.
	SaveTransition(ctx context.Context, d *Document, t *Transition) error

	// FindTransitions returns the transition log oldest first
	FindTransitions(ctx context.Context, documentID uuid.UUID) ([]Transition, error)

	// CountByStatus groups documents matching filter by type and status
	CountByStatus(ctx context.Context, filter ListFilter) ([]StatusCount, error)

	// GenerateNumber returns the next number for type in the current year.
	// Two concurrent callers may receive the same number; Create settles it.
	GenerateNumber(ctx context.Context, t Type) (string, error)
}
