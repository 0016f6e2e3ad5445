package attachment

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for attachment metadata persistence
type Repository interface {
	// Create inserts a new attachment row
	Create(ctx context.Context, a *Attachment) error

	// FindByID finds an attachment by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Attachment, error)

	// FindByDocument returns the attachments of a document, oldest first
	FindByDocument(ctx context.Context, documentID uuid.UUID) ([]*Attachment, error)

	// Delete removes an attachment row
	Delete(ctx context.Context, id uuid.UUID) error
}
