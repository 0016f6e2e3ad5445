package attachment

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/bapx/backend/internal/domain/document"
	"github.com/bapx/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Attachment is supporting evidence bound to exactly one document.
// There is no operation that moves it to another document.
type Attachment struct {
	shared.BaseEntity
	DocumentID       uuid.UUID
	DocumentType     document.Type
	OriginalFilename string
	SizeBytes        int64
	MimeType         string
	Description      string
	StorageKey       string
	UploadedBy       uuid.UUID
}

// NewAttachment creates the metadata record for an uploaded file. The
// original filename and MIME type are stored exactly as received.
func NewAttachment(doc *document.Document, filename string, size int64, mimeType, description string, uploadedBy uuid.UUID) (*Attachment, error) {
	if doc == nil || doc.ID == uuid.Nil {
		return nil, shared.NewValidationError("attachment requires a document")
	}
	if strings.TrimSpace(filename) == "" {
		return nil, shared.NewValidationError("filename cannot be empty")
	}
	if len(filename) > 255 {
		return nil, shared.NewValidationError("filename cannot exceed 255 characters")
	}
	if size <= 0 {
		return nil, shared.NewValidationError("file %q is empty", filename)
	}
	if len(description) > 500 {
		return nil, shared.NewValidationError("description cannot exceed 500 characters")
	}

	a := &Attachment{
		BaseEntity:       shared.NewBaseEntity(),
		DocumentID:       doc.ID,
		DocumentType:     doc.Type,
		OriginalFilename: filename,
		SizeBytes:        size,
		MimeType:         mimeType,
		Description:      strings.TrimSpace(description),
		UploadedBy:       uploadedBy,
	}
	a.StorageKey = StorageKey(doc.Type, doc.ID, a.ID, filename)
	return a, nil
}

// UploadedAt returns when the file was stored
func (a *Attachment) UploadedAt() time.Time {
	return a.CreatedAt
}

// StorageKey builds the object key for an attachment. The key never
// contains the raw filename, only its lower-cased extension.
func StorageKey(t document.Type, documentID, attachmentID uuid.UUID, filename string) string {
	return fmt.Sprintf("documents/%s/%s/%s%s",
		strings.ToLower(string(t)), documentID, attachmentID, Extension(filename))
}

// Extension returns the lower-cased extension of filename including the dot
func Extension(filename string) string {
	return strings.ToLower(filepath.Ext(filepath.Base(filename)))
}
