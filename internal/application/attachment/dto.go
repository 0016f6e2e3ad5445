package attachment

import (
	"io"
	"time"

	"github.com/bapx/backend/internal/domain/attachment"
	"github.com/bapx/backend/internal/domain/document"
	"github.com/google/uuid"
)

// FileUpload is one file of a multipart upload. Open is called at most
// once, from the goroutine that stores the file.
type FileUpload struct {
	Filename string
	Size     int64
	MimeType string
	Open     func() (io.ReadCloser, error)
}

// UploadRequest is a batch of files for one document
type UploadRequest struct {
	DocumentType document.Type
	DocumentID   uuid.UUID
	Description  string
	Files        []FileUpload
}

// AttachmentResponse represents an attachment in API responses
type AttachmentResponse struct {
	ID               uuid.UUID     `json:"id"`
	DocumentID       uuid.UUID     `json:"documentId"`
	DocumentType     document.Type `json:"documentType"`
	OriginalFilename string        `json:"originalFilename"`
	SizeBytes        int64         `json:"size"`
	MimeType         string        `json:"mimeType"`
	Description      string        `json:"description,omitempty"`
	UploadedBy       uuid.UUID     `json:"uploadedBy"`
	UploadedAt       time.Time     `json:"uploadedAt"`
}

// ToAttachmentResponse converts a domain Attachment to a response DTO
func ToAttachmentResponse(a *attachment.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:               a.ID,
		DocumentID:       a.DocumentID,
		DocumentType:     a.DocumentType,
		OriginalFilename: a.OriginalFilename,
		SizeBytes:        a.SizeBytes,
		MimeType:         a.MimeType,
		Description:      a.Description,
		UploadedBy:       a.UploadedBy,
		UploadedAt:       a.UploadedAt(),
	}
}

// ToAttachmentResponses converts a slice of attachments
func ToAttachmentResponses(items []*attachment.Attachment) []AttachmentResponse {
	out := make([]AttachmentResponse, len(items))
	for i, a := range items {
		out[i] = ToAttachmentResponse(a)
	}
	return out
}

// RejectedFile names a file that was not stored and why
type RejectedFile struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// UploadResult reports a partially successful batch upload
type UploadResult struct {
	Uploaded []AttachmentResponse `json:"uploaded"`
	Rejected []RejectedFile       `json:"rejected"`
}

// Download is an open attachment stream. The caller must close Body.
type Download struct {
	Body     io.ReadCloser
	Filename string
	MimeType string
	Size     int64
}
