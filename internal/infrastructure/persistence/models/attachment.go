package models

import (
	"github.com/bapx/backend/internal/domain/attachment"
	"github.com/bapx/backend/internal/domain/document"
	"github.com/google/uuid"
)

// AttachmentModel is the persistence model for the Attachment domain entity.
type AttachmentModel struct {
	BaseModel
	DocumentID       uuid.UUID     `gorm:"type:uuid;not null;index"`
	DocumentType     document.Type `gorm:"type:varchar(10);not null"`
	OriginalFilename string        `gorm:"column:original_filename;type:varchar(255);not null"`
	SizeBytes        int64         `gorm:"column:size_bytes;type:bigint;not null"`
	MimeType         string        `gorm:"column:mime_type;type:varchar(150);not null"`
	Description      string        `gorm:"type:varchar(500)"`
	StorageKey       string        `gorm:"column:storage_key;type:varchar(500);not null;uniqueIndex"`
	UploadedBy       uuid.UUID     `gorm:"column:uploaded_by;type:uuid;not null"`
}

// TableName returns the table name for GORM
func (AttachmentModel) TableName() string {
	return "document_attachments"
}

// ToDomain converts the persistence model to a domain Attachment.
func (m *AttachmentModel) ToDomain() *attachment.Attachment {
	return &attachment.Attachment{
		BaseEntity:       m.Entity(),
		DocumentID:       m.DocumentID,
		DocumentType:     m.DocumentType,
		OriginalFilename: m.OriginalFilename,
		SizeBytes:        m.SizeBytes,
		MimeType:         m.MimeType,
		Description:      m.Description,
		StorageKey:       m.StorageKey,
		UploadedBy:       m.UploadedBy,
	}
}

// FromDomain populates the persistence model from a domain Attachment.
func (m *AttachmentModel) FromDomain(a *attachment.Attachment) {
	m.SetEntity(a.BaseEntity)
	m.DocumentID = a.DocumentID
	m.DocumentType = a.DocumentType
	m.OriginalFilename = a.OriginalFilename
	m.SizeBytes = a.SizeBytes
	m.MimeType = a.MimeType
	m.Description = a.Description
	m.StorageKey = a.StorageKey
	m.UploadedBy = a.UploadedBy
}

// AttachmentModelFromDomain creates a new persistence model from a domain Attachment.
func AttachmentModelFromDomain(a *attachment.Attachment) *AttachmentModel {
	m := &AttachmentModel{}
	m.FromDomain(a)
	return m
}
