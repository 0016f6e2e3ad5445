package persistence

import (
	"context"
	"errors"

	"github.com/bapx/backend/internal/domain/attachment"
	"github.com/bapx/backend/internal/domain/shared"
	"github.com/bapx/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAttachmentRepository implements attachment.Repository using GORM
type GormAttachmentRepository struct {
	db *gorm.DB
}

// NewGormAttachmentRepository creates a new GormAttachmentRepository
func NewGormAttachmentRepository(db *gorm.DB) *GormAttachmentRepository {
	return &GormAttachmentRepository{db: db}
}

// Create inserts a new attachment row
func (r *GormAttachmentRepository) Create(ctx context.Context, a *attachment.Attachment) error {
	return storageErr("create attachment", r.db.WithContext(ctx).Create(models.AttachmentModelFromDomain(a)).Error)
}

// FindByID finds an attachment by ID
func (r *GormAttachmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*attachment.Attachment, error) {
	var model models.AttachmentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("attachment", id)
		}
		return nil, storageErr("load attachment", err)
	}
	return model.ToDomain(), nil
}

// FindByDocument returns the attachments of a document, oldest first
func (r *GormAttachmentRepository) FindByDocument(ctx context.Context, documentID uuid.UUID) ([]*attachment.Attachment, error) {
	var rows []models.AttachmentModel
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, storageErr("list attachments", err)
	}
	return attachmentsToDomain(rows), nil
}

// Delete removes an attachment row
func (r *GormAttachmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.AttachmentModel{}, "id = ?", id)
	if result.Error != nil {
		return storageErr("delete attachment", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("attachment", id)
	}
	return nil
}

func attachmentsToDomain(rows []models.AttachmentModel) []*attachment.Attachment {
	out := make([]*attachment.Attachment, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}
