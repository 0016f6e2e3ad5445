package persistence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bapx/backend/internal/domain/document"
	"github.com/bapx/backend/internal/domain/shared"
	"github.com/bapx/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDocumentRepository implements document.Repository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// FindByID loads a document with its line items and review notes
func (r *GormDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	var model models.DocumentModel
	err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("document", id)
		}
		return nil, storageErr("load document", err)
	}

	d := model.ToDomain()
	log, err := r.FindTransitions(ctx, id)
	if err != nil {
		return nil, err
	}
	d.ReviewNotes = document.ReviewNotesFrom(log)
	return d, nil
}

// FindAll returns a page of documents and the total matching count.
// Review notes are not loaded for listings.
func (r *GormDocumentRepository) FindAll(ctx context.Context, filter document.ListFilter) ([]*document.Document, int64, error) {
	page := filter.Filter.Normalize()

	var total int64
	if err := r.listQuery(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, storageErr("count documents", err)
	}

	var rows []models.DocumentModel
	err := r.listQuery(ctx, filter).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order(OrderClause(page.OrderBy, page.OrderDir, DocumentSortFields, "created_at")).
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, storageErr("list documents", err)
	}

	docs := make([]*document.Document, len(rows))
	for i := range rows {
		docs[i] = rows[i].ToDomain()
	}
	return docs, total, nil
}

// listQuery applies the type, status, search and visibility conditions
func (r *GormDocumentRepository) listQuery(ctx context.Context, filter document.ListFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.DocumentModel{})
	if filter.Type != nil {
		query = query.Where("document_type = ?", *filter.Type)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.ExcludeDraft {
		query = query.Where("status <> ?", document.StatusDraft)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(document_number) LIKE ?", like, like)
	}
	return query
}

// Create inserts a new draft with its line items. A number already held by
// another document is reported as AlreadyExists so the caller can draw a
// new one.
func (r *GormDocumentRepository) Create(ctx context.Context, d *document.Document) error {
	model := models.DocumentModelFromDomain(d)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(model).Error
	})
	if isDuplicateKey(r.db, err) {
		return shared.NewDomainError(shared.CodeAlreadyExists, "document number "+d.Number+" is taken")
	}
	return storageErr("create document", err)
}

// UpdateDraft replaces title, description and line items of a draft,
// guarded by status and version
func (r *GormDocumentRepository) UpdateDraft(ctx context.Context, d *document.Document, expectedVersion int) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.DocumentModel{}).
			Where("id = ? AND status = ? AND version = ?", d.ID, document.StatusDraft, expectedVersion).
			Updates(map[string]any{
				"title":       d.Title,
				"description": d.Description,
				"version":     d.Version,
				"updated_at":  d.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return r.staleError(tx, d)
		}

		if err := tx.Where("document_id = ?", d.ID).Delete(&models.DocumentLineItemModel{}).Error; err != nil {
			return err
		}
		items := models.LineItemModelsFromDomain(d.ID, d.LineItems, d.UpdatedAt)
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
	return storageErr("update document", err)
}

// Delete removes a draft at d.Version together with its line items,
// transition log and attachment rows, and returns the storage keys of the
// removed attachments. Objects are left for the caller to remove once the
// transaction has committed.
func (r *GormDocumentRepository) Delete(ctx context.Context, d *document.Document) ([]string, error) {
	var keys []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.AttachmentModel{}).
			Where("document_id = ?", d.ID).
			Pluck("storage_key", &keys).Error; err != nil {
			return err
		}
		for _, child := range []any{&models.AttachmentModel{}, &models.DocumentLineItemModel{}, &models.DocumentTransitionModel{}} {
			if err := tx.Where("document_id = ?", d.ID).Delete(child).Error; err != nil {
				return err
			}
		}

		// A miss rolls the child deletes back.
		result := tx.Where("id = ? AND status = ? AND version = ?", d.ID, document.StatusDraft, d.Version).
			Delete(&models.DocumentModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return r.deleteConflict(tx, d)
		}
		return nil
	})
	if err != nil {
		return nil, storageErr("delete document", err)
	}
	return keys, nil
}

// deleteConflict explains why a guarded delete matched no row
func (r *GormDocumentRepository) deleteConflict(tx *gorm.DB, d *document.Document) error {
	var current models.DocumentModel
	err := tx.Select("status").First(&current, "id = ?", d.ID).Error
	if err == nil && current.Status != document.StatusDraft {
		return shared.NewForbiddenError("document %s is %s and can no longer be deleted", d.Number, current.Status)
	}
	return r.staleError(tx, d)
}

// SaveTransition compare-and-sets status and version, stores inspection
// verdicts and appends the transition record in one transaction
func (r *GormDocumentRepository) SaveTransition(ctx context.Context, d *document.Document, t *document.Transition) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.DocumentModel{}).
			Where("id = ? AND status = ? AND version = ?", d.ID, t.From, t.ExpectedVersion).
			Updates(map[string]any{
				"status":     t.To,
				"version":    d.Version,
				"updated_at": d.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return r.staleError(tx, d)
		}

		for _, item := range t.InspectedItems {
			if err := tx.Model(&models.DocumentLineItemModel{}).
				Where("id = ? AND document_id = ?", item.LineItemID, d.ID).
				Updates(map[string]any{
					"checked":         item.Checked,
					"inspection_note": strings.TrimSpace(item.Note),
					"updated_at":      d.UpdatedAt,
				}).Error; err != nil {
				return err
			}
		}

		return tx.Create(models.TransitionModelFromDomain(t)).Error
	})
	return storageErr("save transition", err)
}

// staleError re-reads the stored status after a failed compare-and-set
func (r *GormDocumentRepository) staleError(tx *gorm.DB, d *document.Document) error {
	var current models.DocumentModel
	err := tx.Select("status", "version").First(&current, "id = ?", d.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.NewNotFoundError("document", d.ID)
	}
	if err != nil {
		return err
	}
	return shared.NewInvalidTransitionError(
		"document %s was changed concurrently and is now %s (version %d); reload and retry",
		d.Number, current.Status, current.Version)
}

// FindTransitions returns the transition log oldest first
func (r *GormDocumentRepository) FindTransitions(ctx context.Context, documentID uuid.UUID) ([]document.Transition, error) {
	var rows []models.DocumentTransitionModel
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, storageErr("load transitions", err)
	}
	out := make([]document.Transition, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// CountByStatus groups documents matching filter by type and status
func (r *GormDocumentRepository) CountByStatus(ctx context.Context, filter document.ListFilter) ([]document.StatusCount, error) {
	var rows []struct {
		DocumentType string
		Status       string
		Count        int64
	}
	err := r.listQuery(ctx, filter).
		Select("document_type, status, COUNT(*) AS count").
		Group("document_type, status").
		Scan(&rows).Error
	if err != nil {
		return nil, storageErr("count documents by status", err)
	}

	out := make([]document.StatusCount, len(rows))
	for i, row := range rows {
		out[i] = document.StatusCount{
			Type:   document.Type(row.DocumentType),
			Status: document.Status(row.Status),
			Count:  row.Count,
		}
	}
	return out, nil
}

// GenerateNumber returns the number after the highest one issued for t in
// the current year. Format: BAPB-YYYY-NNNN (e.g., BAPB-2024-0001). The
// suffix widens past 9999, so numbers are ordered by length first.
func (r *GormDocumentRepository) GenerateNumber(ctx context.Context, t document.Type) (string, error) {
	prefix := fmt.Sprintf("%s-%d-", t, time.Now().Year())

	var last models.DocumentModel
	err := r.db.WithContext(ctx).
		Select("document_number").
		Where("document_number LIKE ?", prefix+"%").
		Order("LENGTH(document_number) DESC, document_number DESC").
		First(&last).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", storageErr("generate document number", err)
	}

	next := 1
	if err == nil {
		n, convErr := strconv.Atoi(strings.TrimPrefix(last.Number, prefix))
		if convErr != nil {
			return "", shared.NewStorageError("generate document number",
				fmt.Errorf("malformed document number %q: %w", last.Number, convErr))
		}
		next = n + 1
	}
	return fmt.Sprintf("%s%04d", prefix, next), nil
}
