package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/bapx/backend/internal/domain/notification"
	"github.com/bapx/backend/internal/domain/shared"
	"github.com/bapx/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormNotificationRepository implements notification.Repository using GORM
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository creates a new GormNotificationRepository
func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

// CreateBatch inserts all notifications of one dispatch in a single statement
func (r *GormNotificationRepository) CreateBatch(ctx context.Context, notifications []*notification.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	rows := make([]*models.NotificationModel, len(notifications))
	for i, n := range notifications {
		rows[i] = models.NotificationModelFromDomain(n)
	}
	return storageErr("create notifications", r.db.WithContext(ctx).Create(&rows).Error)
}

// FindByID finds a notification by ID
func (r *GormNotificationRepository) FindByID(ctx context.Context, id uuid.UUID) (*notification.Notification, error) {
	var model models.NotificationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("notification", id)
		}
		return nil, storageErr("load notification", err)
	}
	return model.ToDomain(), nil
}

// FindByRecipient returns a page of a user's notifications, newest first
func (r *GormNotificationRepository) FindByRecipient(ctx context.Context, recipientID uuid.UUID, filter notification.ListFilter) ([]*notification.Notification, int64, error) {
	page := filter.Filter.Normalize()
	scope := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.NotificationModel{}).Where("recipient_id = ?", recipientID)
		if filter.UnreadOnly {
			q = q.Where("is_read = ?", false)
		}
		return q
	}

	var total int64
	if err := scope().Count(&total).Error; err != nil {
		return nil, 0, storageErr("count notifications", err)
	}

	var rows []models.NotificationModel
	if err := scope().
		Order(OrderClause(page.OrderBy, page.OrderDir, NotificationSortFields, "created_at")).
		Order("id DESC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, storageErr("list notifications", err)
	}

	out := make([]*notification.Notification, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, total, nil
}

// MarkRead sets is_read on one unread notification of the recipient.
// Returns false when nothing was updated.
func (r *GormNotificationRepository) MarkRead(ctx context.Context, id, recipientID uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.NotificationModel{}).
		Where("id = ? AND recipient_id = ? AND is_read = ?", id, recipientID, false).
		Updates(map[string]any{"is_read": true, "read_at": at, "updated_at": at})
	if result.Error != nil {
		return false, storageErr("mark notification read", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// MarkAllRead sets is_read on every unread notification of the recipient
// and returns the number of rows written
func (r *GormNotificationRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.NotificationModel{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Updates(map[string]any{"is_read": true, "read_at": at, "updated_at": at})
	if result.Error != nil {
		return 0, storageErr("mark all notifications read", result.Error)
	}
	return result.RowsAffected, nil
}

// CountUnread counts unread notifications of the recipient
func (r *GormNotificationRepository) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.NotificationModel{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error; err != nil {
		return 0, storageErr("count unread notifications", err)
	}
	return count, nil
}

// GormPreferenceRepository implements notification.PreferenceRepository using GORM
type GormPreferenceRepository struct {
	db *gorm.DB
}

// NewGormPreferenceRepository creates a new GormPreferenceRepository
func NewGormPreferenceRepository(db *gorm.DB) *GormPreferenceRepository {
	return &GormPreferenceRepository{db: db}
}

// FindByUser returns the stored preference or shared.ErrNotFound
func (r *GormPreferenceRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*notification.Preference, error) {
	var model models.NotificationPreferenceModel
	if err := r.db.WithContext(ctx).First(&model, "user_id = ?", userID).Error; err != nil {
		return nil, storageErr("load notification preference", err)
	}
	return model.ToDomain(), nil
}

// FindByUsers returns stored preferences keyed by user
func (r *GormPreferenceRepository) FindByUsers(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]*notification.Preference, error) {
	out := make(map[uuid.UUID]*notification.Preference, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []models.NotificationPreferenceModel
	if err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&rows).Error; err != nil {
		return nil, storageErr("load notification preferences", err)
	}
	for i := range rows {
		out[rows[i].UserID] = rows[i].ToDomain()
	}
	return out, nil
}

// Save inserts or updates a preference
func (r *GormPreferenceRepository) Save(ctx context.Context, p *notification.Preference) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"notify_on_submission",
			"notify_on_review",
			"notify_on_approval",
			"notify_on_rejection",
			"updated_at",
		}),
	}).Create(models.PreferenceModelFromDomain(p)).Error
	return storageErr("save notification preference", err)
}
