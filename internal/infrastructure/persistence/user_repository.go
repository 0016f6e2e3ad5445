package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/bapx/backend/internal/domain/identity"
	"github.com/bapx/backend/internal/domain/shared"
	"github.com/bapx/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormUserRepository implements identity.UserRepository using GORM
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *identity.User) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.UserModel{}).
		Where("LOWER(username) = ?", strings.ToLower(user.Username)).
		Count(&count).Error; err != nil {
		return storageErr("create user", err)
	}
	if count > 0 {
		return shared.NewDomainError(shared.CodeAlreadyExists, "username "+user.Username+" is taken")
	}
	return storageErr("create user", r.db.WithContext(ctx).Create(models.UserModelFromDomain(user)).Error)
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	var model models.UserModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("user", id)
		}
		return nil, storageErr("load user", err)
	}
	return model.ToDomain(), nil
}

// FindByUsername finds a user by username, case-insensitively
func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*identity.User, error) {
	var model models.UserModel
	if err := r.db.WithContext(ctx).
		Where("LOWER(username) = ?", strings.ToLower(strings.TrimSpace(username))).
		First(&model).Error; err != nil {
		return nil, storageErr("load user", err)
	}
	return model.ToDomain(), nil
}

// FindActiveByRole returns every active user holding role
func (r *GormUserRepository) FindActiveByRole(ctx context.Context, role identity.Role) ([]*identity.User, error) {
	var rows []models.UserModel
	if err := r.db.WithContext(ctx).
		Where("role = ? AND active = ?", role, true).
		Order("username ASC").
		Find(&rows).Error; err != nil {
		return nil, storageErr("list users by role", err)
	}
	users := make([]*identity.User, len(rows))
	for i := range rows {
		users[i] = rows[i].ToDomain()
	}
	return users, nil
}
