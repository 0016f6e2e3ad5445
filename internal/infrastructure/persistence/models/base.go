package models

import (
	"time"

	"github.com/bapx/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel carries the key and timestamps shared by every table. Keys are
// minted by the domain, never by the database, and timestamps are stored
// in UTC.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func stampedAt(id uuid.UUID, at time.Time) BaseModel {
	at = at.UTC()
	return BaseModel{ID: id, CreatedAt: at, UpdatedAt: at}
}

// Entity returns the domain view of the row identity
func (m *BaseModel) Entity() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

// SetEntity copies the domain identity onto the row
func (m *BaseModel) SetEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt.UTC()
	m.UpdatedAt = e.UpdatedAt.UTC()
}

// AggregateModel adds the version column that guarded writes compare
// against. Documents and users embed it.
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

// Aggregate returns the domain aggregate header. Pending domain events are
// never persisted, so the result always starts with none.
func (m *AggregateModel) Aggregate() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{
		BaseEntity: m.Entity(),
		Version:    m.Version,
	}
}

// SetAggregate copies the aggregate header onto the row
func (m *AggregateModel) SetAggregate(a shared.BaseAggregateRoot) {
	m.SetEntity(a.BaseEntity)
	m.Version = a.Version
}
