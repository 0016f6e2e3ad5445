package models

import (
	"github.com/bapx/backend/internal/domain/identity"
)

// UserModel is the persistence model for the User domain entity.
type UserModel struct {
	AggregateModel
	Username     string        `gorm:"type:varchar(100);not null;uniqueIndex"`
	Name         string        `gorm:"type:varchar(200)"`
	Email        string        `gorm:"type:varchar(200)"`
	Role         identity.Role `gorm:"type:varchar(20);not null;index"`
	PasswordHash string        `gorm:"type:varchar(255);not null"`
	Active       bool          `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User entity.
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		BaseAggregateRoot: m.Aggregate(),
		Username:          m.Username,
		Name:              m.Name,
		Email:             m.Email,
		Role:              m.Role,
		PasswordHash:      m.PasswordHash,
		Active:            m.Active,
	}
}

// FromDomain populates the persistence model from a domain User entity.
func (m *UserModel) FromDomain(u *identity.User) {
	m.SetAggregate(u.BaseAggregateRoot)
	m.Username = u.Username
	m.Name = u.Name
	m.Email = u.Email
	m.Role = u.Role
	m.PasswordHash = u.PasswordHash
	m.Active = u.Active
}

// UserModelFromDomain creates a new persistence model from a domain User entity.
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{}
	m.FromDomain(u)
	return m
}
