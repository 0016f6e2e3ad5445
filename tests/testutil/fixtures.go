package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/bapx/backend/internal/domain/document"
	"github.com/bapx/backend/internal/domain/identity"
	"github.com/bapx/backend/internal/domain/shared"
	"github.com/bapx/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestPassword is the password of every fixture user
const TestPassword = "rahasia123"

// NewActor returns a fresh actor with a random id
func NewActor(role identity.Role) identity.Actor {
	return identity.NewActor(uuid.New(), role)
}

var (
	hashOnce     sync.Once
	passwordHash string
)

// NewUser builds an active user with TestPassword. The hash uses the
// minimum bcrypt cost to keep suites fast.
func NewUser(t *testing.T, username string, role identity.Role) *identity.User {
	t.Helper()
	hashOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
		if err != nil {
			panic(err)
		}
		passwordHash = string(h)
	})
	return &identity.User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Username:          username,
		Name:              username,
		Role:              role,
		PasswordHash:      passwordHash,
		Active:            true,
	}
}

// SeedUser inserts a user row directly and returns the domain user
func SeedUser(t *testing.T, db *gorm.DB, username string, role identity.Role) *identity.User {
	t.Helper()
	u := NewUser(t, username, role)
	require.NoError(t, db.WithContext(context.Background()).Create(models.UserModelFromDomain(u)).Error)
	return u
}

// LineItems returns two valid line item inputs; prices are ignored for BAPB
func LineItems() []document.LineItemInput {
	return []document.LineItemInput{
		{Name: "Semen 50kg", Quantity: decimal.NewFromInt(20), Unit: "sak", UnitPrice: decimal.NewFromInt(65000)},
		{Name: "Besi beton 10mm", Quantity: decimal.RequireFromString("12.5"), Unit: "batang", UnitPrice: decimal.NewFromInt(92000)},
	}
}

// NewDocument builds a draft owned by ownerID
func NewDocument(t *testing.T, docType document.Type, number string, ownerID uuid.UUID) *document.Document {
	t.Helper()
	d, err := document.NewDocument(docType, number, ownerID, document.Fields{
		Title:       "Penerimaan material gudang A",
		Description: "Pengiriman tahap pertama",
		LineItems:   LineItems(),
	})
	require.NoError(t, err)
	d.ClearDomainEvents()
	return d
}

// AllChecked returns an inspection payload that accepts every line item
func AllChecked(d *document.Document) document.Payload {
	items := make([]document.InspectedItem, len(d.LineItems))
	for i, li := range d.LineItems {
		items[i] = document.InspectedItem{LineItemID: li.ID, Checked: true, Note: "sesuai"}
	}
	return document.Payload{Items: items}
}
