package models

import (
	"time"

	"github.com/bapx/backend/internal/domain/document"
	"github.com/bapx/backend/internal/domain/identity"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentModel is the persistence model for the Document aggregate root.
type DocumentModel struct {
	AggregateModel
	DocumentType document.Type          `gorm:"column:document_type;type:varchar(10);not null;index"`
	Number       string                 `gorm:"column:document_number;type:varchar(30);not null;uniqueIndex"`
	Title        string                 `gorm:"type:varchar(200);not null"`
	Description  string                 `gorm:"type:text"`
	Status       document.Status        `gorm:"type:varchar(30);not null;index"`
	OwnerID      uuid.UUID              `gorm:"type:uuid;not null;index"`
	LineItems    []DocumentLineItemModel `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (DocumentModel) TableName() string {
	return "documents"
}

// ToDomain converts the persistence model to a domain Document.
// ReviewNotes must be populated from the transition log by the repository.
func (m *DocumentModel) ToDomain() *document.Document {
	items := make([]document.LineItem, len(m.LineItems))
	for i := range m.LineItems {
		items[i] = m.LineItems[i].ToDomain()
	}
	return &document.Document{
		BaseAggregateRoot: m.Aggregate(),
		Type:              m.DocumentType,
		Number:            m.Number,
		Title:             m.Title,
		Description:       m.Description,
		Status:            m.Status,
		OwnerID:           m.OwnerID,
		LineItems:         items,
		ReviewNotes:       make(map[document.Status]string),
	}
}

// FromDomain populates the persistence model from a domain Document.
func (m *DocumentModel) FromDomain(d *document.Document) {
	m.SetAggregate(d.BaseAggregateRoot)
	m.DocumentType = d.Type
	m.Number = d.Number
	m.Title = d.Title
	m.Description = d.Description
	m.Status = d.Status
	m.OwnerID = d.OwnerID
	m.LineItems = LineItemModelsFromDomain(d.ID, d.LineItems, d.UpdatedAt)
}

// DocumentModelFromDomain creates a new persistence model from a domain Document.
func DocumentModelFromDomain(d *document.Document) *DocumentModel {
	m := &DocumentModel{}
	m.FromDomain(d)
	return m
}

// DocumentLineItemModel is the persistence model for a document line item.
type DocumentLineItemModel struct {
	BaseModel
	DocumentID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position       int             `gorm:"not null"`
	Name           string          `gorm:"type:varchar(200);not null"`
	Quantity       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Unit           string          `gorm:"type:varchar(20);not null"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	LineTotal      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Checked        bool            `gorm:"not null"`
	InspectionNote string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (DocumentLineItemModel) TableName() string {
	return "document_line_items"
}

// ToDomain converts the persistence model to a domain LineItem.
func (m *DocumentLineItemModel) ToDomain() document.LineItem {
	return document.LineItem{
		ID:             m.ID,
		Position:       m.Position,
		Name:           m.Name,
		Quantity:       m.Quantity,
		Unit:           m.Unit,
		UnitPrice:      m.UnitPrice,
		LineTotal:      m.LineTotal,
		Checked:        m.Checked,
		InspectionNote: m.InspectionNote,
	}
}

// LineItemModelsFromDomain converts domain line items to persistence models.
func LineItemModelsFromDomain(documentID uuid.UUID, items []document.LineItem, at time.Time) []DocumentLineItemModel {
	out := make([]DocumentLineItemModel, len(items))
	for i, it := range items {
		out[i] = DocumentLineItemModel{
			BaseModel:      stampedAt(it.ID, at),
			DocumentID:     documentID,
			Position:       it.Position,
			Name:           it.Name,
			Quantity:       it.Quantity,
			Unit:           it.Unit,
			UnitPrice:      it.UnitPrice,
			LineTotal:      it.LineTotal,
			Checked:        it.Checked,
			InspectionNote: it.InspectionNote,
		}
	}
	return out
}

// DocumentTransitionModel is the persistence model for an append-only
// transition record. The unique (document_id, to_state) index guarantees
// one review note per stage.
type DocumentTransitionModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key"`
	DocumentID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_document_transitions_stage"`
	FromState  document.Status `gorm:"type:varchar(30);not null"`
	ToState    document.Status `gorm:"type:varchar(30);not null;uniqueIndex:idx_document_transitions_stage"`
	ActorID    uuid.UUID       `gorm:"type:uuid;not null"`
	ActorRole  identity.Role   `gorm:"type:varchar(20);not null"`
	Note       string          `gorm:"type:text"`
	CreatedAt  time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (DocumentTransitionModel) TableName() string {
	return "document_transitions"
}

// ToDomain converts the persistence model to a domain Transition.
func (m *DocumentTransitionModel) ToDomain() document.Transition {
	return document.Transition{
		ID:         m.ID,
		DocumentID: m.DocumentID,
		From:       m.FromState,
		To:         m.ToState,
		ActorID:    m.ActorID,
		ActorRole:  m.ActorRole,
		Note:       m.Note,
		CreatedAt:  m.CreatedAt,
	}
}

// TransitionModelFromDomain creates a new persistence model from a domain Transition.
func TransitionModelFromDomain(t *document.Transition) *DocumentTransitionModel {
	return &DocumentTransitionModel{
		ID:         t.ID,
		DocumentID: t.DocumentID,
		FromState:  t.From,
		ToState:    t.To,
		ActorID:    t.ActorID,
		ActorRole:  t.ActorRole,
		Note:       t.Note,
		CreatedAt:  t.CreatedAt,
	}
}
