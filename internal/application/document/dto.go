package document

import (
	"time"

	"github.com/bapx/backend/internal/domain/document"
	"github.com/bapx/backend/internal/domain/identity"
	"github.com/bapx/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

// LineItemRequest represents a line item in create and update requests
type LineItemRequest struct {
	Name      string          `json:"name" binding:"required,max=200"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	Unit      string          `json:"unit" binding:"required,max=50"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// CreateDocumentRequest represents a request to create a draft
type CreateDocumentRequest struct {
	DocumentType string            `json:"documentType" binding:"required,document_type"`
	Title        string            `json:"title" binding:"required,max=255"`
	Description  string            `json:"description" binding:"max=2000"`
	LineItems    []LineItemRequest `json:"lineItems" binding:"omitempty,dive"`
}

// UpdateDocumentRequest represents a request to replace the content of a draft
type UpdateDocumentRequest struct {
	Title       string            `json:"title" binding:"required,max=255"`
	Description string            `json:"description" binding:"max=2000"`
	LineItems   []LineItemRequest `json:"lineItems" binding:"omitempty,dive"`
}

func toFields(title, description string, items []LineItemRequest) document.Fields {
	inputs := make([]document.LineItemInput, len(items))
	for i, it := range items {
		inputs[i] = document.LineItemInput{
			Name:      it.Name,
			Quantity:  it.Quantity,
			Unit:      it.Unit,
			UnitPrice: it.UnitPrice,
		}
	}
	return document.Fields{Title: title, Description: description, LineItems: inputs}
}

// InspectedItemRequest is the reviewer's verdict on one line item
type InspectedItemRequest struct {
	LineItemID uuid.UUID `json:"lineItemId" binding:"required"`
	Checked    bool      `json:"checked"`
	Note       string    `json:"note" binding:"max=500"`
}

// TransitionRequest asks to move a document to TargetStatus
type TransitionRequest struct {
	TargetStatus string                 `json:"targetStatus" binding:"required"`
	Note         string                 `json:"note" binding:"max=2000"`
	Reason       string                 `json:"reason" binding:"max=2000"`
	Items        []InspectedItemRequest `json:"items" binding:"omitempty,dive"`
}

func (r TransitionRequest) payload() document.Payload {
	items := make([]document.InspectedItem, len(r.Items))
	for i, it := range r.Items {
		items[i] = document.InspectedItem{LineItemID: it.LineItemID, Checked: it.Checked, Note: it.Note}
	}
	return document.Payload{Note: r.Note, Reason: r.Reason, Items: items}
}

// ListQuery narrows a document listing
type ListQuery struct {
	DocumentType string
	Statuses     []string
	Search       string
	Page         int
	Limit        int
	OrderBy      string
	OrderDir     string
}

// LineItemResponse represents a line item in API responses
type LineItemResponse struct {
	ID             uuid.UUID        `json:"id"`
	Name           string           `json:"name"`
	Quantity       decimal.Decimal  `json:"quantity"`
	Unit           string           `json:"unit"`
	UnitPrice      *decimal.Decimal `json:"unitPrice,omitempty"`
	LineTotal      *decimal.Decimal `json:"lineTotal,omitempty"`
	Checked        bool             `json:"checked"`
	InspectionNote string           `json:"inspectionNote,omitempty"`
}

// DocumentResponse represents a document in API responses
type DocumentResponse struct {
	ID                   uuid.UUID                  `json:"id"`
	DocumentType         document.Type              `json:"documentType"`
	DocumentNumber       string                     `json:"documentNumber"`
	Title                string                     `json:"title"`
	Description          string                     `json:"description,omitempty"`
	Status               document.Status            `json:"status"`
	StatusLabel          string                     `json:"statusLabel"`
	Category             document.Category          `json:"category"`
	OwnerID              uuid.UUID                  `json:"ownerId"`
	Version              int                        `json:"version"`
	LineItems            []LineItemResponse         `json:"lineItems"`
	TotalAmount          *decimal.Decimal           `json:"totalAmount,omitempty"`
	ReviewNotes          map[document.Status]string `json:"reviewNotes,omitempty"`
	AvailableTransitions []document.Status          `json:"availableTransitions"`
	CreatedAt            time.Time                  `json:"createdAt"`
	UpdatedAt            time.Time                  `json:"updatedAt"`
}

// ToDocumentResponse converts a document to a response for actor in lang
func ToDocumentResponse(d *document.Document, actor identity.Actor, lang language.Tag) DocumentResponse {
	p := document.Project(d, lang)
	resp := DocumentResponse{
		ID:                   d.ID,
		DocumentType:         d.Type,
		DocumentNumber:       d.Number,
		Title:                d.Title,
		Description:          d.Description,
		Status:               d.Status,
		StatusLabel:          p.Label,
		Category:             p.Category,
		OwnerID:              d.OwnerID,
		Version:              d.Version,
		LineItems:            make([]LineItemResponse, len(d.LineItems)),
		ReviewNotes:          d.ReviewNotes,
		AvailableTransitions: []document.Status{},
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}
	for i, li := range d.LineItems {
		item := LineItemResponse{
			ID:             li.ID,
			Name:           li.Name,
			Quantity:       li.Quantity,
			Unit:           li.Unit,
			Checked:        li.Checked,
			InspectionNote: li.InspectionNote,
		}
		if d.Type == document.TypeBAPP {
			price, total := li.UnitPrice, li.LineTotal
			item.UnitPrice, item.LineTotal = &price, &total
		}
		resp.LineItems[i] = item
	}
	if d.Type == document.TypeBAPP {
		total := document.TotalAmount(d.LineItems)
		resp.TotalAmount = &total
	}
	for _, e := range document.AvailableEdges(d, actor) {
		resp.AvailableTransitions = append(resp.AvailableTransitions, e.To)
	}
	return resp
}

// DocumentListResponse is a page of documents
type DocumentListResponse = shared.Paginated[DocumentResponse]

// TransitionResult is the outcome of an accepted transition. Degraded is
// set when the document moved but recipients could not be notified.
type TransitionResult struct {
	Document DocumentResponse `json:"document"`
	Notified int              `json:"notified"`
	Degraded bool             `json:"degraded"`
	Warnings []string         `json:"warnings,omitempty"`
}

// HistoryEntry is one record of the transition log
type HistoryEntry struct {
	ID         uuid.UUID       `json:"id"`
	FromStatus document.Status `json:"fromStatus"`
	ToStatus   document.Status `json:"toStatus"`
	ToLabel    string          `json:"toLabel"`
	ActorID    uuid.UUID       `json:"actorId"`
	ActorRole  identity.Role   `json:"actorRole"`
	Note       string          `json:"note,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// SummaryResponse holds dashboard counts, overall and per document type
type SummaryResponse struct {
	document.Counts
	ByType map[document.Type]document.Counts `json:"byType"`
}
