package document

import (
	"fmt"
	"strings"
	"time"

	"github.com/bapx/backend/internal/domain/identity"
	"github.com/bapx/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Document is a BAPB or BAPP acceptance report.
// It is the aggregate root for line items and the transition log.
type Document struct {
	shared.BaseAggregateRoot
	Type        Type
	Number      string
	Title       string
	Description string
	Status      Status
	OwnerID     uuid.UUID
	LineItems   []LineItem

	// ReviewNotes maps a stage to the note supplied when it was entered.
	// Loaded from the transition log; one entry per stage.
	ReviewNotes map[Status]string
}

// Fields are the caller editable parts of a draft
type Fields struct {
	Title       string
	Description string
	LineItems   []LineItemInput
}

// NewDocument creates a draft document owned by ownerID
func NewDocument(t Type, number string, ownerID uuid.UUID, f Fields) (*Document, error) {
	if !t.IsValid() {
		return nil, shared.NewValidationError("unknown document type %q", t)
	}
	if strings.TrimSpace(number) == "" {
		return nil, shared.NewValidationError("document number cannot be empty")
	}
	if ownerID == uuid.Nil {
		return nil, shared.NewValidationError("owner cannot be empty")
	}

	d := &Document{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Type:              t,
		Number:            number,
		Status:            StatusDraft,
		OwnerID:           ownerID,
		ReviewNotes:       make(map[Status]string),
	}
	if err := d.setFields(f); err != nil {
		return nil, err
	}

	d.AddDomainEvent(NewDocumentCreatedEvent(d))
	return d, nil
}

func (d *Document) setFields(f Fields) error {
	title := strings.TrimSpace(f.Title)
	if title == "" {
		return shared.NewValidationError("title cannot be empty")
	}
	if len(title) > 200 {
		return shared.NewValidationError("title cannot exceed 200 characters")
	}
	if len(f.Description) > 4000 {
		return shared.NewValidationError("description cannot exceed 4000 characters")
	}
	items, err := buildLineItems(d.Type, f.LineItems)
	if err != nil {
		return err
	}

	d.Title = title
	d.Description = strings.TrimSpace(f.Description)
	d.LineItems = items
	return nil
}

// IsOwnedBy reports whether userID authored the document
func (d *Document) IsOwnedBy(userID uuid.UUID) bool {
	return d.OwnerID == userID
}

// CanBeReadBy reports whether the actor may see the document. Drafts are
// private to their owner; everything else is visible to every role.
func (d *Document) CanBeReadBy(actor identity.Actor) bool {
	if d.IsOwnedBy(actor.UserID) {
		return true
	}
	return actor.Role.IsReviewer() && d.Status != StatusDraft
}

// EnsureReadable returns Forbidden when the actor cannot see the document
func (d *Document) EnsureReadable(actor identity.Actor) error {
	if !d.CanBeReadBy(actor) {
		return shared.NewForbiddenError("document %s is not visible to this user", d.Number)
	}
	return nil
}

// EnsureEditableBy returns Forbidden unless the actor owns the document and
// it is still a draft
func (d *Document) EnsureEditableBy(actor identity.Actor) error {
	if !d.IsOwnedBy(actor.UserID) {
		return shared.NewForbiddenError("only the owner may modify document %s", d.Number)
	}
	if d.Status != StatusDraft {
		return shared.NewForbiddenError("document %s is %s and can no longer be modified", d.Number, d.Status)
	}
	return nil
}

// UpdateDraft replaces the editable fields of a draft
func (d *Document) UpdateDraft(actor identity.Actor, f Fields) error {
	if err := d.EnsureEditableBy(actor); err != nil {
		return err
	}
	if err := d.setFields(f); err != nil {
		return err
	}
	d.IncrementVersion()
	return nil
}

// MarkDeleted records the deletion of a draft by its owner
func (d *Document) MarkDeleted(actor identity.Actor) error {
	if err := d.EnsureEditableBy(actor); err != nil {
		return err
	}
	d.AddDomainEvent(NewDocumentDeletedEvent(d, actor.UserID))
	return nil
}

func (d *Document) validateSubmittable() error {
	if len(d.LineItems) == 0 {
		return shared.NewValidationError("document %s has no line items", d.Number)
	}
	for _, it := range d.LineItems {
		if !it.Quantity.IsPositive() {
			return shared.NewValidationError("line item %q must have a quantity greater than zero", it.Name)
		}
	}
	return nil
}

// Transition validates a move to target on behalf of actor and applies it
// to the in-memory aggregate. The returned record carries the source state
// and version the store must compare-and-set against.
//
// Checks run in a fixed order: terminal state, declared edge, role and
// ownership, payload.
func (d *Document) Transition(actor identity.Actor, target Status, p Payload) (*Transition, error) {
	if d.Status.IsTerminal() {
		return nil, shared.NewInvalidTransitionError(
			"document %s is already %s; no further transitions are accepted", d.Number, d.Status)
	}
	edge, ok := LookupEdge(d.Type, d.Status, target)
	if !ok {
		return nil, shared.NewInvalidTransitionError(
			"document %s is currently %s; %s cannot move to %s from here", d.Number, d.Status, d.Type, target)
	}
	if actor.Role != edge.Role {
		return nil, shared.NewUnauthorizedRoleError(
			"role %s may not move %s from %s to %s; requires %s", actor.Role, d.Type, edge.From, edge.To, edge.Role)
	}
	if edge.OwnerOnly && !d.IsOwnedBy(actor.UserID) {
		return nil, shared.NewUnauthorizedRoleError("only the owner may submit document %s", d.Number)
	}
	if err := validatePayload(d, edge, p); err != nil {
		return nil, err
	}
	if _, exists := d.ReviewNotes[target]; exists {
		return nil, shared.NewInvalidTransitionError("document %s already passed stage %s", d.Number, target)
	}

	tr := &Transition{
		ID:              uuid.New(),
		DocumentID:      d.ID,
		From:            edge.From,
		To:              edge.To,
		ActorID:         actor.UserID,
		ActorRole:       actor.Role,
		Note:            p.text(edge.Payload),
		CreatedAt:       time.Now(),
		ExpectedVersion: d.Version,
		Edge:            edge,
	}

	if edge.Payload == PayloadInspection {
		verdicts := make(map[uuid.UUID]InspectedItem, len(p.Items))
		for _, it := range p.Items {
			verdicts[it.LineItemID] = it
		}
		for i := range d.LineItems {
			v := verdicts[d.LineItems[i].ID]
			d.LineItems[i].Checked = v.Checked
			d.LineItems[i].InspectionNote = strings.TrimSpace(v.Note)
		}
		tr.InspectedItems = p.Items
	}

	d.Status = target
	if d.ReviewNotes == nil {
		d.ReviewNotes = make(map[Status]string)
	}
	if tr.Note != "" {
		d.ReviewNotes[target] = tr.Note
	}
	d.IncrementVersion()
	d.AddDomainEvent(NewDocumentTransitionedEvent(d, tr))

	return tr, nil
}

// Transition is an accepted move along a pipeline edge. Records are
// append-only and form the document history.
type Transition struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	From       Status
	To         Status
	ActorID    uuid.UUID
	ActorRole  identity.Role
	Note       string
	CreatedAt  time.Time

	// Not persisted: used by the store for the compare-and-set and by
	// the dispatcher to resolve recipients.
	ExpectedVersion int
	Edge            Edge
	InspectedItems  []InspectedItem
}

// String returns a short description for logs
func (t *Transition) String() string {
	return fmt.Sprintf("%s -> %s by %s(%s)", t.From, t.To, t.ActorRole, t.ActorID)
}

// ReviewNotesFrom rebuilds the stage note map from a transition log
func ReviewNotesFrom(log []Transition) map[Status]string {
	notes := make(map[Status]string)
	for _, t := range log {
		if t.Note == "" {
			continue
		}
		if _, ok := notes[t.To]; !ok {
			notes[t.To] = t.Note
		}
	}
	return notes
}
