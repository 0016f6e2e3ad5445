package document

import (
	"strings"

	"github.com/bapx/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// InspectedItem is the reviewer's verdict on one line item
type InspectedItem struct {
	LineItemID uuid.UUID
	Checked    bool
	Note       string
}

// Payload is the data supplied with a transition request. Which fields
// are required depends on the edge's PayloadKind.
type Payload struct {
	Note   string
	Reason string
	Items  []InspectedItem
}

// text returns the note recorded for the target stage
func (p Payload) text(kind PayloadKind) string {
	if kind == PayloadReason {
		return strings.TrimSpace(p.Reason)
	}
	if n := strings.TrimSpace(p.Note); n != "" {
		return n
	}
	return strings.TrimSpace(p.Reason)
}

func validatePayload(d *Document, e Edge, p Payload) error {
	switch e.Payload {
	case PayloadReason:
		if strings.TrimSpace(p.Reason) == "" {
			return shared.NewValidationError("a rejection reason is required")
		}
		if len(p.Reason) > 2000 {
			return shared.NewValidationError("reason cannot exceed 2000 characters")
		}
	case PayloadInspection:
		return validateInspection(d, p.Items)
	case PayloadNote:
		if len(p.Note) > 2000 {
			return shared.NewValidationError("note cannot exceed 2000 characters")
		}
	}
	if e.From == StatusDraft {
		return d.validateSubmittable()
	}
	return nil
}

// validateInspection requires exactly one verdict per line item and every
// verdict to be checked. Partial inspection is not accepted.
func validateInspection(d *Document, items []InspectedItem) error {
	if len(items) == 0 {
		return shared.NewValidationError("inspection requires the full line item list")
	}

	known := make(map[uuid.UUID]bool, len(d.LineItems))
	for _, li := range d.LineItems {
		known[li.ID] = false
	}

	var unchecked []string
	for _, it := range items {
		seen, ok := known[it.LineItemID]
		if !ok {
			return shared.NewValidationError("line item %s does not belong to document %s", it.LineItemID, d.Number)
		}
		if seen {
			return shared.NewValidationError("line item %s is listed more than once", it.LineItemID)
		}
		known[it.LineItemID] = true
		if !it.Checked {
			unchecked = append(unchecked, it.LineItemID.String())
		}
	}

	for _, li := range d.LineItems {
		if !known[li.ID] {
			return shared.NewValidationError("line item %q was not inspected", li.Name)
		}
	}
	if len(unchecked) > 0 {
		return shared.NewValidationError("all line items must be checked; unchecked: %s", strings.Join(unchecked, ", "))
	}
	return nil
}
