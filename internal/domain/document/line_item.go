package document

import (
	"strings"

	"github.com/bapx/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItem is a received good (BAPB) or a completed work item (BAPP)
type LineItem struct {
	ID        uuid.UUID
	Position  int
	Name      string
	Quantity  decimal.Decimal
	Unit      string
	UnitPrice decimal.Decimal // BAPP only
	LineTotal decimal.Decimal // BAPP only, Quantity * UnitPrice

	// Filled in by the inspection step
	Checked        bool
	InspectionNote string
}

// LineItemInput carries caller supplied line item fields
type LineItemInput struct {
	Name      string
	Quantity  decimal.Decimal
	Unit      string
	UnitPrice decimal.Decimal
}

func newLineItem(t Type, position int, in LineItemInput) (LineItem, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return LineItem{}, shared.NewValidationError("line item %d: name cannot be empty", position+1)
	}
	if len(name) > 200 {
		return LineItem{}, shared.NewValidationError("line item %d: name cannot exceed 200 characters", position+1)
	}
	if !in.Quantity.IsPositive() {
		return LineItem{}, shared.NewValidationError("line item %d: quantity must be greater than zero", position+1)
	}
	unit := strings.TrimSpace(in.Unit)
	if unit == "" {
		return LineItem{}, shared.NewValidationError("line item %d: unit cannot be empty", position+1)
	}

	item := LineItem{
		ID:       uuid.New(),
		Position: position,
		Name:     name,
		Quantity: in.Quantity,
		Unit:     unit,
	}
	if t == TypeBAPP {
		if in.UnitPrice.IsNegative() {
			return LineItem{}, shared.NewValidationError("line item %d: unit price cannot be negative", position+1)
		}
		item.UnitPrice = in.UnitPrice
		item.LineTotal = in.Quantity.Mul(in.UnitPrice).Round(2)
	}
	return item, nil
}

func buildLineItems(t Type, inputs []LineItemInput) ([]LineItem, error) {
	items := make([]LineItem, 0, len(inputs))
	for i, in := range inputs {
		item, err := newLineItem(t, i, in)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// TotalAmount sums the line totals. Zero for BAPB.
func TotalAmount(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal)
	}
	return total
}
