package document

import (
	"testing"

	"github.com/bapx/backend/internal/domain/identity"
	"github.com/bapx/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	vendor  = identity.NewActor(uuid.New(), identity.RoleVendor)
	pic     = identity.NewActor(uuid.New(), identity.RolePIC)
	direksi = identity.NewActor(uuid.New(), identity.RoleDireksi)
)

func createTestDocument(t *testing.T, docType Type) *Document {
	t.Helper()
	d, err := NewDocument(docType, string(docType)+"-2024-0001", vendor.UserID, Fields{
		Title: "Pengiriman semen",
		LineItems: []LineItemInput{
			{Name: "Semen 50kg", Quantity: decimal.NewFromInt(20), Unit: "sak", UnitPrice: decimal.NewFromInt(65000)},
			{Name: "Pasir", Quantity: decimal.RequireFromString("1.5"), Unit: "m3", UnitPrice: decimal.NewFromInt(300000)},
		},
	})
	require.NoError(t, err)
	return d
}

func allChecked(d *Document) Payload {
	items := make([]InspectedItem, len(d.LineItems))
	for i, li := range d.LineItems {
		items[i] = InspectedItem{LineItemID: li.ID, Checked: true}
	}
	return Payload{Items: items}
}

func mustTransition(t *testing.T, d *Document, actor identity.Actor, target Status, p Payload) *Transition {
	t.Helper()
	tr, err := d.Transition(actor, target, p)
	require.NoError(t, err)
	return tr
}

// ============================================
// Status and type tests
// ============================================

func TestStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   Status
		terminal bool
	}{
		{StatusDraft, false},
		{StatusSubmitted, false},
		{StatusPICChecked, false},
		{StatusReviewedPIC, false},
		{StatusApproved, true},
		{StatusApprovedDireksi, true},
		{StatusRejected, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
		})
	}
}

func TestStatus_BelongsTo(t *testing.T) {
	assert.True(t, StatusPICChecked.BelongsTo(TypeBAPB))
	assert.False(t, StatusPICChecked.BelongsTo(TypeBAPP))
	assert.True(t, StatusReviewedPIC.BelongsTo(TypeBAPP))
	assert.False(t, StatusApproved.BelongsTo(TypeBAPP))
	assert.True(t, StatusRejected.BelongsTo(TypeBAPB))
}

func TestParseType(t *testing.T) {
	typ, ok := ParseType("bapb")
	assert.True(t, ok)
	assert.Equal(t, TypeBAPB, typ)

	_, ok = ParseType("invoice")
	assert.False(t, ok)
}

func TestParseStatuses(t *testing.T) {
	got, bad := ParseStatuses([]string{"submitted,pic_checked", " ", "approved"})
	assert.Empty(t, bad)
	assert.Equal(t, []Status{StatusSubmitted, StatusPICChecked, StatusApproved}, got)

	_, bad = ParseStatuses([]string{"submitted", "archived"})
	assert.Equal(t, "archived", bad)
}

// ============================================
// Transition table tests
// ============================================

func TestTransitionTable_OnlyDeclaredEdges(t *testing.T) {
	declared := map[string]bool{}
	for _, e := range AllEdges() {
		declared[e.Name()] = true
	}

	for _, typ := range AllTypes {
		for _, from := range AllStatuses {
			for _, to := range AllStatuses {
				_, ok := LookupEdge(typ, from, to)
				name := Edge{Type: typ, From: from, To: to}.Name()
				assert.Equal(t, declared[name], ok, name)
			}
		}
	}
	assert.Len(t, AllEdges(), 10)
}

func TestTransitionTable_NoBackwardEdges(t *testing.T) {
	order := map[Status]int{
		StatusDraft: 0, StatusSubmitted: 1, StatusPICChecked: 2, StatusReviewedPIC: 2,
		StatusApproved: 3, StatusApprovedDireksi: 3, StatusRejected: 3,
	}
	for _, e := range AllEdges() {
		assert.Greater(t, order[e.To], order[e.From], e.Name())
		assert.False(t, e.From.IsTerminal(), e.Name())
		assert.True(t, e.From.BelongsTo(e.Type), e.Name())
		assert.True(t, e.To.BelongsTo(e.Type), e.Name())
	}
}

func TestTransitionTable_BAPBRequiresInspectionBeforeApproval(t *testing.T) {
	_, ok := LookupEdge(TypeBAPB, StatusSubmitted, StatusApproved)
	assert.False(t, ok)
	assert.Equal(t, []Status{StatusPICChecked, StatusRejected}, NextStatuses(TypeBAPB, StatusSubmitted))
}

func TestAvailableEdges(t *testing.T) {
	d := createTestDocument(t, TypeBAPP)
	assert.Len(t, AvailableEdges(d, vendor), 1)
	assert.Empty(t, AvailableEdges(d, identity.NewActor(uuid.New(), identity.RoleVendor)))
	assert.Empty(t, AvailableEdges(d, pic))

	mustTransition(t, d, vendor, StatusSubmitted, Payload{})
	edges := AvailableEdges(d, pic)
	require.Len(t, edges, 2)
	assert.Equal(t, StatusReviewedPIC, edges[0].To)
	assert.Equal(t, StatusRejected, edges[1].To)
}

// ============================================
// Document tests
// ============================================

func TestNewDocument(t *testing.T) {
	t.Run("creates draft with computed line totals", func(t *testing.T) {
		d := createTestDocument(t, TypeBAPP)
		assert.Equal(t, StatusDraft, d.Status)
		assert.Equal(t, 1, d.Version)
		assert.Len(t, d.GetDomainEvents(), 1)
		assert.True(t, decimal.NewFromInt(1300000).Equal(d.LineItems[0].LineTotal))
		assert.True(t, decimal.NewFromInt(450000).Equal(d.LineItems[1].LineTotal))
		assert.True(t, decimal.NewFromInt(1750000).Equal(TotalAmount(d.LineItems)))
	})

	t.Run("BAPB items carry no price", func(t *testing.T) {
		d := createTestDocument(t, TypeBAPB)
		assert.True(t, d.LineItems[0].LineTotal.IsZero())
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := NewDocument(TypeBAPB, "BAPB-2024-0002", vendor.UserID, Fields{
			Title:     "x",
			LineItems: []LineItemInput{{Name: "Besi", Quantity: decimal.Zero, Unit: "btg"}},
		})
		assert.True(t, shared.IsCode(err, shared.CodeValidation))
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		_, err := NewDocument(Type("SPK"), "SPK-1", vendor.UserID, Fields{Title: "x"})
		assert.Error(t, err)
	})

	t.Run("allows an empty draft", func(t *testing.T) {
		d, err := NewDocument(TypeBAPB, "BAPB-2024-0003", vendor.UserID, Fields{Title: "kosong"})
		require.NoError(t, err)
		assert.Empty(t, d.LineItems)
	})
}

func TestDocument_UpdateDraft(t *testing.T) {
	t.Run("owner edits draft", func(t *testing.T) {
		d := createTestDocument(t, TypeBAPB)
		err := d.UpdateDraft(vendor, Fields{
			Title:     "Revisi",
			LineItems: []LineItemInput{{Name: "Bata", Quantity: decimal.NewFromInt(1000), Unit: "pcs"}},
		})
		require.NoError(t, err)
		assert.Equal(t, "Revisi", d.Title)
		assert.Len(t, d.LineItems, 1)
		assert.Equal(t, 2, d.Version)
	})

	t.Run("other user is forbidden", func(t *testing.T) {
		d := createTestDocument(t, TypeBAPB)
		err := d.UpdateDraft(identity.NewActor(uuid.New(), identity.RoleVendor), Fields{Title: "x"})
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})

	t.Run("submitted document is forbidden", func(t *testing.T) {
		d := createTestDocument(t, TypeBAPB)
		mustTransition(t, d, vendor, StatusSubmitted, Payload{})
		err := d.UpdateDraft(vendor, Fields{Title: "x"})
		assert.ErrorIs(t, err, shared.ErrForbidden)
		assert.ErrorIs(t, d.MarkDeleted(vendor), shared.ErrForbidden)
	})
}

func TestDocument_CanBeReadBy(t *testing.T) {
	d := createTestDocument(t, TypeBAPB)
	assert.True(t, d.CanBeReadBy(vendor))
	assert.False(t, d.CanBeReadBy(pic))
	assert.False(t, d.CanBeReadBy(identity.NewActor(uuid.New(), identity.RoleVendor)))

	mustTransition(t, d, vendor, StatusSubmitted, Payload{})
	assert.True(t, d.CanBeReadBy(pic))
	assert.True(t, d.CanBeReadBy(direksi))
	assert.False(t, d.CanBeReadBy(identity.NewActor(uuid.New(), identity.RoleVendor)))
}

func TestDocument_Transition_BAPBApproval(t *testing.T) {
	d := createTestDocument(t, TypeBAPB)

	tr := mustTransition(t, d, vendor, StatusSubmitted, Payload{Note: "mohon diperiksa"})
	assert.Equal(t, StatusDraft, tr.From)
	assert.Equal(t, 1, tr.ExpectedVersion)
	assert.Equal(t, 2, d.Version)

	p := allChecked(d)
	p.Items[0].Note = "segel utuh"
	tr = mustTransition(t, d, pic, StatusPICChecked, p)
	assert.Len(t, tr.InspectedItems, 2)
	assert.True(t, d.LineItems[0].Checked)
	assert.Equal(t, "segel utuh", d.LineItems[0].InspectionNote)

	mustTransition(t, d, pic, StatusApproved, Payload{Note: "lengkap"})
	assert.Equal(t, StatusApproved, d.Status)
	assert.Equal(t, "mohon diperiksa", d.ReviewNotes[StatusSubmitted])
	assert.Equal(t, "lengkap", d.ReviewNotes[StatusApproved])
	assert.Len(t, d.GetDomainEvents(), 4)
}

func TestDocument_Transition_Rejection(t *testing.T) {
	d := createTestDocument(t, TypeBAPB)
	mustTransition(t, d, vendor, StatusSubmitted, Payload{})

	t.Run("empty reason is a validation error", func(t *testing.T) {
		_, err := d.Transition(pic, StatusRejected, Payload{Reason: "  "})
		assert.True(t, shared.IsCode(err, shared.CodeValidation))
		assert.Equal(t, StatusSubmitted, d.Status)
	})

	mustTransition(t, d, pic, StatusRejected, Payload{Reason: "barang rusak"})
	assert.Equal(t, "barang rusak", d.ReviewNotes[StatusRejected])

	t.Run("terminal document accepts nothing", func(t *testing.T) {
		for _, target := range AllStatuses {
			_, err := d.Transition(pic, target, Payload{Reason: "x"})
			assert.ErrorIs(t, err, shared.ErrInvalidTransition, target)
			assert.Contains(t, err.Error(), "rejected")
		}
	})
}

func TestDocument_Transition_BAPPPath(t *testing.T) {
	d := createTestDocument(t, TypeBAPP)
	mustTransition(t, d, vendor, StatusSubmitted, Payload{})

	_, err := d.Transition(direksi, StatusApprovedDireksi, Payload{})
	assert.ErrorIs(t, err, shared.ErrInvalidTransition)
	assert.Contains(t, err.Error(), "currently submitted")

	mustTransition(t, d, pic, StatusReviewedPIC, allChecked(d))

	_, err = d.Transition(pic, StatusRejected, Payload{Reason: "x"})
	assert.ErrorIs(t, err, shared.ErrUnauthorizedRole)

	mustTransition(t, d, direksi, StatusApprovedDireksi, Payload{})
	assert.Equal(t, StatusApprovedDireksi, d.Status)
}

func TestDocument_Transition_RoleMismatchLeavesDocumentUnchanged(t *testing.T) {
	d := createTestDocument(t, TypeBAPB)
	mustTransition(t, d, vendor, StatusSubmitted, Payload{})
	before := *d

	for _, actor := range []identity.Actor{vendor, direksi} {
		_, err := d.Transition(actor, StatusPICChecked, allChecked(d))
		assert.ErrorIs(t, err, shared.ErrUnauthorizedRole)
	}
	assert.Equal(t, before.Status, d.Status)
	assert.Equal(t, before.UpdatedAt, d.UpdatedAt)
	assert.Equal(t, before.Version, d.Version)
}

func TestDocument_Transition_OnlyOwnerSubmits(t *testing.T) {
	d := createTestDocument(t, TypeBAPB)
	_, err := d.Transition(identity.NewActor(uuid.New(), identity.RoleVendor), StatusSubmitted, Payload{})
	assert.ErrorIs(t, err, shared.ErrUnauthorizedRole)
	assert.Equal(t, StatusDraft, d.Status)
}

func TestDocument_Transition_SubmitRequiresItems(t *testing.T) {
	d, err := NewDocument(TypeBAPB, "BAPB-2024-0009", vendor.UserID, Fields{Title: "kosong"})
	require.NoError(t, err)

	_, err = d.Transition(vendor, StatusSubmitted, Payload{})
	assert.True(t, shared.IsCode(err, shared.CodeValidation))
}

func TestDocument_Transition_PartialInspection(t *testing.T) {
	tests := []struct {
		name  string
		build func(d *Document) Payload
	}{
		{"one item unchecked", func(d *Document) Payload {
			p := allChecked(d)
			p.Items[1].Checked = false
			return p
		}},
		{"missing item", func(d *Document) Payload {
			p := allChecked(d)
			p.Items = p.Items[:1]
			return p
		}},
		{"unknown item", func(d *Document) Payload {
			p := allChecked(d)
			p.Items[0].LineItemID = uuid.New()
			return p
		}},
		{"duplicate item", func(d *Document) Payload {
			p := allChecked(d)
			p.Items[1].LineItemID = p.Items[0].LineItemID
			return p
		}},
		{"no items", func(d *Document) Payload { return Payload{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := createTestDocument(t, TypeBAPB)
			mustTransition(t, d, vendor, StatusSubmitted, Payload{})

			_, err := d.Transition(pic, StatusPICChecked, tt.build(d))
			assert.True(t, shared.IsCode(err, shared.CodeValidation), err)
			assert.Equal(t, StatusSubmitted, d.Status)
			assert.False(t, d.LineItems[0].Checked)
		})
	}
}

func TestReviewNotesFrom(t *testing.T) {
	notes := ReviewNotesFrom([]Transition{
		{To: StatusSubmitted, Note: ""},
		{To: StatusPICChecked, Note: "ok"},
		{To: StatusRejected, Note: "barang rusak"},
	})
	assert.Equal(t, map[Status]string{StatusPICChecked: "ok", StatusRejected: "barang rusak"}, notes)
}
