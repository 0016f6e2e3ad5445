package notification

import (
	"testing"
	"time"

	"github.com/bapx/backend/internal/domain/document"
	"github.com/bapx/backend/internal/domain/identity"
	"github.com/bapx/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNotification(t *testing.T) {
	docID := uuid.New()
	n, err := NewNotification(uuid.New(), &docID, KindSuccess, " BAPB-2024-0001 disetujui ", "ok")
	require.NoError(t, err)
	assert.False(t, n.IsRead)
	assert.Equal(t, "BAPB-2024-0001 disetujui", n.Title)

	_, err = NewNotification(uuid.Nil, nil, KindInfo, "x", "")
	assert.Error(t, err)
	_, err = NewNotification(uuid.New(), nil, Kind("loud"), "x", "")
	assert.Error(t, err)
}

func TestNotification_MarkRead(t *testing.T) {
	n, err := NewNotification(uuid.New(), nil, KindInfo, "Pemeliharaan", "")
	require.NoError(t, err)

	now := time.Now()
	assert.True(t, n.MarkRead(now))
	assert.True(t, n.IsRead)
	assert.Equal(t, now, *n.ReadAt)

	assert.False(t, n.MarkRead(now.Add(time.Minute)))
	assert.Equal(t, now, *n.ReadAt)
}

func TestNotification_EnsureOwnedBy(t *testing.T) {
	owner := uuid.New()
	n, err := NewNotification(owner, nil, KindInfo, "x", "")
	require.NoError(t, err)

	assert.NoError(t, n.EnsureOwnedBy(owner))
	assert.ErrorIs(t, n.EnsureOwnedBy(uuid.New()), shared.ErrForbidden)
}

func TestPreference(t *testing.T) {
	p := DefaultPreference(uuid.New())
	for _, tg := range []Toggle{ToggleSubmission, ToggleReview, ToggleApproval, ToggleRejection} {
		assert.True(t, p.Allows(tg), tg)
	}
	assert.False(t, p.Allows(Toggle("notify_on_comment")))

	off := false
	p.Apply(PreferenceUpdate{NotifyOnApproval: &off})
	assert.False(t, p.Allows(ToggleApproval))
	assert.True(t, p.Allows(ToggleRejection))
	assert.False(t, p.UpdatedAt.IsZero())
}

func TestCheckRules_TotalOverPipelineEdges(t *testing.T) {
	assert.NoError(t, CheckRules(document.AllEdges()))

	err := CheckRules([]document.Edge{{Type: document.TypeBAPB, From: document.StatusSubmitted, To: document.StatusReviewedPIC}})
	assert.ErrorIs(t, err, ErrMissingRule)
}

func TestRule_Resolve(t *testing.T) {
	owner := uuid.New()
	d := &document.Document{Type: document.TypeBAPB, Number: "BAPB-2024-0001", OwnerID: owner}

	pic1 := &identity.User{Role: identity.RolePIC, Active: true}
	pic1.ID = uuid.New()
	pic2 := &identity.User{Role: identity.RolePIC, Active: true}
	pic2.ID = uuid.New()
	inactive := &identity.User{Role: identity.RolePIC, Active: false}
	inactive.ID = uuid.New()
	wrongRole := &identity.User{Role: identity.RoleDireksi, Active: true}
	wrongRole.ID = uuid.New()

	t.Run("role audience excludes actor and inactive users", func(t *testing.T) {
		rule, err := RuleFor(document.TypeBAPB, document.StatusPICChecked)
		require.NoError(t, err)

		got := rule.Resolve(d, pic1.ID, []*identity.User{pic1, pic2, inactive, wrongRole, pic2})
		require.Len(t, got, 1)
		assert.Equal(t, pic2.ID, got[0].UserID)
	})

	t.Run("owner audience", func(t *testing.T) {
		rule, err := RuleFor(document.TypeBAPB, document.StatusApproved)
		require.NoError(t, err)

		got := rule.Resolve(d, pic1.ID, nil)
		require.Len(t, got, 1)
		assert.Equal(t, owner, got[0].UserID)
		assert.Equal(t, KindSuccess, rule.Kind)
	})

	t.Run("owner acting never notifies itself", func(t *testing.T) {
		rule, err := RuleFor(document.TypeBAPB, document.StatusApproved)
		require.NoError(t, err)
		assert.Empty(t, rule.Resolve(d, owner, nil))
	})
}

func TestRuleFor_Audiences(t *testing.T) {
	tests := []struct {
		docType  document.Type
		to       document.Status
		audience Audience
		role     identity.Role
		toggle   Toggle
	}{
		{document.TypeBAPB, document.StatusSubmitted, AudienceRole, identity.RolePIC, ToggleSubmission},
		{document.TypeBAPB, document.StatusApproved, AudienceOwner, "", ToggleApproval},
		{document.TypeBAPB, document.StatusRejected, AudienceOwner, "", ToggleRejection},
		{document.TypeBAPP, document.StatusSubmitted, AudienceRole, identity.RolePIC, ToggleSubmission},
		{document.TypeBAPP, document.StatusReviewedPIC, AudienceRole, identity.RoleDireksi, ToggleReview},
		{document.TypeBAPP, document.StatusApprovedDireksi, AudienceOwner, "", ToggleApproval},
		{document.TypeBAPP, document.StatusRejected, AudienceOwner, "", ToggleRejection},
	}

	for _, tt := range tests {
		t.Run(string(tt.docType)+"/"+string(tt.to), func(t *testing.T) {
			rule, err := RuleFor(tt.docType, tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.audience, rule.Audience)
			assert.Equal(t, tt.role, rule.Role)
			assert.Equal(t, tt.toggle, rule.Toggle)
		})
	}
}

func TestRule_Render(t *testing.T) {
	rule, err := RuleFor(document.TypeBAPP, document.StatusReviewedPIC)
	require.NoError(t, err)

	title, msg := rule.Render(&document.Document{Type: document.TypeBAPP, Number: "BAPP-2024-0007"})
	assert.Equal(t, "BAPP-2024-0007 menunggu persetujuan Direksi", title)
	assert.Contains(t, msg, "BAPP BAPP-2024-0007")
}
