package integration

import (
	"mime"
	"net/http"
	"testing"

	appattachment "github.com/bapx/backend/internal/application/attachment"
	appdocument "github.com/bapx/backend/internal/application/document"
	"github.com/bapx/backend/internal/domain/document"
	"github.com/bapx/backend/internal/domain/notification"
	"github.com/bapx/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApprovalFlow_BAPB(t *testing.T) {
	s := newApprovalServer(t)

	doc := s.createDraft(t, "BAPB")
	assert.Equal(t, document.StatusDraft, doc.Status)
	assert.Regexp(t, `^BAPB-\d{4}-\d{4}$`, doc.DocumentNumber)
	assert.Nil(t, doc.TotalAmount, "BAPB carries no prices")
	assert.Equal(t, seedVendorID, doc.OwnerID.String())

	t.Run("reviewers do not see drafts", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/v1/documents/"+doc.ID.String(), nil, "pic1")
		requireErrorCode(t, w, http.StatusForbidden, dto.ErrCodeForbidden)
	})

	evidence := []byte("%PDF-1.4 surat jalan")
	w := s.upload(t, "bapb", doc.ID.String(), "vendor", "surat-jalan.pdf", evidence)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	uploaded := decode[appattachment.UploadResult](t, w).Data
	require.Len(t, uploaded.Uploaded, 1)
	assert.Empty(t, uploaded.Rejected)
	attachmentID := uploaded.Uploaded[0].ID.String()

	res := s.mustTransition(t, doc.ID.String(), "vendor", map[string]any{
		"targetStatus": "submitted",
		"note":         "Barang sudah tiba di gudang",
	})
	assert.Equal(t, document.StatusSubmitted, res.Document.Status)
	assert.Equal(t, 2, res.Notified, "both PICs are told about the submission")
	assert.False(t, res.Degraded)

	t.Run("inspection must cover every line item", func(t *testing.T) {
		partial := inspectAll(doc)[:1]
		w := s.transition(t, doc.ID.String(), "pic1", map[string]any{
			"targetStatus": "pic_checked",
			"items":        partial,
		})
		requireErrorCode(t, w, http.StatusBadRequest, dto.ErrCodeValidation)
	})

	t.Run("vendor cannot check goods", func(t *testing.T) {
		w := s.transition(t, doc.ID.String(), "vendor", map[string]any{
			"targetStatus": "pic_checked",
			"items":        inspectAll(doc),
		})
		requireErrorCode(t, w, http.StatusForbidden, dto.ErrCodeUnauthorizedRole)
	})

	res = s.mustTransition(t, doc.ID.String(), "pic1", map[string]any{
		"targetStatus": "pic_checked",
		"items":        inspectAll(doc),
	})
	assert.Equal(t, document.StatusPICChecked, res.Document.Status)
	assert.Equal(t, 1, res.Notified, "the acting PIC is not notified")
	for _, li := range res.Document.LineItems {
		assert.True(t, li.Checked)
		assert.Equal(t, "sesuai kontrak", li.InspectionNote)
	}

	res = s.mustTransition(t, doc.ID.String(), "pic1", map[string]any{
		"targetStatus": "approved",
		"note":         "Lengkap",
	})
	assert.Equal(t, document.StatusApproved, res.Document.Status)
	assert.Equal(t, document.CategoryApproved, res.Document.Category)
	assert.Empty(t, res.Document.AvailableTransitions)

	t.Run("approved is terminal", func(t *testing.T) {
		w := s.transition(t, doc.ID.String(), "pic1", map[string]any{
			"targetStatus": "rejected",
			"reason":       "Terlambat",
		})
		requireErrorCode(t, w, http.StatusConflict, dto.ErrCodeInvalidTransition)
	})

	t.Run("evidence stays downloadable but is frozen", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/v1/attachments/"+attachmentID+"/download", nil, "pic2")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, evidence, w.Body.Bytes())
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		disposition, params, err := mime.ParseMediaType(w.Header().Get("Content-Disposition"))
		require.NoError(t, err)
		assert.Equal(t, "attachment", disposition)
		assert.Equal(t, "surat-jalan.pdf", params["filename"])

		w = s.do(t, http.MethodDelete, "/api/v1/attachments/"+attachmentID, nil, "vendor")
		requireErrorCode(t, w, http.StatusForbidden, dto.ErrCodeForbidden)

		w = s.do(t, http.MethodGet, "/api/v1/bapb/"+doc.ID.String()+"/attachments", nil, "vendor")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Len(t, decode[[]appattachment.AttachmentResponse](t, w).Data, 1)
	})

	t.Run("history records every step", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/v1/documents/"+doc.ID.String()+"/history", nil, "vendor")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		history := decode[[]appdocument.HistoryEntry](t, w).Data

		require.Len(t, history, 3)
		assert.Equal(t, document.StatusSubmitted, history[0].ToStatus)
		assert.Equal(t, "Barang sudah tiba di gudang", history[0].Note)
		assert.Equal(t, seedVendorID, history[0].ActorID.String())
		assert.Equal(t, document.StatusPICChecked, history[1].ToStatus)
		assert.Equal(t, seedPIC1ID, history[1].ActorID.String())
		assert.Equal(t, document.StatusApproved, history[2].ToStatus)
	})

	t.Run("notifications reach the right inboxes", func(t *testing.T) {
		assert.Equal(t, int64(1), s.unreadCount(t, "pic1"))
		assert.Equal(t, int64(2), s.unreadCount(t, "pic2"))
		assert.Equal(t, int64(0), s.unreadCount(t, "direksi"))

		inbox := s.notifications(t, "vendor")
		require.Len(t, inbox, 1)
		assert.Equal(t, notification.KindSuccess, inbox[0].Kind)
		require.NotNil(t, inbox[0].DocumentID)
		assert.Equal(t, doc.ID, *inbox[0].DocumentID)
		assert.Contains(t, inbox[0].Title, doc.DocumentNumber)
	})
}

func TestApprovalFlow_BAPBRejectedByPIC(t *testing.T) {
	s := newApprovalServer(t)

	doc := s.createDraft(t, "BAPB")
	s.mustTransition(t, doc.ID.String(), "vendor", map[string]any{"targetStatus": "submitted"})
	s.mustTransition(t, doc.ID.String(), "pic2", map[string]any{
		"targetStatus": "pic_checked",
		"items":        inspectAll(doc),
	})

	res := s.mustTransition(t, doc.ID.String(), "pic2", map[string]any{
		"targetStatus": "rejected",
		"reason":       "barang rusak",
	})
	assert.Equal(t, document.StatusRejected, res.Document.Status)
	assert.Equal(t, "barang rusak", res.Document.ReviewNotes[document.StatusRejected])
	assert.Equal(t, 1, res.Notified)

	for _, target := range []string{"approved", "pic_checked", "submitted"} {
		w := s.transition(t, doc.ID.String(), "pic2", map[string]any{
			"targetStatus": target,
			"items":        inspectAll(doc),
		})
		requireErrorCode(t, w, http.StatusConflict, dto.ErrCodeInvalidTransition)
	}

	inbox := s.notifications(t, "vendor")
	require.Len(t, inbox, 1)
	assert.Equal(t, notification.KindError, inbox[0].Kind)
}

func TestApprovalFlow_BAPP(t *testing.T) {
	s := newApprovalServer(t)

	doc := s.createDraft(t, "BAPP")
	require.NotNil(t, doc.TotalAmount)
	// 2 x 7.250.000 + 36 x 118.500
	assert.Equal(t, "18766000", doc.TotalAmount.String())

	s.mustTransition(t, doc.ID.String(), "vendor", map[string]any{"targetStatus": "submitted"})

	t.Run("PIC cannot skip the review", func(t *testing.T) {
		w := s.transition(t, doc.ID.String(), "pic2", map[string]any{"targetStatus": "approved_direksi"})
		requireErrorCode(t, w, http.StatusConflict, dto.ErrCodeInvalidTransition)
	})

	res := s.mustTransition(t, doc.ID.String(), "pic2", map[string]any{
		"targetStatus": "reviewed_pic",
		"items":        inspectAll(doc),
	})
	assert.Equal(t, document.StatusReviewedPIC, res.Document.Status)
	assert.Equal(t, 1, res.Notified, "only Direksi is told about the review")

	t.Run("PIC cannot approve for Direksi", func(t *testing.T) {
		w := s.transition(t, doc.ID.String(), "pic1", map[string]any{"targetStatus": "approved_direksi"})
		requireErrorCode(t, w, http.StatusForbidden, dto.ErrCodeUnauthorizedRole)
	})

	res = s.mustTransition(t, doc.ID.String(), "direksi", map[string]any{
		"targetStatus": "approved_direksi",
		"note":         "Disetujui untuk pembayaran",
	})
	assert.Equal(t, document.StatusApprovedDireksi, res.Document.Status)
	assert.Equal(t, "Disetujui Direksi", res.Document.StatusLabel)

	inbox := s.notifications(t, "direksi")
	require.Len(t, inbox, 1)
	assert.Equal(t, notification.KindInfo, inbox[0].Kind)

	vendorInbox := s.notifications(t, "vendor")
	require.Len(t, vendorInbox, 1)
	assert.Equal(t, notification.KindSuccess, vendorInbox[0].Kind)

	t.Run("summary counts the approval", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/v1/documents/summary", nil, "vendor")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		summary := decode[appdocument.SummaryResponse](t, w).Data
		assert.Equal(t, int64(1), summary.Total)
		assert.Equal(t, int64(1), summary.Approved)
		assert.Equal(t, int64(1), summary.ByType[document.TypeBAPP].Approved)
	})
}

func TestApprovalFlow_Rejection(t *testing.T) {
	s := newApprovalServer(t)

	doc := s.createDraft(t, "BAPP")
	s.mustTransition(t, doc.ID.String(), "vendor", map[string]any{"targetStatus": "submitted"})
	s.mustTransition(t, doc.ID.String(), "pic1", map[string]any{
		"targetStatus": "reviewed_pic",
		"items":        inspectAll(doc),
	})

	t.Run("a reason is required", func(t *testing.T) {
		w := s.transition(t, doc.ID.String(), "direksi", map[string]any{
			"targetStatus": "rejected",
			"reason":       "   ",
		})
		requireErrorCode(t, w, http.StatusBadRequest, dto.ErrCodeValidation)
	})

	res := s.mustTransition(t, doc.ID.String(), "direksi", map[string]any{
		"targetStatus": "rejected",
		"reason":       "Nilai pekerjaan melebihi anggaran",
	})
	assert.Equal(t, document.StatusRejected, res.Document.Status)
	assert.Equal(t, document.CategoryRejected, res.Document.Category)
	assert.Equal(t, "Nilai pekerjaan melebihi anggaran", res.Document.ReviewNotes[document.StatusRejected])

	inbox := s.notifications(t, "vendor")
	require.Len(t, inbox, 1)
	assert.Equal(t, notification.KindError, inbox[0].Kind)

	t.Run("rejected documents cannot be resubmitted", func(t *testing.T) {
		w := s.transition(t, doc.ID.String(), "vendor", map[string]any{"targetStatus": "submitted"})
		requireErrorCode(t, w, http.StatusConflict, dto.ErrCodeInvalidTransition)
	})

	t.Run("rejected documents cannot be edited or deleted", func(t *testing.T) {
		w := s.do(t, http.MethodPut, "/api/v1/documents/"+doc.ID.String(), map[string]any{
			"title": "Revisi",
		}, "vendor")
		requireErrorCode(t, w, http.StatusForbidden, dto.ErrCodeForbidden)

		w = s.do(t, http.MethodDelete, "/api/v1/documents/"+doc.ID.String(), nil, "vendor")
		requireErrorCode(t, w, http.StatusForbidden, dto.ErrCodeForbidden)
	})

	t.Run("marking read clears the badge", func(t *testing.T) {
		w := s.do(t, http.MethodPatch, "/api/v1/notifications/"+inbox[0].ID.String()+"/read", nil, "vendor")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, int64(0), s.unreadCount(t, "vendor"))

		// Another user's notification stays untouched
		picInbox := s.notifications(t, "pic2")
		require.NotEmpty(t, picInbox)
		w = s.do(t, http.MethodPatch, "/api/v1/notifications/"+picInbox[0].ID.String()+"/read", nil, "vendor")
		requireErrorCode(t, w, http.StatusForbidden, dto.ErrCodeForbidden)
		assert.Equal(t, int64(1), s.unreadCount(t, "pic2"))
	})
}

func TestApprovalFlow_LogoutRevokesToken(t *testing.T) {
	s := newApprovalServer(t)

	token := s.login(t, "pic2")
	w := s.send(t, http.MethodGet, "/api/v1/auth/me", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.send(t, http.MethodPost, "/api/v1/auth/logout", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.send(t, http.MethodGet, "/api/v1/auth/me", nil, token)
	requireErrorCode(t, w, http.StatusUnauthorized, dto.ErrCodeTokenInvalid)
}

func TestApprovalFlow_LoginRejectsWrongPassword(t *testing.T) {
	s := newApprovalServer(t)

	w := s.send(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "direksi",
		"password": "bukan-rahasia",
	}, "")
	requireErrorCode(t, w, http.StatusUnauthorized, dto.ErrCodeUnauthorized)

	// Usernames are case-insensitive
	w = s.send(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "  DIREKSI ",
		"password": "rahasia123",
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, seedDireksiID, decode[loginData](t, w).Data.User.ID)
}

type loginData struct {
	User struct {
		ID string `json:"id"`
	} `json:"user"`
}
