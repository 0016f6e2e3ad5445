package handler

import (
	appdocument "github.com/bapx/backend/internal/application/document"
	"github.com/gin-gonic/gin"
)

// DocumentHandler handles BAPB/BAPP document endpoints
type DocumentHandler struct {
	BaseHandler
	documentService *appdocument.Service
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(documentService *appdocument.Service) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
	}
}

// ListDocumentsQuery holds the query string of a document listing.
// status may be repeated.
type ListDocumentsQuery struct {
	Type     string   `form:"type"`
	Status   []string `form:"status"`
	Search   string   `form:"search" binding:"max=100"`
	Page     int      `form:"page" binding:"omitempty,min=1"`
	Limit    int      `form:"limit" binding:"omitempty,min=1"`
	OrderBy  string   `form:"order_by"`
	OrderDir string   `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// List returns a page of the documents visible to the caller.
// GET /documents
func (h *DocumentHandler) List(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	var q ListDocumentsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.HandleValidation(c, err)
		return
	}

	result, err := h.documentService.List(c.Request.Context(), actor, appdocument.ListQuery{
		DocumentType: q.Type,
		Statuses:     q.Status,
		Search:       q.Search,
		Page:         q.Page,
		Limit:        q.Limit,
		OrderBy:      q.OrderBy,
		OrderDir:     q.OrderDir,
	}, requestLanguage(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Create creates a draft document.
// POST /documents
func (h *DocumentHandler) Create(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	var req appdocument.CreateDocumentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.documentService.Create(c.Request.Context(), actor, req, requestLanguage(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, doc)
}

// Summary returns the dashboard counts for the caller.
// GET /documents/summary
func (h *DocumentHandler) Summary(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	summary, err := h.documentService.Summary(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, summary)
}

// GetByID returns one document.
// GET /documents/:id
func (h *DocumentHandler) GetByID(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	doc, err := h.documentService.GetByID(c.Request.Context(), actor, id, requestLanguage(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, doc)
}

// Update replaces the editable fields of a draft.
// PUT /documents/:id
func (h *DocumentHandler) Update(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req appdocument.UpdateDocumentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.documentService.Update(c.Request.Context(), actor, id, req, requestLanguage(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, doc)
}

// Delete removes a draft and its attachments.
// DELETE /documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.documentService.Delete(c.Request.Context(), actor, id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Transition moves a document along its approval pipeline.
// POST /documents/:id/transitions
func (h *DocumentHandler) Transition(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req appdocument.TransitionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.documentService.ApplyTransition(c.Request.Context(), actor, id, req, requestLanguage(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// History returns the transition log of a document.
// GET /documents/:id/history
func (h *DocumentHandler) History(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	entries, err := h.documentService.History(c.Request.Context(), actor, id, requestLanguage(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entries)
}
