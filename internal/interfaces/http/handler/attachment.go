package handler

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	appattachment "github.com/bapx/backend/internal/application/attachment"
	"github.com/bapx/backend/internal/domain/document"
	"github.com/bapx/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Multipart field names accepted for upload
const (
	uploadFilesField       = "files[]"
	uploadFilesFieldAlt    = "files"
	uploadDescriptionField = "description"
)

// AttachmentHandler handles document attachment endpoints
type AttachmentHandler struct {
	BaseHandler
	attachmentService *appattachment.Service
}

// NewAttachmentHandler creates a new AttachmentHandler
func NewAttachmentHandler(attachmentService *appattachment.Service) *AttachmentHandler {
	return &AttachmentHandler{
		attachmentService: attachmentService,
	}
}

// ListFor returns the list handler for one document type.
// GET /bapb/:id/attachments, GET /bapp/:id/attachments
func (h *AttachmentHandler) ListFor(docType document.Type) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := h.requireActor(c)
		if !ok {
			return
		}
		id, ok := h.pathID(c)
		if !ok {
			return
		}

		items, err := h.attachmentService.List(c.Request.Context(), actor, docType, id)
		if err != nil {
			h.HandleError(c, err)
			return
		}

		h.Success(c, items)
	}
}

// UploadFor returns the upload handler for one document type. Files that
// fail the size or type checks are reported back without failing the batch.
// POST /bapb/:id/attachments, POST /bapp/:id/attachments
func (h *AttachmentHandler) UploadFor(docType document.Type) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := h.requireActor(c)
		if !ok {
			return
		}
		id, ok := h.pathID(c)
		if !ok {
			return
		}

		form, err := c.MultipartForm()
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				h.Error(c, dto.ErrCodePayloadTooLarge, "Upload exceeds maximum allowed size")
				return
			}
			h.BadRequest(c, "Expected a multipart/form-data body")
			return
		}
		headers := form.File[uploadFilesField]
		if len(headers) == 0 {
			headers = form.File[uploadFilesFieldAlt]
		}

		files := make([]appattachment.FileUpload, len(headers))
		for i, fh := range headers {
			files[i] = fileUpload(fh)
		}

		result, err := h.attachmentService.Upload(c.Request.Context(), actor, appattachment.UploadRequest{
			DocumentType: docType,
			DocumentID:   id,
			Description:  strings.TrimSpace(c.PostForm(uploadDescriptionField)),
			Files:        files,
		})
		if err != nil {
			h.HandleError(c, err)
			return
		}

		if len(result.Uploaded) == 0 {
			h.Success(c, result)
			return
		}
		h.Created(c, result)
	}
}

// Delete removes an attachment from a draft.
// DELETE /attachments/:id
func (h *AttachmentHandler) Delete(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.attachmentService.Delete(c.Request.Context(), actor, id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Download streams the stored bytes under the original filename and type.
// GET /attachments/:id/download
func (h *AttachmentHandler) Download(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	dl, err := h.attachmentService.Download(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer dl.Body.Close()

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": dl.Filename})
	c.DataFromReader(http.StatusOK, dl.Size, dl.MimeType, dl.Body, map[string]string{
		"Content-Disposition": disposition,
	})
}

// fileUpload adapts a multipart header. The part's declared type wins;
// the extension is used only when the client sent none.
func fileUpload(fh *multipart.FileHeader) appattachment.FileUpload {
	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(fh.Filename))); byExt != "" {
			mimeType = byExt
		}
	}
	if mediaType, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = mediaType
	}
	return appattachment.FileUpload{
		Filename: filepath.Base(fh.Filename),
		Size:     fh.Size,
		MimeType: mimeType,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}
