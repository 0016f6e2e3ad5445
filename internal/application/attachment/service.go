package attachment

import (
	"context"
	"errors"
	"io"

	"github.com/bapx/backend/internal/domain/attachment"
	"github.com/bapx/backend/internal/domain/document"
	"github.com/bapx/backend/internal/domain/identity"
	"github.com/bapx/backend/internal/domain/shared"
	"github.com/bapx/backend/internal/infrastructure/logger"
	"github.com/bapx/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ObjectStorage defines the object store attachment bytes are streamed through.
// Implemented by the infrastructure layer (S3 and compatible backends).
type ObjectStorage interface {
	// PutObject stores size bytes read from body under key
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error

	// GetObject opens the object stored under key
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)

	// DeleteObject removes the object stored under key
	DeleteObject(ctx context.Context, key string) error
}

// DocumentReader loads the document an attachment belongs to
type DocumentReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*document.Document, error)
}

// UploadRecorder records upload outcomes
type UploadRecorder interface {
	RecordUpload(ctx context.Context, docType document.Type, accepted, rejected int, bytes int64)
}

// ServiceConfig holds upload limits
type ServiceConfig struct {
	UploadConcurrency int
	MaxFilesPerUpload int
}

// DefaultServiceConfig returns the default configuration
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		UploadConcurrency: 4,
		MaxFilesPerUpload: 20,
	}
}

const storageFailureReason = "file could not be stored"

// Service handles document attachment operations
type Service struct {
	attachments attachment.Repository
	documents   DocumentReader
	storage     ObjectStorage
	policy      *attachment.Policy
	config      ServiceConfig
	metrics     UploadRecorder
	logger      *zap.Logger
}

// NewService creates a new attachment Service
func NewService(
	attachments attachment.Repository,
	documents DocumentReader,
	storage ObjectStorage,
	policy *attachment.Policy,
	config ServiceConfig,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.UploadConcurrency <= 0 {
		config.UploadConcurrency = DefaultServiceConfig().UploadConcurrency
	}
	if config.MaxFilesPerUpload <= 0 {
		config.MaxFilesPerUpload = DefaultServiceConfig().MaxFilesPerUpload
	}
	return &Service{
		attachments: attachments,
		documents:   documents,
		storage:     storage,
		policy:      policy,
		config:      config,
		logger:      logger,
	}
}

// SetRecorder sets the metrics sink
func (s *Service) SetRecorder(r UploadRecorder) {
	s.metrics = r
}

// loadDocument returns NotFound when the document is missing or of another type
func (s *Service) loadDocument(ctx context.Context, docType document.Type, id uuid.UUID) (*document.Document, error) {
	doc, err := s.documents.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if docType != "" && doc.Type != docType {
		return nil, shared.NewNotFoundError(string(docType), id)
	}
	return doc, nil
}

// Upload stores a batch of files. Files failing the policy, or failing to
// store, are reported in Rejected while the rest proceed. When ctx ends
// mid-batch the files already stored are discarded and ctx's error is
// returned.
func (s *Service) Upload(ctx context.Context, actor identity.Actor, req UploadRequest) (*UploadResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "attachment", "upload",
		telemetry.AttrDocumentID, req.DocumentID,
		telemetry.AttrDocumentType, string(req.DocumentType),
		telemetry.AttrActorID, actor.UserID,
		telemetry.AttrFileCount, len(req.Files),
	)
	defer span.End()

	doc, err := s.loadDocument(ctx, req.DocumentType, req.DocumentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.policy.EnsureMutable(doc, actor); err != nil {
		return nil, err
	}
	if len(req.Files) == 0 {
		return nil, shared.NewValidationError("at least one file is required")
	}
	if len(req.Files) > s.config.MaxFilesPerUpload {
		return nil, shared.NewValidationError("at most %d files may be uploaded at once", s.config.MaxFilesPerUpload)
	}

	// Slots keep the response in request order.
	uploaded := make([]*attachment.Attachment, len(req.Files))
	reasons := make([]string, len(req.Files))

	g := new(errgroup.Group)
	g.SetLimit(s.config.UploadConcurrency)
	for i, f := range req.Files {
		if reason := s.policy.CheckFile(f.Filename, f.Size, f.MimeType); reason != "" {
			reasons[i] = reason
			continue
		}
		g.Go(func() error {
			a, reason := s.store(ctx, doc, f, req.Description, actor)
			uploaded[i], reasons[i] = a, reason
			return nil
		})
	}
	_ = g.Wait()

	// An abandoned batch leaves nothing behind.
	if err := ctx.Err(); err != nil {
		s.discard(context.WithoutCancel(ctx), uploaded)
		return nil, err
	}

	result := &UploadResult{Uploaded: []AttachmentResponse{}, Rejected: []RejectedFile{}}
	var bytes int64
	for i, f := range req.Files {
		if a := uploaded[i]; a != nil {
			result.Uploaded = append(result.Uploaded, ToAttachmentResponse(a))
			bytes += a.SizeBytes
			continue
		}
		result.Rejected = append(result.Rejected, RejectedFile{Filename: f.Filename, Reason: reasons[i]})
	}

	if s.metrics != nil {
		s.metrics.RecordUpload(ctx, doc.Type, len(result.Uploaded), len(result.Rejected), bytes)
	}
	logger.L(ctx, s.logger).Info("attachments uploaded",
		zap.String("document_id", doc.ID.String()),
		zap.Int("uploaded", len(result.Uploaded)),
		zap.Int("rejected", len(result.Rejected)),
	)
	return result, nil
}

// store puts the object first and inserts the row second. When the insert
// fails the object is removed again.
func (s *Service) store(ctx context.Context, doc *document.Document, f FileUpload, description string, actor identity.Actor) (*attachment.Attachment, string) {
	a, err := attachment.NewAttachment(doc, f.Filename, f.Size, f.MimeType, description, actor.UserID)
	if err != nil {
		var de *shared.DomainError
		if errors.As(err, &de) {
			return nil, de.Message
		}
		return nil, err.Error()
	}

	body, err := f.Open()
	if err != nil {
		logger.L(ctx, s.logger).Warn("failed to open uploaded file", zap.String("filename", f.Filename), zap.Error(err))
		return nil, storageFailureReason
	}
	defer body.Close()

	if err := s.storage.PutObject(ctx, a.StorageKey, body, f.Size, f.MimeType); err != nil {
		logger.L(ctx, s.logger).Error("failed to store attachment object",
			zap.String("storage_key", a.StorageKey),
			zap.Error(err))
		return nil, storageFailureReason
	}

	if err := s.attachments.Create(ctx, a); err != nil {
		logger.L(ctx, s.logger).Error("failed to insert attachment row",
			zap.String("storage_key", a.StorageKey),
			zap.Error(err))
		s.removeObject(context.WithoutCancel(ctx), a.StorageKey)
		return nil, storageFailureReason
	}
	return a, ""
}

// Delete removes an attachment row and then its object
func (s *Service) Delete(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "attachment", "delete",
		telemetry.AttrActorID, actor.UserID)
	defer span.End()

	a, err := s.attachments.FindByID(ctx, id)
	if err != nil {
		return err
	}
	doc, err := s.documents.FindByID(ctx, a.DocumentID)
	if err != nil {
		return err
	}
	if err := s.policy.EnsureMutable(doc, actor); err != nil {
		return err
	}

	if err := s.attachments.Delete(ctx, a.ID); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	s.removeObject(ctx, a.StorageKey)
	return nil
}

// List returns the attachments of a document the actor can read
func (s *Service) List(ctx context.Context, actor identity.Actor, docType document.Type, documentID uuid.UUID) ([]AttachmentResponse, error) {
	doc, err := s.loadDocument(ctx, docType, documentID)
	if err != nil {
		return nil, err
	}
	if err := doc.EnsureReadable(actor); err != nil {
		return nil, err
	}

	items, err := s.attachments.FindByDocument(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	return ToAttachmentResponses(items), nil
}

// Download opens the stored object. Filename and MIME type are returned
// exactly as they were uploaded.
func (s *Service) Download(ctx context.Context, actor identity.Actor, id uuid.UUID) (*Download, error) {
	a, err := s.attachments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	doc, err := s.documents.FindByID(ctx, a.DocumentID)
	if err != nil {
		return nil, err
	}
	if err := doc.EnsureReadable(actor); err != nil {
		return nil, err
	}

	body, err := s.storage.GetObject(ctx, a.StorageKey)
	if err != nil {
		return nil, shared.NewStorageError("open attachment", err)
	}
	return &Download{
		Body:     body,
		Filename: a.OriginalFilename,
		MimeType: a.MimeType,
		Size:     a.SizeBytes,
	}, nil
}

// RemoveObjects removes the objects behind attachment rows that are already
// gone, such as those of a deleted draft. Failures are logged.
func (s *Service) RemoveObjects(ctx context.Context, keys []string) {
	for _, key := range keys {
		s.removeObject(ctx, key)
	}
}

// discard deletes the rows and objects stored by an abandoned upload. A row
// that cannot be deleted keeps its object so it stays downloadable.
func (s *Service) discard(ctx context.Context, stored []*attachment.Attachment) {
	for _, a := range stored {
		if a == nil {
			continue
		}
		if err := s.attachments.Delete(ctx, a.ID); err != nil {
			logger.L(ctx, s.logger).Error("failed to discard attachment row",
				zap.String("attachment_id", a.ID.String()),
				zap.Error(err))
			continue
		}
		s.removeObject(ctx, a.StorageKey)
	}
}

func (s *Service) removeObject(ctx context.Context, key string) {
	if err := s.storage.DeleteObject(ctx, key); err != nil {
		logger.L(ctx, s.logger).Warn("failed to remove attachment object",
			zap.String("storage_key", key),
			zap.Error(err))
	}
}
