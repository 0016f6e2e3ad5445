package document

import (
	"context"
	"strings"
	"time"

	appnotification "github.com/bapx/backend/internal/application/notification"
	"github.com/bapx/backend/internal/domain/document"
	"github.com/bapx/backend/internal/domain/identity"
	"github.com/bapx/backend/internal/domain/notification"
	"github.com/bapx/backend/internal/domain/shared"
	"github.com/bapx/backend/internal/infrastructure/logger"
	"github.com/bapx/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// NotificationDispatcher turns an accepted transition into notifications
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, tc appnotification.TransitionContext) ([]*notification.Notification, error)
}

// ObjectRemover removes the stored objects of attachments whose rows are gone
type ObjectRemover interface {
	RemoveObjects(ctx context.Context, keys []string)
}

const (
	// maxCreateAttempts bounds the redraws when a number is taken by a
	// concurrent create
	maxCreateAttempts = 10

	defaultDispatchTimeout = 5 * time.Second
)

// Service handles document business operations
type Service struct {
	repo            document.Repository
	dispatcher      NotificationDispatcher
	objects         ObjectRemover
	eventPublisher  shared.EventPublisher
	dispatchTimeout time.Duration
	logger          *zap.Logger
}

// NewService creates a new document Service
func NewService(
	repo document.Repository,
	dispatcher NotificationDispatcher,
	objects ObjectRemover,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:            repo,
		dispatcher:      dispatcher,
		objects:         objects,
		dispatchTimeout: defaultDispatchTimeout,
		logger:          logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetDispatchTimeout bounds how long recipients are notified after a
// transition commits
func (s *Service) SetDispatchTimeout(d time.Duration) {
	if d > 0 {
		s.dispatchTimeout = d
	}
}

// Create creates a new draft. Only vendors author documents.
func (s *Service) Create(ctx context.Context, actor identity.Actor, req CreateDocumentRequest, lang language.Tag) (*DocumentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "document", "create",
		telemetry.AttrActorID, actor.UserID,
		telemetry.AttrActorRole, string(actor.Role),
	)
	defer span.End()

	if actor.Role != identity.RoleVendor {
		return nil, shared.NewUnauthorizedRoleError("role %s may not create documents; requires %s", actor.Role, identity.RoleVendor)
	}
	docType, ok := document.ParseType(req.DocumentType)
	if !ok {
		return nil, shared.NewValidationError("unknown document type %q", req.DocumentType)
	}

	fields := toFields(req.Title, req.Description, req.LineItems)
	var d *document.Document
	for attempt := 1; ; attempt++ {
		number, err := s.repo.GenerateNumber(ctx, docType)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if d, err = document.NewDocument(docType, number, actor.UserID, fields); err != nil {
			return nil, err
		}
		err = s.repo.Create(ctx, d)
		if err == nil {
			break
		}
		if !shared.IsCode(err, shared.CodeAlreadyExists) || attempt == maxCreateAttempts {
			telemetry.RecordError(span, err)
			return nil, err
		}
		logger.L(ctx, s.logger).Debug("document number taken, drawing another",
			zap.String("document_number", number),
			zap.Int("attempt", attempt))
	}
	telemetry.SetAttributes(span,
		telemetry.AttrDocumentID, d.ID,
		telemetry.AttrDocumentNumber, d.Number,
	)

	s.publishEvents(ctx, d)

	logger.L(ctx, s.logger).Info("document created",
		zap.String("document_id", d.ID.String()),
		zap.String("document_number", d.Number),
		zap.String("document_type", string(d.Type)),
	)

	resp := ToDocumentResponse(d, actor, lang)
	return &resp, nil
}

// Update replaces the content of a draft owned by actor
func (s *Service) Update(ctx context.Context, actor identity.Actor, id uuid.UUID, req UpdateDocumentRequest, lang language.Tag) (*DocumentResponse, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	expected := d.Version
	if err := d.UpdateDraft(actor, toFields(req.Title, req.Description, req.LineItems)); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateDraft(ctx, d, expected); err != nil {
		return nil, err
	}

	resp := ToDocumentResponse(d, actor, lang)
	return &resp, nil
}

// Delete removes a draft owned by actor together with its attachments.
// Objects are removed only after the rows are gone.
func (s *Service) Delete(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "document", "delete",
		telemetry.AttrDocumentID, id,
		telemetry.AttrActorID, actor.UserID,
	)
	defer span.End()

	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := d.MarkDeleted(actor); err != nil {
		return err
	}

	keys, err := s.repo.Delete(ctx, d)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if s.objects != nil && len(keys) > 0 {
		s.objects.RemoveObjects(context.WithoutCancel(ctx), keys)
	}

	s.publishEvents(ctx, d)

	logger.L(ctx, s.logger).Info("document deleted",
		zap.String("document_id", d.ID.String()),
		zap.String("document_number", d.Number),
		zap.Int("attachments", len(keys)),
	)
	return nil
}

// GetByID returns a document the actor can read
func (s *Service) GetByID(ctx context.Context, actor identity.Actor, id uuid.UUID, lang language.Tag) (*DocumentResponse, error) {
	d, err := s.readable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	resp := ToDocumentResponse(d, actor, lang)
	return &resp, nil
}

// List returns a page of the documents visible to actor
func (s *Service) List(ctx context.Context, actor identity.Actor, q ListQuery, lang language.Tag) (*DocumentListResponse, error) {
	filter, err := visibleTo(actor)
	if err != nil {
		return nil, err
	}

	if q.DocumentType != "" {
		t, ok := document.ParseType(q.DocumentType)
		if !ok {
			return nil, shared.NewValidationError("unknown document type %q", q.DocumentType)
		}
		filter.Type = &t
	}
	statuses, unknown := document.ParseStatuses(q.Statuses)
	if unknown != "" {
		return nil, shared.NewValidationError("unknown status %q", unknown)
	}
	filter.Statuses = statuses

	filter.Page = q.Page
	filter.PageSize = q.Limit
	filter.Search = strings.TrimSpace(q.Search)
	if q.OrderBy != "" {
		filter.OrderBy = q.OrderBy
	}
	if q.OrderDir != "" {
		filter.OrderDir = q.OrderDir
	}
	filter.Filter = filter.Filter.Normalize()

	docs, total, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]DocumentResponse, len(docs))
	for i, d := range docs {
		items[i] = ToDocumentResponse(d, actor, lang)
	}
	resp := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &resp, nil
}

// History returns the transition log of a document the actor can read
func (s *Service) History(ctx context.Context, actor identity.Actor, id uuid.UUID, lang language.Tag) ([]HistoryEntry, error) {
	d, err := s.readable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	log, err := s.repo.FindTransitions(ctx, d.ID)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, len(log))
	for i, t := range log {
		entries[i] = HistoryEntry{
			ID:         t.ID,
			FromStatus: t.From,
			ToStatus:   t.To,
			ToLabel:    document.ProjectStatus(d.Type, t.To, lang).Label,
			ActorID:    t.ActorID,
			ActorRole:  t.ActorRole,
			Note:       t.Note,
			CreatedAt:  t.CreatedAt,
		}
	}
	return entries, nil
}

// Summary counts the documents visible to actor per category. Counts are
// recomputed from the store on every call.
func (s *Service) Summary(ctx context.Context, actor identity.Actor) (*SummaryResponse, error) {
	filter, err := visibleTo(actor)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.CountByStatus(ctx, filter)
	if err != nil {
		return nil, err
	}

	byType := make(map[document.Type][]document.StatusCount)
	for _, r := range rows {
		byType[r.Type] = append(byType[r.Type], r)
	}
	resp := &SummaryResponse{
		Counts: document.AggregateStatusCounts(rows),
		ByType: make(map[document.Type]document.Counts, len(document.AllTypes)),
	}
	for _, t := range document.AllTypes {
		resp.ByType[t] = document.AggregateStatusCounts(byType[t])
	}
	return resp, nil
}

// readable loads a document and applies the read rule
func (s *Service) readable(ctx context.Context, actor identity.Actor, id uuid.UUID) (*document.Document, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := d.EnsureReadable(actor); err != nil {
		return nil, err
	}
	return d, nil
}

// visibleTo returns the base filter for the documents actor may see:
// vendors their own, reviewers everything past draft.
func visibleTo(actor identity.Actor) (document.ListFilter, error) {
	filter := document.ListFilter{Filter: shared.DefaultFilter()}
	switch {
	case actor.Role == identity.RoleVendor:
		owner := actor.UserID
		filter.OwnerID = &owner
	case actor.Role.IsReviewer():
		filter.ExcludeDraft = true
	default:
		return filter, shared.NewUnauthorizedRoleError("role %q may not list documents", actor.Role)
	}
	return filter, nil
}

// publishEvents publishes and clears the pending events of d. Failures are
// logged; the stored change stands.
func (s *Service) publishEvents(ctx context.Context, d *document.Document) {
	events := d.GetDomainEvents()
	d.ClearDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		logger.L(ctx, s.logger).Warn("failed to publish document events",
			zap.String("document_id", d.ID.String()),
			zap.Error(err))
	}
}
