package document

import (
	"context"

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

// WarningNotificationFailed is reported when an accepted transition could
// not notify its recipients.
const WarningNotificationFailed = "notifications could not be delivered for this transition"

// ApplyTransition moves a document along one edge of its pipeline.
//
// The status change is committed before recipients are notified. Dispatch
// runs detached from the caller's cancellation, bounded by the dispatch
// timeout, so a client that hangs up after the commit still gets its
// recipients notified. A dispatch failure marks the result as degraded and
// never rolls the document back.
func (s *Service) ApplyTransition(
	ctx context.Context,
	actor identity.Actor,
	id uuid.UUID,
	req TransitionRequest,
	lang language.Tag,
) (*TransitionResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "document", "transition",
		telemetry.AttrDocumentID, id,
		telemetry.AttrActorID, actor.UserID,
		telemetry.AttrActorRole, string(actor.Role),
		telemetry.AttrToStatus, req.TargetStatus,
	)
	defer span.End()

	target := document.Status(req.TargetStatus)
	if !target.IsValid() {
		return nil, shared.NewValidationError("unknown target status %q", req.TargetStatus)
	}

	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.AttrDocumentType, string(d.Type),
		telemetry.AttrDocumentNumber, d.Number,
		telemetry.AttrFromStatus, string(d.Status),
	)

	tr, err := d.Transition(actor, target, req.payload())
	if err != nil {
		logger.L(ctx, s.logger).Info("transition rejected",
			zap.String("document_id", d.ID.String()),
			zap.String("from", string(d.Status)),
			zap.String("to", string(target)),
			zap.String("actor_role", string(actor.Role)),
			zap.Error(err))
		return nil, err
	}

	if err := s.repo.SaveTransition(ctx, d, tr); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	log := logger.L(ctx, s.logger)
	log.Info("document transitioned",
		zap.String("document_id", d.ID.String()),
		zap.String("document_number", d.Number),
		zap.Stringer("transition", tr),
	)

	result := &TransitionResult{}
	if s.dispatcher != nil {
		created, err := s.dispatch(ctx, appnotification.TransitionContext{
			Document: d,
			From:     tr.From,
			To:       tr.To,
			ActorID:  actor.UserID,
		})
		if err != nil {
			telemetry.AddEvent(span, "notification.dispatch_failed", "error", err.Error())
			log.Error("failed to dispatch notifications",
				zap.String("document_id", d.ID.String()),
				zap.String("to", string(tr.To)),
				zap.Error(err))
			result.Degraded = true
			result.Warnings = append(result.Warnings, WarningNotificationFailed)
		} else {
			result.Notified = len(created)
		}
	}

	s.publishEvents(ctx, d)

	result.Document = ToDocumentResponse(d, actor, lang)
	return result, nil
}

// dispatch notifies the recipients of a committed transition
func (s *Service) dispatch(ctx context.Context, tc appnotification.TransitionContext) ([]*notification.Notification, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.dispatchTimeout)
	defer cancel()
	return s.dispatcher.Dispatch(ctx, tc)
}
