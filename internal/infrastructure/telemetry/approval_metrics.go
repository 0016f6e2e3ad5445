package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/bapx/backend/internal/domain/document"
	"github.com/bapx/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	MetricAttrDocumentType = attribute.Key("document_type")
	MetricAttrFromStatus   = attribute.Key("from_status")
	MetricAttrToStatus     = attribute.Key("to_status")
	MetricAttrRole         = attribute.Key("role")
	MetricAttrOutcome      = attribute.Key("outcome")
)

// ApprovalMetrics records pipeline, notification and attachment counters.
// It subscribes to document events on the event bus and is called
// directly by the notification and attachment services.
type ApprovalMetrics struct {
	documentsCreated  metric.Int64Counter
	transitions       metric.Int64Counter
	notifications     metric.Int64Counter
	dispatchFailures  metric.Int64Counter
	dispatchDuration  metric.Float64Histogram
	attachmentFiles   metric.Int64Counter
	attachmentBytes   metric.Int64Counter
	streamSubscribers metric.Int64UpDownCounter
}

// NewApprovalMetrics creates every instrument on meter
func NewApprovalMetrics(meter metric.Meter) (*ApprovalMetrics, error) {
	if meter == nil {
		return nil, errors.New("NewApprovalMetrics: meter cannot be nil")
	}
	m := &ApprovalMetrics{}
	var err error

	if m.documentsCreated, err = meter.Int64Counter("bapx_documents_created_total",
		metric.WithDescription("Documents created by vendors")); err != nil {
		return nil, err
	}
	if m.transitions, err = meter.Int64Counter("bapx_document_transitions_total",
		metric.WithDescription("Accepted pipeline transitions")); err != nil {
		return nil, err
	}
	if m.notifications, err = meter.Int64Counter("bapx_notifications_created_total",
		metric.WithDescription("Notifications written by the dispatcher")); err != nil {
		return nil, err
	}
	if m.dispatchFailures, err = meter.Int64Counter("bapx_notification_dispatch_failures_total",
		metric.WithDescription("Dispatches that failed after the transition committed")); err != nil {
		return nil, err
	}
	if m.dispatchDuration, err = meter.Float64Histogram("bapx_notification_dispatch_duration_seconds",
		metric.WithDescription("Time spent resolving and writing notifications"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5)); err != nil {
		return nil, err
	}
	if m.attachmentFiles, err = meter.Int64Counter("bapx_attachment_files_total",
		metric.WithDescription("Uploaded files by outcome")); err != nil {
		return nil, err
	}
	if m.attachmentBytes, err = meter.Int64Counter("bapx_attachment_bytes_total",
		metric.WithDescription("Bytes written to object storage"),
		metric.WithUnit("By")); err != nil {
		return nil, err
	}
	if m.streamSubscribers, err = meter.Int64UpDownCounter("bapx_notification_stream_subscribers",
		metric.WithDescription("Open notification streams")); err != nil {
		return nil, err
	}
	return m, nil
}

// EventTypes implements shared.EventHandler
func (m *ApprovalMetrics) EventTypes() []string {
	return []string{document.EventTypeDocumentCreated, document.EventTypeDocumentTransitioned}
}

// Handle implements shared.EventHandler
func (m *ApprovalMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *document.DocumentCreatedEvent:
		m.documentsCreated.Add(ctx, 1, metric.WithAttributes(MetricAttrDocumentType.String(string(e.DocumentType))))
	case *document.DocumentTransitionedEvent:
		m.transitions.Add(ctx, 1, metric.WithAttributes(
			MetricAttrDocumentType.String(string(e.DocumentType)),
			MetricAttrFromStatus.String(string(e.From)),
			MetricAttrToStatus.String(string(e.To)),
			MetricAttrRole.String(string(e.ActorRole)),
		))
	}
	return nil
}

// RecordDispatch records one dispatcher run
func (m *ApprovalMetrics) RecordDispatch(ctx context.Context, docType document.Type, to document.Status, written int, elapsed time.Duration, err error) {
	attrs := metric.WithAttributes(
		MetricAttrDocumentType.String(string(docType)),
		MetricAttrToStatus.String(string(to)),
	)
	m.dispatchDuration.Record(ctx, elapsed.Seconds(), attrs)
	if err != nil {
		m.dispatchFailures.Add(ctx, 1, attrs)
		return
	}
	m.notifications.Add(ctx, int64(written), attrs)
}

// RecordUpload records the outcome of one multi-file upload
func (m *ApprovalMetrics) RecordUpload(ctx context.Context, docType document.Type, accepted, rejected int, bytes int64) {
	typeAttr := MetricAttrDocumentType.String(string(docType))
	if accepted > 0 {
		m.attachmentFiles.Add(ctx, int64(accepted), metric.WithAttributes(typeAttr, MetricAttrOutcome.String("accepted")))
		m.attachmentBytes.Add(ctx, bytes, metric.WithAttributes(typeAttr))
	}
	if rejected > 0 {
		m.attachmentFiles.Add(ctx, int64(rejected), metric.WithAttributes(typeAttr, MetricAttrOutcome.String("rejected")))
	}
}

// StreamOpened counts a new notification stream
func (m *ApprovalMetrics) StreamOpened(ctx context.Context) {
	m.streamSubscribers.Add(ctx, 1)
}

// StreamClosed counts a closed notification stream
func (m *ApprovalMetrics) StreamClosed(ctx context.Context) {
	m.streamSubscribers.Add(ctx, -1)
}

var _ shared.EventHandler = (*ApprovalMetrics)(nil)
