// Package audit emits operational events from the analysis pipeline.
// Events are advisory: a sink that fails must never fail the run that
// produced the event.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event types recorded by the pipeline.
const (
	EventLowCoverage    = "registry.low_coverage"
	EventOcrDivergence  = "ocr.divergence"
	EventPageFailure    = "ocr.page_failure"
	EventMarketDegraded = "market.degraded"
	EventStageFailed    = "stage.failed"
	EventRunCompleted   = "run.completed"
)

// Severity levels for events.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Event is a single audit record tied to a case.
type Event struct {
	ID       string                 `json:"id"`
	Type     string                 `json:"type"`
	Severity string                 `json:"severity"`
	CaseID   string                 `json:"case_id"`
	At       time.Time              `json:"at"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Sink receives audit events. Implementations must not block the
// caller for long and must swallow their own failures.
type Sink interface {
	Record(ctx context.Context, event Event)
}

// LogSink writes events to a structured logger.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink backed by the given logger.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Record stamps the event with an ID and timestamp and logs it.
func (s *LogSink) Record(_ context.Context, event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.String("case_id", event.CaseID),
		zap.Time("at", event.At),
	}
	if len(event.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", event.Metadata))
	}

	switch event.Severity {
	case SeverityError:
		s.logger.Error("audit event", fields...)
	case SeverityWarning:
		s.logger.Warn("audit event", fields...)
	default:
		s.logger.Info("audit event", fields...)
	}
}

// Nop discards all events.
type Nop struct{}

// Record implements Sink.
func (Nop) Record(context.Context, Event) {}
