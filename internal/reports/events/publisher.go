package events

import (
	"context"
	"errors"
	"time"

	"github.com/medflow/report-explainer/internal/reports/domain"
	"github.com/medflow/report-explainer/pkg/logger"
	"github.com/medflow/report-explainer/pkg/messaging"
)

// publishTimeout bounds how long an outcome event may delay a response
const publishTimeout = 2 * time.Second

// Publisher is the subset of messaging.Publisher used here
type Publisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// ReportEventPublisher publishes pipeline outcome events. A nil
// *ReportEventPublisher drops every event.
type ReportEventPublisher struct {
	publisher Publisher
	logger    *logger.Logger
}

// NewReportEventPublisher creates a publisher on the report exchange
func NewReportEventPublisher(rmq *messaging.RabbitMQ, exchange string, log *logger.Logger) (*ReportEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, exchange, "report-service", log)
	if err != nil {
		return nil, err
	}

	return NewWithPublisher(publisher, log), nil
}

// NewWithPublisher wraps an existing publisher
func NewWithPublisher(p Publisher, log *logger.Logger) *ReportEventPublisher {
	return &ReportEventPublisher{
		publisher: p,
		logger:    log,
	}
}

// RunSucceeded publishes a report explained event
func (p *ReportEventPublisher) RunSucceeded(ctx context.Context, trace *domain.Trace) {
	if p == nil {
		return
	}

	data := messaging.ReportExplainedEvent{
		RequestID:      trace.RequestID,
		DocumentBytes:  trace.DocumentBytes,
		PageCount:      trace.PageCount,
		Extractor:      trace.Extractor,
		Stages:         stageOutcomes(trace),
		ImageAttempted: trace.ImageAttempted,
		ImageGenerated: trace.ImageGenerated,
		DurationMs:     trace.Elapsed().Milliseconds(),
	}

	p.publish(ctx, messaging.EventReportExplained, trace.RequestID, data)
}

// RunFailed publishes a report failed event
func (p *ReportEventPublisher) RunFailed(ctx context.Context, trace *domain.Trace, err error) {
	if p == nil {
		return
	}

	data := messaging.ReportFailedEvent{
		RequestID:  trace.RequestID,
		Kind:       "internal",
		Stages:     stageOutcomes(trace),
		DurationMs: trace.Elapsed().Milliseconds(),
	}

	var pe *domain.PipelineError
	if errors.As(err, &pe) {
		data.Kind = string(pe.Kind)
		data.Stage = pe.Stage
	}

	p.publish(ctx, messaging.EventReportFailed, trace.RequestID, data)
}

// TopicExplained publishes a topic lookup event
func (p *ReportEventPublisher) TopicExplained(ctx context.Context, requestID string, succeeded bool, elapsed time.Duration) {
	if p == nil {
		return
	}

	data := messaging.TopicExplainedEvent{
		RequestID:  requestID,
		Succeeded:  succeeded,
		DurationMs: elapsed.Milliseconds(),
	}

	p.publish(ctx, messaging.EventTopicExplained, requestID, data)
}

// publish detaches from the request so a client hang-up does not drop
// the event
func (p *ReportEventPublisher) publish(ctx context.Context, eventType, requestID string, data interface{}) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	pctx = messaging.WithCorrelationID(pctx, requestID)

	if err := p.publisher.Publish(pctx, eventType, data); err != nil {
		p.logger.Error().Err(err).
			Str("request_id", requestID).
			Str("event_type", eventType).
			Msg("failed to publish report event")
	}
}

func stageOutcomes(trace *domain.Trace) []messaging.StageOutcome {
	stages := trace.Stages()
	out := make([]messaging.StageOutcome, 0, len(stages))
	for _, st := range stages {
		out = append(out, messaging.StageOutcome{
			Stage:      string(st.Stage),
			Outcome:    string(st.Outcome),
			Reason:     string(st.Reason),
			DurationMs: st.Duration.Milliseconds(),
		})
	}
	return out
}
