package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/medflow/report-explainer/internal/reports/domain"
	"github.com/medflow/report-explainer/internal/reports/prompt"
)

// ExplainTopic answers the additional-info question for one topic. The
// topic stage is hard: any failure is a GenerationError.
func (o *Orchestrator) ExplainTopic(ctx context.Context, requestID, topic string) (*domain.TopicInfo, error) {
	log := o.log.WithRequestID(requestID)
	start := time.Now()

	if strings.TrimSpace(topic) == "" {
		return nil, domain.ValidationError(map[string]string{"topic": "this field is required"})
	}

	trace := domain.NewTrace(requestID)
	result, err := o.runStage(ctx, log, trace, o.settings.Topic, prompt.Topic(topic))

	if o.deps.Events != nil && ctx.Err() == nil {
		o.deps.Events.TopicExplained(ctx, requestID, err == nil, time.Since(start))
	}
	if err != nil {
		return nil, err
	}

	return &domain.TopicInfo{Info: result.Text}, nil
}
