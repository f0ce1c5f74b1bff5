package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventReportExplained = "report.explained"
	EventReportFailed    = "report.failed"
	EventTopicExplained  = "report.topic.explained"
)

// Exchange names
const (
	ExchangeReportEvents = "report.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// StageOutcome describes how one pipeline stage ended. It never carries
// prompt or completion text.
type StageOutcome struct {
	Stage      string `json:"stage"`
	Outcome    string `json:"outcome"`
	Reason     string `json:"reason,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// ReportExplainedEvent is published after a successful pipeline run
type ReportExplainedEvent struct {
	RequestID      string         `json:"request_id"`
	DocumentBytes  int            `json:"document_bytes"`
	PageCount      int            `json:"page_count"`
	Extractor      string         `json:"extractor"`
	Stages         []StageOutcome `json:"stages"`
	ImageAttempted bool           `json:"image_attempted"`
	ImageGenerated bool           `json:"image_generated"`
	DurationMs     int64          `json:"duration_ms"`
}

// ReportFailedEvent is published when the pipeline aborts with a hard error
type ReportFailedEvent struct {
	RequestID  string         `json:"request_id"`
	Kind       string         `json:"kind"`
	Stage      string         `json:"stage"`
	Stages     []StageOutcome `json:"stages,omitempty"`
	DurationMs int64          `json:"duration_ms"`
}

// TopicExplainedEvent is published after an additional-info lookup
type TopicExplainedEvent struct {
	RequestID  string `json:"request_id"`
	Succeeded  bool   `json:"succeeded"`
	DurationMs int64  `json:"duration_ms"`
}
