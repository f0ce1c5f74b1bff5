package domain

import (
	"sync"
	"time"
)

// DocumentFormat identifies how an uploaded blob is parsed
type DocumentFormat string

const (
	FormatUnknown   DocumentFormat = ""
	FormatPDF       DocumentFormat = "application/pdf"
	FormatPlainText DocumentFormat = "text/plain"
)

// StageName names one generative step of the pipeline
type StageName string

const (
	StageExplanation    StageName = "explanation"
	StageConciseSummary StageName = "concise_summary"
	StageImagePrompt    StageName = "image_prompt"
	StageImage          StageName = "image"
	StageTopic          StageName = "topic"
)

// Outcome is the tag of a StageResult
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeDegraded Outcome = "degraded"
)

// DegradeReason explains why a stage produced no usable text
type DegradeReason string

const (
	ReasonNone          DegradeReason = ""
	ReasonNoText        DegradeReason = "no_text"
	ReasonFailed        DegradeReason = "failed"
	ReasonTimeout       DegradeReason = "timeout"
	ReasonEmptyResponse DegradeReason = "empty_response"
)

// UploadRequest is one inbound explanation request. Exactly one of
// Document and SourceURL is set.
type UploadRequest struct {
	Document    []byte         `form:"file" validate:"required_without=SourceURL,excluded_with=SourceURL"`
	Instruction string         `form:"message" validate:"required,max=4000"`
	SourceURL   string         `form:"url" validate:"omitempty,url"`
	Format      DocumentFormat `form:"-"`
	RequestID   string         `form:"-"`
}

// ExtractedDocument is the plain text recovered from a document
type ExtractedDocument struct {
	Text       string
	ByteLength int
	PageCount  int
	Extractor  string
}

// StageResult is either Ok with generated text or Degraded with a reason.
// A degraded result may still carry a fallback Text.
type StageResult struct {
	Stage    StageName
	Text     string
	Outcome  Outcome
	Reason   DegradeReason
	Duration time.Duration
}

// Ok builds a successful stage result
func Ok(stage StageName, text string, d time.Duration) StageResult {
	return StageResult{Stage: stage, Text: text, Outcome: OutcomeOK, Duration: d}
}

// Degraded builds a degraded stage result carrying the fallback text
func Degraded(stage StageName, reason DegradeReason, fallback string, d time.Duration) StageResult {
	return StageResult{Stage: stage, Text: fallback, Outcome: OutcomeDegraded, Reason: reason, Duration: d}
}

// IsOK reports whether the stage produced usable text
func (r StageResult) IsOK() bool {
	return r.Outcome == OutcomeOK
}

// ImageResult is present only when image synthesis was attempted
type ImageResult struct {
	Reference *string
	Succeeded bool
	Duration  time.Duration
}

// PipelineResponse is the body returned to the caller
type PipelineResponse struct {
	Response string  `json:"response"`
	Image    *string `json:"image"`
}

// TopicInfo is the body returned by the additional-info endpoint
type TopicInfo struct {
	Info string `json:"info"`
}

// StageTrace is the text-free record of one stage
type StageTrace struct {
	Stage    StageName
	Outcome  Outcome
	Reason   DegradeReason
	Duration time.Duration
}

// Trace records what happened during one pipeline invocation. It never
// holds document or generated text. Safe for concurrent use.
type Trace struct {
	RequestID      string
	DocumentBytes  int
	PageCount      int
	Extractor      string
	ImageAttempted bool
	ImageGenerated bool
	Started        time.Time

	mu     sync.Mutex
	stages []StageTrace
}

// NewTrace starts a trace for the given request
func NewTrace(requestID string) *Trace {
	return &Trace{RequestID: requestID, Started: time.Now()}
}

// Record appends the outcome of a stage
func (t *Trace) Record(r StageResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stages = append(t.stages, StageTrace{
		Stage:    r.Stage,
		Outcome:  r.Outcome,
		Reason:   r.Reason,
		Duration: r.Duration,
	})
}

// RecordImage stores the image stage outcome
func (t *Trace) RecordImage(img *ImageResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ImageAttempted = img != nil
	t.ImageGenerated = img != nil && img.Succeeded
	if img == nil {
		return
	}
	st := StageTrace{Stage: StageImage, Outcome: OutcomeOK, Duration: img.Duration}
	if !img.Succeeded {
		st.Outcome = OutcomeDegraded
		st.Reason = ReasonFailed
	}
	t.stages = append(t.stages, st)
}

// Stages returns a copy of the recorded stage outcomes
func (t *Trace) Stages() []StageTrace {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]StageTrace, len(t.stages))
	copy(out, t.stages)
	return out
}

// Elapsed returns the time since the trace started
func (t *Trace) Elapsed() time.Duration {
	return time.Since(t.Started)
}
