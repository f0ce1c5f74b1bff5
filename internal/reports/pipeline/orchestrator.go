package pipeline

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/medflow/report-explainer/internal/reports/domain"
	"github.com/medflow/report-explainer/internal/reports/generative"
	"github.com/medflow/report-explainer/internal/reports/prompt"
	"github.com/medflow/report-explainer/internal/reports/storage"
	"github.com/medflow/report-explainer/pkg/httputil"
	"github.com/medflow/report-explainer/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Extractor turns document bytes into text
type Extractor interface {
	Extract(ctx context.Context, data []byte, format domain.DocumentFormat) (*domain.ExtractedDocument, error)
}

// Fetcher downloads a document referenced by URL
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*storage.Buffer, domain.DocumentFormat, error)
}

// EventSink receives text-free outcome records
type EventSink interface {
	RunSucceeded(ctx context.Context, trace *domain.Trace)
	RunFailed(ctx context.Context, trace *domain.Trace, err error)
	TopicExplained(ctx context.Context, requestID string, succeeded bool, elapsed time.Duration)
}

// Deps are the collaborators of the orchestrator. Fetcher, Image and
// Events may be nil.
type Deps struct {
	Extractor Extractor
	Fetcher   Fetcher
	Text      generative.TextClient
	Image     generative.ImageClient
	Events    EventSink
}

// Orchestrator runs the document-to-explanation pipeline
type Orchestrator struct {
	deps     Deps
	settings Settings
	validate *validator.Validate
	log      *logger.Logger
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(deps Deps, settings Settings, log *logger.Logger) *Orchestrator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Orchestrator{
		deps:     deps,
		settings: settings,
		validate: v,
		log:      log.WithComponent("pipeline"),
	}
}

// Run validates the request, extracts the document text and runs the
// generative stages. The request's document bytes are zeroed before Run
// returns. If ctx is cancelled Run returns ctx.Err().
func (o *Orchestrator) Run(ctx context.Context, req *domain.UploadRequest) (*domain.PipelineResponse, error) {
	doc := storage.NewBuffer(req.Document)
	defer doc.Release()

	trace := domain.NewTrace(req.RequestID)
	log := o.log.WithRequestID(req.RequestID)

	if err := o.validateRequest(req); err != nil {
		log.Info().Err(err).Msg("request rejected")
		return nil, err
	}

	extracted, err := o.ingest(ctx, req, doc)
	if err != nil {
		return nil, o.fail(ctx, log, trace, err)
	}
	trace.DocumentBytes = extracted.ByteLength
	trace.PageCount = extracted.PageCount
	trace.Extractor = extracted.Extractor

	explanation, image, err := o.generate(ctx, log, trace, extracted.Text, req.Instruction)
	if err != nil {
		return nil, o.fail(ctx, log, trace, err)
	}

	resp, err := Assemble(explanation, image)
	if err != nil {
		return nil, o.fail(ctx, log, trace, err)
	}

	log.Info().
		Int("pages", trace.PageCount).
		Str("extractor", trace.Extractor).
		Bool("image", resp.Image != nil).
		Dur("duration", trace.Elapsed()).
		Msg("report explained")

	if o.deps.Events != nil {
		o.deps.Events.RunSucceeded(ctx, trace)
	}
	return resp, nil
}

func (o *Orchestrator) validateRequest(req *domain.UploadRequest) error {
	if len(req.Document) == 0 {
		req.Document = nil
	}

	err := o.validate.Struct(req)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return domain.ValidationError(map[string]string{"request": err.Error()})
	}

	details := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		details[e.Field()] = httputil.FormatValidationError(e)
	}
	return domain.ValidationError(details)
}

// ingest resolves the document bytes and extracts their text. Every
// buffer it touches is released before it returns.
func (o *Orchestrator) ingest(ctx context.Context, req *domain.UploadRequest, doc *storage.Buffer) (*domain.ExtractedDocument, error) {
	format := req.Format

	if req.SourceURL != "" {
		if o.deps.Fetcher == nil {
			return nil, domain.ExtractionError("ingest", errors.New("source URLs are not supported"))
		}
		httputil.MarkStage(ctx, "fetch")
		fetched, fetchedFormat, err := o.deps.Fetcher.Fetch(ctx, req.SourceURL)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, domain.ExtractionError("ingest", err)
		}
		defer fetched.Release()

		doc = fetched
		if format == domain.FormatUnknown {
			format = fetchedFormat
		}
	}

	httputil.MarkStage(ctx, "extraction")
	ectx, cancel := context.WithTimeout(ctx, o.settings.ExtractionTimeout)
	defer cancel()

	extracted, err := o.deps.Extractor.Extract(ectx, doc.Bytes(), format)
	doc.Release()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var pe *domain.PipelineError
		if errors.As(err, &pe) {
			return nil, err
		}
		return nil, domain.ExtractionError("extract", err)
	}
	return extracted, nil
}

// generate runs the explanation branch and the caption-to-image branch,
// concurrently unless disabled in settings.
func (o *Orchestrator) generate(ctx context.Context, log *logger.Logger, trace *domain.Trace, text, instruction string) (domain.StageResult, *domain.ImageResult, error) {
	var (
		explanation domain.StageResult
		image       *domain.ImageResult
	)

	explain := func(ctx context.Context) error {
		var err error
		explanation, err = o.runStage(ctx, log, trace, o.settings.Explanation, prompt.Explanation(text, instruction))
		return err
	}

	if o.settings.Concurrent {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return explain(gctx) })
		g.Go(func() error {
			image = o.illustrate(gctx, log, trace, text)
			return nil
		})
		if err := g.Wait(); err != nil {
			return explanation, nil, err
		}
	} else {
		if err := explain(ctx); err != nil {
			return explanation, nil, err
		}
		image = o.illustrate(ctx, log, trace, text)
	}

	if err := ctx.Err(); err != nil {
		return explanation, nil, err
	}
	return explanation, image, nil
}

// runStage performs one text call under the stage's timeout and applies
// its failure policy. Only hard failures and cancellation return an error.
func (o *Orchestrator) runStage(ctx context.Context, log *logger.Logger, trace *domain.Trace, stage Stage, p prompt.Prompt) (domain.StageResult, error) {
	slog := log.WithStage(string(stage.Name))
	httputil.MarkStage(ctx, string(stage.Name))
	start := time.Now()

	sctx, cancel := context.WithTimeout(ctx, stage.Timeout)
	text, err := o.deps.Text.Complete(sctx, p.System, p.User, stage.MaxTokens)
	timedOut := errors.Is(sctx.Err(), context.DeadlineExceeded)
	cancel()

	elapsed := time.Since(start)

	if err == nil && strings.TrimSpace(text) != "" {
		result := domain.Ok(stage.Name, strings.TrimSpace(text), elapsed)
		trace.Record(result)
		slog.Debug().Dur("duration", elapsed).Msg("stage completed")
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.Degraded(stage.Name, domain.ReasonFailed, stage.Fallback, elapsed), ctxErr
	}

	reason := domain.ReasonFailed
	switch {
	case timedOut:
		reason = domain.ReasonTimeout
	case err == nil || errors.Is(err, generative.ErrEmptyResponse):
		reason = domain.ReasonEmptyResponse
	}
	if err == nil {
		err = generative.ErrEmptyResponse
	}
	if timedOut && !errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}

	result := domain.Degraded(stage.Name, reason, stage.Fallback, elapsed)
	trace.Record(result)

	if stage.Policy == PolicyHard {
		slog.Error().Err(err).Str("reason", string(reason)).Dur("duration", elapsed).Msg("stage failed")
		return result, domain.GenerationError(string(stage.Name), err)
	}

	slog.Warn().Err(err).Str("reason", string(reason)).Dur("duration", elapsed).Msg("stage degraded")
	return result, nil
}

// illustrate produces the caption and, if it is usable, the image. It
// returns nil when no image was attempted.
func (o *Orchestrator) illustrate(ctx context.Context, log *logger.Logger, trace *domain.Trace, text string) *domain.ImageResult {
	if o.deps.Image == nil {
		return nil
	}

	if strings.TrimSpace(text) == "" {
		summary := domain.Degraded(domain.StageConciseSummary, domain.ReasonNoText, o.settings.ConciseSummary.Fallback, 0)
		trace.Record(summary)
		log.WithStage(string(domain.StageConciseSummary)).Warn().Str("reason", string(domain.ReasonNoText)).Msg("stage degraded")
		return nil
	}

	summary, err := o.runStage(ctx, log, trace, o.settings.ConciseSummary, prompt.ConciseSummary(text))
	if err != nil || !summary.IsOK() {
		return nil
	}

	caption := summary.Text
	if o.settings.VisualAnalysis {
		desc, err := o.runStage(ctx, log, trace, o.settings.ImagePrompt, prompt.ImageDescription(text, caption))
		if err != nil {
			return nil
		}
		if desc.IsOK() {
			caption = desc.Text
		}
	}

	img := o.synthesize(ctx, log, caption)
	if ctx.Err() != nil {
		return nil
	}
	trace.RecordImage(img)
	return img
}

func (o *Orchestrator) synthesize(ctx context.Context, log *logger.Logger, caption string) *domain.ImageResult {
	slog := log.WithStage(string(domain.StageImage))
	httputil.MarkStage(ctx, string(domain.StageImage))
	start := time.Now()

	ictx, cancel := context.WithTimeout(ctx, o.settings.ImageTimeout)
	defer cancel()

	ref, err := o.deps.Image.Synthesize(ictx, prompt.Illustration(caption), o.settings.ImageSize)
	result := &domain.ImageResult{Duration: time.Since(start)}

	if err != nil || ref == "" {
		if err == nil {
			err = generative.ErrEmptyResponse
		}
		slog.Warn().Err(err).Dur("duration", result.Duration).Msg("image synthesis failed")
		return result
	}

	result.Reference = &ref
	result.Succeeded = true
	slog.Debug().Dur("duration", result.Duration).Msg("image synthesized")
	return result
}

// fail logs a hard failure and reports it. Cancellation is logged at debug
// level and returned unchanged.
func (o *Orchestrator) fail(ctx context.Context, log *logger.Logger, trace *domain.Trace, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		log.Debug().Err(err).Dur("duration", trace.Elapsed()).Msg("request cancelled by client")
		return ctxErr
	}

	stage := ""
	var pe *domain.PipelineError
	if errors.As(err, &pe) {
		stage = pe.Stage
	}
	log.Error().Err(err).Str("stage", stage).Dur("duration", trace.Elapsed()).Msg("pipeline failed")

	if o.deps.Events != nil {
		o.deps.Events.RunFailed(ctx, trace, err)
	}
	return err
}
