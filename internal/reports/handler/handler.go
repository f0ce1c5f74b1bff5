package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/medflow/report-explainer/internal/reports/domain"
	"github.com/medflow/report-explainer/internal/reports/extractor"
	"github.com/medflow/report-explainer/internal/reports/storage"
	"github.com/medflow/report-explainer/pkg/config"
	apperrors "github.com/medflow/report-explainer/pkg/errors"
	"github.com/medflow/report-explainer/pkg/httputil"
	"github.com/medflow/report-explainer/pkg/i18n"
	"github.com/medflow/report-explainer/pkg/logger"
)

// Pipeline is the report explanation pipeline
type Pipeline interface {
	Run(ctx context.Context, req *domain.UploadRequest) (*domain.PipelineResponse, error)
	ExplainTopic(ctx context.Context, requestID, topic string) (*domain.TopicInfo, error)
}

// Handler handles HTTP requests for report explanation
type Handler struct {
	pipeline  Pipeline
	maxUpload int64
	maxMemory int64
	log       *logger.Logger
}

// NewHandler creates a new report handler
func NewHandler(p Pipeline, cfg *config.UploadConfig, log *logger.Logger) *Handler {
	return &Handler{
		pipeline:  p,
		maxUpload: cfg.MaxSize,
		maxMemory: cfg.MaxMemory,
		log:       log,
	}
}

type topicQuery struct {
	Topic string `json:"topic" validate:"required,max=200"`
}

// Explain handles POST /chat
// Accepts multipart form with:
// - file: the document (PDF or plain text)
// - message: what the patient wants to know
// - url: optional document URL, instead of file
func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	if err := r.ParseMultipartForm(h.maxMemory); err != nil {
		httputil.ErrorLocalized(w, r, apperrors.BadRequest("File too large or invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	req := &domain.UploadRequest{
		Instruction: strings.TrimSpace(r.FormValue("message")),
		SourceURL:   strings.TrimSpace(r.FormValue("url")),
		RequestID:   httputil.GetRequestID(ctx),
	}

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		buf, err := storage.ReadAll(file, h.maxUpload)
		if err != nil {
			httputil.ErrorLocalized(w, r, apperrors.BadRequest("Failed to read uploaded file"))
			return
		}
		defer buf.Release()
		req.Document = buf.Bytes()
		req.Format = extractor.ParseFormat(header.Header.Get("Content-Type"))
	case !errors.Is(err, http.ErrMissingFile):
		httputil.ErrorLocalized(w, r, apperrors.BadRequest("Invalid file in request"))
		return
	}

	resp, err := h.pipeline.Run(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			h.log.Debug().Str("request_id", req.RequestID).Msg("client went away, dropping response")
			return
		}
		httputil.ErrorLocalized(w, r, toAppError(err))
		return
	}

	httputil.JSON(w, http.StatusOK, resp)
}

// AdditionalInfo handles GET /api/additional-info?topic=...
func (h *Handler) AdditionalInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q := topicQuery{Topic: strings.TrimSpace(r.URL.Query().Get("topic"))}
	if err := httputil.Validate(q); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	info, err := h.pipeline.ExplainTopic(ctx, httputil.GetRequestID(ctx), q.Topic)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, domain.ErrGeneration) {
			httputil.ErrorLocalized(w, r, apperrors.TopicFailed(err))
			return
		}
		httputil.ErrorLocalized(w, r, toAppError(err))
		return
	}

	httputil.JSON(w, http.StatusOK, info)
}

// Welcome handles GET /
func (h *Handler) Welcome(w http.ResponseWriter, r *http.Request) {
	httputil.Text(w, http.StatusOK, i18n.TFromContext(r.Context(), "welcome"))
}

// toAppError maps pipeline errors onto HTTP errors. Causes stay in Err
// for logs and never reach the response body.
func toAppError(err error) *apperrors.AppError {
	var pe *domain.PipelineError
	if !errors.As(err, &pe) {
		return apperrors.Internal("An unexpected error occurred")
	}

	switch pe.Kind {
	case domain.KindValidation:
		return apperrors.Validation(pe.Details)
	case domain.KindExtraction:
		return apperrors.ExtractionFailed(err)
	case domain.KindGeneration:
		return apperrors.GenerationFailed(err)
	default:
		return apperrors.Internal("An unexpected error occurred")
	}
}
