package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/medflow/report-explainer/internal/reports/domain"
	"github.com/medflow/report-explainer/pkg/logger"
)

// Extractor pulls plain text out of a document. Implementations must not
// retain the data slice after Extract returns.
type Extractor interface {
	// CanExtract returns true if this extractor handles the given format
	CanExtract(format domain.DocumentFormat) bool

	// Extract returns the document text with pages separated by blank lines
	Extract(ctx context.Context, data []byte) (*domain.ExtractedDocument, error)

	// Name returns the extractor name for logging and outcome events
	Name() string
}

// Registry holds all registered extractors and dispatches by format
type Registry struct {
	extractors []Extractor
	log        *logger.Logger
}

// NewRegistry creates a registry. Registration order is fallback order.
func NewRegistry(log *logger.Logger, extractors ...Extractor) *Registry {
	return &Registry{extractors: extractors, log: log.WithComponent("extractor")}
}

// NewDefaultRegistry wires MuPDF first, the pdfcpu/ledongthuc text layer
// reader second and plain text
func NewDefaultRegistry(log *logger.Logger) *Registry {
	return NewRegistry(log, NewFitzExtractor(), NewPDFTextExtractor(), NewPlainTextExtractor())
}

// FindExtractors returns all extractors that handle the format, in
// registration order.
func (r *Registry) FindExtractors(format domain.DocumentFormat) []Extractor {
	var result []Extractor
	for _, e := range r.extractors {
		if e.CanExtract(format) {
			result = append(result, e)
		}
	}
	return result
}

// Extract detects the format and tries each matching extractor until one
// yields non-empty text. If every extractor succeeds with empty text the
// empty result is returned. Failures are ExtractionErrors.
func (r *Registry) Extract(ctx context.Context, data []byte, declared domain.DocumentFormat) (*domain.ExtractedDocument, error) {
	format, err := DetectFormat(data, declared)
	if err != nil {
		return nil, domain.ExtractionError("extract", err)
	}

	candidates := r.FindExtractors(format)
	if len(candidates) == 0 {
		return nil, domain.ExtractionError("extract", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format))
	}

	var empty *domain.ExtractedDocument
	var lastErr error
	for _, ex := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		doc, err := ex.Extract(ctx, data)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			lastErr = err
			r.log.Warn().Err(err).
				Str("extractor", ex.Name()).
				Str("format", string(format)).
				Msg("extractor failed, trying next")
			continue
		}

		if strings.TrimSpace(doc.Text) != "" {
			r.log.Debug().
				Str("extractor", ex.Name()).
				Int("pages", doc.PageCount).
				Int("chars", len(doc.Text)).
				Msg("text extracted")
			return doc, nil
		}
		if empty == nil {
			empty = doc
		}
	}

	if empty != nil {
		r.log.Info().Str("extractor", empty.Extractor).Msg("document contains no readable text")
		return empty, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no extractor produced a result")
	}
	return nil, domain.ExtractionError("extract", lastErr)
}

// joinPages trims each page and separates pages with a blank line
func joinPages(pages []string) string {
	trimmed := make([]string, 0, len(pages))
	for _, p := range pages {
		if p = strings.TrimSpace(p); p != "" {
			trimmed = append(trimmed, p)
		}
	}
	return strings.Join(trimmed, "\n\n")
}
