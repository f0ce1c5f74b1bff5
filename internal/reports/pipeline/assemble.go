package pipeline

import (
	"errors"
	"strings"

	"github.com/medflow/report-explainer/internal/reports/domain"
)

// ErrEmptyExplanation is the cause of a GenerationError raised when the
// explanation stage produced nothing usable
var ErrEmptyExplanation = errors.New("explanation is empty")

// Assemble builds the response. The explanation must be Ok and non-empty;
// the image is set only when synthesis succeeded with a reference.
func Assemble(explanation domain.StageResult, image *domain.ImageResult) (*domain.PipelineResponse, error) {
	if !explanation.IsOK() || strings.TrimSpace(explanation.Text) == "" {
		return nil, domain.GenerationError(string(domain.StageExplanation), ErrEmptyExplanation)
	}

	resp := &domain.PipelineResponse{Response: explanation.Text}
	if image != nil && image.Succeeded && image.Reference != nil && *image.Reference != "" {
		ref := *image.Reference
		resp.Image = &ref
	}
	return resp, nil
}
