package pipeline_test

import (
	"testing"
	"time"

	"github.com/medflow/report-explainer/internal/reports/domain"
	"github.com/medflow/report-explainer/internal/reports/pipeline"
	"github.com/medflow/report-explainer/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemble(t *testing.T) {
	ok := domain.Ok(domain.StageExplanation, "Explained.", time.Second)
	ref := testutil.PtrString("https://img.example/1.png")
	empty := testutil.PtrString("")

	tests := []struct {
		name      string
		image     *domain.ImageResult
		wantImage *string
	}{
		{"no image attempted", nil, nil},
		{"image failed", &domain.ImageResult{Succeeded: false}, nil},
		{"image succeeded", &domain.ImageResult{Succeeded: true, Reference: ref}, ref},
		{"succeeded without reference", &domain.ImageResult{Succeeded: true, Reference: empty}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := pipeline.Assemble(ok, tt.image)
			require.NoError(t, err)
			assert.Equal(t, "Explained.", resp.Response)
			assert.Equal(t, tt.wantImage, resp.Image)
		})
	}
}

func TestAssemble_RequiresExplanation(t *testing.T) {
	_, err := pipeline.Assemble(domain.Degraded(domain.StageExplanation, domain.ReasonFailed, "", 0), nil)
	assert.ErrorIs(t, err, domain.ErrGeneration)

	_, err = pipeline.Assemble(domain.Ok(domain.StageExplanation, "  ", 0), nil)
	assert.ErrorIs(t, err, domain.ErrGeneration)
	assert.ErrorIs(t, err, pipeline.ErrEmptyExplanation)
}
