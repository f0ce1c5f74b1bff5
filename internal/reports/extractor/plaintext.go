package extractor

import (
	"context"
	"strings"

	"github.com/medflow/report-explainer/internal/reports/domain"
)

// PlainTextExtractor returns UTF-8 text documents as they are
type PlainTextExtractor struct{}

// NewPlainTextExtractor creates a plain text extractor
func NewPlainTextExtractor() *PlainTextExtractor {
	return &PlainTextExtractor{}
}

func (e *PlainTextExtractor) Name() string { return "plaintext" }

func (e *PlainTextExtractor) CanExtract(format domain.DocumentFormat) bool {
	return format == domain.FormatPlainText
}

func (e *PlainTextExtractor) Extract(ctx context.Context, data []byte) (*domain.ExtractedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")

	return &domain.ExtractedDocument{
		Text:       strings.TrimSpace(text),
		ByteLength: len(data),
		PageCount:  1,
		Extractor:  e.Name(),
	}, nil
}
