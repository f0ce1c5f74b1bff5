package extractor

import (
	"context"
	"fmt"

	"github.com/gen2brain/go-fitz"
	"github.com/medflow/report-explainer/internal/reports/domain"
)

// FitzExtractor extracts PDF text with MuPDF
type FitzExtractor struct{}

// NewFitzExtractor creates a MuPDF-backed extractor
func NewFitzExtractor() *FitzExtractor {
	return &FitzExtractor{}
}

func (e *FitzExtractor) Name() string { return "fitz" }

func (e *FitzExtractor) CanExtract(format domain.DocumentFormat) bool {
	return format == domain.FormatPDF
}

func (e *FitzExtractor) Extract(ctx context.Context, data []byte) (*domain.ExtractedDocument, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("fitz: failed to open PDF: %w", err)
	}
	defer doc.Close()

	numPages := doc.NumPage()
	pages := make([]string, 0, numPages)
	for i := 0; i < numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := doc.Text(i)
		if err != nil {
			return nil, fmt.Errorf("fitz: page %d: %w", i+1, err)
		}
		pages = append(pages, text)
	}

	return &domain.ExtractedDocument{
		Text:       joinPages(pages),
		ByteLength: len(data),
		PageCount:  numPages,
		Extractor:  e.Name(),
	}, nil
}
