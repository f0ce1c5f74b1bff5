package extractor_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/medflow/report-explainer/internal/reports/domain"
	"github.com/medflow/report-explainer/internal/reports/extractor"
	"github.com/medflow/report-explainer/pkg/logger"
	"github.com/medflow/report-explainer/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExtractor struct {
	name  string
	text  string
	err   error
	calls int
}

func (s *stubExtractor) Name() string { return s.name }

func (s *stubExtractor) CanExtract(format domain.DocumentFormat) bool {
	return format == domain.FormatPDF
}

func (s *stubExtractor) Extract(ctx context.Context, data []byte) (*domain.ExtractedDocument, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &domain.ExtractedDocument{Text: s.text, ByteLength: len(data), PageCount: 1, Extractor: s.name}, nil
}

var pdfBytes = []byte("%PDF-1.4\nstub")

func TestRegistry_FallbackOnError(t *testing.T) {
	first := &stubExtractor{name: "first", err: errors.New("broken xref")}
	second := &stubExtractor{name: "second", text: "report text"}
	reg := extractor.NewRegistry(logger.Nop(), first, second)

	doc, err := reg.Extract(context.Background(), pdfBytes, domain.FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "second", doc.Extractor)
	assert.Equal(t, "report text", doc.Text)
	assert.Equal(t, 1, first.calls)
}

func TestRegistry_PrefersNonEmptyText(t *testing.T) {
	first := &stubExtractor{name: "first", text: "  "}
	second := &stubExtractor{name: "second", text: "found it"}
	reg := extractor.NewRegistry(logger.Nop(), first, second)

	doc, err := reg.Extract(context.Background(), pdfBytes, domain.FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "second", doc.Extractor)
}

func TestRegistry_AllEmpty(t *testing.T) {
	first := &stubExtractor{name: "first"}
	second := &stubExtractor{name: "second", err: errors.New("nope")}
	reg := extractor.NewRegistry(logger.Nop(), first, second)

	doc, err := reg.Extract(context.Background(), pdfBytes, domain.FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "first", doc.Extractor)
	assert.Empty(t, doc.Text)
}

func TestRegistry_AllFail(t *testing.T) {
	reg := extractor.NewRegistry(logger.Nop(),
		&stubExtractor{name: "first", err: errors.New("one")},
		&stubExtractor{name: "second", err: errors.New("two")},
	)

	_, err := reg.Extract(context.Background(), pdfBytes, domain.FormatPDF)
	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.ErrorContains(t, err, "two")
}

func TestRegistry_FormatMismatchSkipsExtractors(t *testing.T) {
	stub := &stubExtractor{name: "stub", text: "x"}
	reg := extractor.NewRegistry(logger.Nop(), stub)

	_, err := reg.Extract(context.Background(), []byte("this is not a pdf"), domain.FormatPDF)
	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.ErrorIs(t, err, extractor.ErrFormatMismatch)
	assert.Zero(t, stub.calls)
}

func TestRegistry_Cancelled(t *testing.T) {
	stub := &stubExtractor{name: "stub", text: "x"}
	reg := extractor.NewRegistry(logger.Nop(), stub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := reg.Extract(ctx, pdfBytes, domain.FormatPDF)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stub.calls)
}

func TestPlainTextExtractor(t *testing.T) {
	reg := extractor.NewDefaultRegistry(logger.Nop())

	doc, err := reg.Extract(context.Background(), []byte("Line one\r\nLine two\r\n"), domain.FormatPlainText)
	require.NoError(t, err)
	assert.Equal(t, "Line one\nLine two", doc.Text)
	assert.Equal(t, "plaintext", doc.Extractor)
}

func TestFitzExtractor_MinimalPDF(t *testing.T) {
	data := testutil.BuildPDF(
		[]string{"MRI LUMBAR SPINE"},
		[]string{"Impression: mild disc bulge"},
	)

	doc, err := extractor.NewFitzExtractor().Extract(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.PageCount)
	assert.Contains(t, doc.Text, "MRI LUMBAR SPINE")
	assert.Contains(t, doc.Text, "Impression: mild disc bulge")
	assert.Equal(t, len(data), doc.ByteLength)
}

func TestPDFTextExtractor_MinimalPDF(t *testing.T) {
	data := testutil.BuildPDF(
		[]string{"MRI LUMBAR SPINE", "Findings (L4-L5)"},
		[]string{"Impression: mild disc bulge"},
	)

	doc, err := extractor.NewPDFTextExtractor().Extract(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.PageCount)
	assert.Equal(t, "pdftext", doc.Extractor)
	assert.Equal(t, "MRI LUMBAR SPINE\nFindings (L4-L5)\n\nImpression: mild disc bulge", doc.Text)
}

func TestPDFTextExtractor_ContentStreams(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		want   string
	}{
		{
			name:   "utf-16 hex string",
			stream: "BT /F1 12 Tf 72 712 Td <FEFF00480069> Tj ET",
			want:   "Hi",
		},
		{
			name:   "utf-16 hex string with umlaut",
			stream: "BT /F1 12 Tf 72 712 Td <FEFF0042006500660075006E0064003A00200075006E006100750066006600E4006C006C00690067> Tj ET",
			want:   "Befund: unauffällig",
		},
		{
			name:   "lines and kerning",
			stream: "BT /F1 12 Tf 72 712 Td (Hello World) Tj 0 -14 Td [(Impr) -20 (ession:) -300 (normal)] TJ ET",
			want:   "Hello World\nImpression: normal",
		},
		{
			name:   "escapes and octal",
			stream: `BT /F1 12 Tf 72 712 Td (a\(b\)c\\d\101) Tj ET`,
			want:   `a(b)c\dA`,
		},
		{
			name:   "next line operators",
			stream: "BT /F1 12 Tf 14 TL 72 712 Td (first) Tj T* (second) Tj (third) ' ET",
			want:   "first\nsecond\nthird",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := testutil.BuildPDFFromContent(tt.stream)

			doc, err := extractor.NewPDFTextExtractor().Extract(context.Background(), data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, doc.Text)
			assert.Equal(t, 1, doc.PageCount)
		})
	}
}

func TestPDFTextExtractor_UndecodableTextFails(t *testing.T) {
	// two-byte glyph codes shown through a simple font without a ToUnicode map
	data := testutil.BuildPDFFromContent("BT /F1 12 Tf 72 712 Td <00480069> Tj ET")

	_, err := extractor.NewPDFTextExtractor().Extract(context.Background(), data)
	assert.ErrorIs(t, err, extractor.ErrUndecodableText)

	reg := extractor.NewRegistry(logger.Nop(), extractor.NewPDFTextExtractor())
	_, err = reg.Extract(context.Background(), data, domain.FormatPDF)
	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.ErrorIs(t, err, extractor.ErrUndecodableText)
}

func TestPDFTextExtractor_OctalEscapeOutOfRange(t *testing.T) {
	data := testutil.BuildPDFFromContent(`BT /F1 12 Tf 72 712 Td (ok \777) Tj ET`)

	doc, err := extractor.NewPDFTextExtractor().Extract(context.Background(), data)
	assert.Error(t, err)
	assert.Nil(t, doc)
}

func TestPDFTextExtractor_Corrupt(t *testing.T) {
	_, err := extractor.NewPDFTextExtractor().Extract(context.Background(), []byte("%PDF-1.4\ngarbage without xref"))
	assert.Error(t, err)
}

func TestDefaultRegistry_PDF(t *testing.T) {
	reg := extractor.NewDefaultRegistry(logger.Nop())

	doc, err := reg.Extract(context.Background(), testutil.MinimalPDF(testutil.SampleReport), domain.FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "fitz", doc.Extractor)
	assert.True(t, strings.Contains(doc.Text, "L4-L5"))
}
