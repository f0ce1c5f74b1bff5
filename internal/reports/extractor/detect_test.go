package extractor_test

import (
	"testing"

	"github.com/medflow/report-explainer/internal/reports/domain"
	"github.com/medflow/report-explainer/internal/reports/extractor"
	"github.com/stretchr/testify/assert"
)

func TestDetectFormat(t *testing.T) {
	pdf := []byte("%PDF-1.7\n...")

	tests := []struct {
		name     string
		data     []byte
		declared domain.DocumentFormat
		want     domain.DocumentFormat
		wantErr  error
	}{
		{"pdf declared pdf", pdf, domain.FormatPDF, domain.FormatPDF, nil},
		{"pdf undeclared", pdf, domain.FormatUnknown, domain.FormatPDF, nil},
		{"pdf header after preamble", append([]byte("\r\n"), pdf...), domain.FormatPDF, domain.FormatPDF, nil},
		{"text declared text", []byte("Befund: unauffällig"), domain.FormatPlainText, domain.FormatPlainText, nil},
		{"text declared pdf", []byte("not a pdf"), domain.FormatPDF, domain.FormatUnknown, extractor.ErrFormatMismatch},
		{"pdf declared text", pdf, domain.FormatPlainText, domain.FormatUnknown, extractor.ErrFormatMismatch},
		{"binary declared text", []byte{0x00, 0xff, 0x10}, domain.FormatPlainText, domain.FormatUnknown, extractor.ErrFormatMismatch},
		{"unknown binary", []byte{0x89, 0x50, 0x4E, 0x47}, domain.FormatUnknown, domain.FormatUnknown, extractor.ErrUnsupportedFormat},
		{"undeclared text", []byte("plain"), domain.FormatUnknown, domain.FormatUnknown, extractor.ErrUnsupportedFormat},
		{"empty", nil, domain.FormatPDF, domain.FormatUnknown, extractor.ErrEmptyDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractor.DetectFormat(tt.data, tt.declared)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, domain.FormatPDF, extractor.ParseFormat("application/pdf"))
	assert.Equal(t, domain.FormatPlainText, extractor.ParseFormat("text/plain; charset=utf-8"))
	assert.Equal(t, domain.FormatUnknown, extractor.ParseFormat("application/octet-stream"))
	assert.Equal(t, domain.FormatUnknown, extractor.ParseFormat(""))
}
