package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/medflow/report-explainer/internal/reports/domain"
)

// Detection errors
var (
	ErrEmptyDocument     = errors.New("document is empty")
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrFormatMismatch    = errors.New("document content does not match its declared format")
)

var pdfMagic = []byte("%PDF-")

// pdfHeaderWindow is how far into the file a PDF header may start
const pdfHeaderWindow = 1024

// ParseFormat maps a Content-Type value to a DocumentFormat
func ParseFormat(contentType string) domain.DocumentFormat {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch mediaType {
	case "application/pdf", "application/x-pdf":
		return domain.FormatPDF
	case "text/plain":
		return domain.FormatPlainText
	default:
		return domain.FormatUnknown
	}
}

// DetectFormat checks the content against the declared format. PDF is
// recognised by its magic bytes whatever the declaration; plain text must
// be declared and be valid UTF-8 without NUL bytes.
func DetectFormat(data []byte, declared domain.DocumentFormat) (domain.DocumentFormat, error) {
	if len(data) == 0 {
		return domain.FormatUnknown, ErrEmptyDocument
	}

	head := data
	if len(head) > pdfHeaderWindow {
		head = head[:pdfHeaderWindow]
	}
	isPDF := bytes.Contains(head, pdfMagic)

	switch declared {
	case domain.FormatPDF:
		if !isPDF {
			return domain.FormatUnknown, fmt.Errorf("%w: missing %%PDF- header", ErrFormatMismatch)
		}
		return domain.FormatPDF, nil
	case domain.FormatPlainText:
		if isPDF {
			return domain.FormatUnknown, fmt.Errorf("%w: declared text/plain but found PDF header", ErrFormatMismatch)
		}
		if !isPlainText(data) {
			return domain.FormatUnknown, fmt.Errorf("%w: not valid UTF-8 text", ErrFormatMismatch)
		}
		return domain.FormatPlainText, nil
	}

	if isPDF {
		return domain.FormatPDF, nil
	}
	return domain.FormatUnknown, ErrUnsupportedFormat
}

func isPlainText(data []byte) bool {
	return utf8.Valid(data) && bytes.IndexByte(data, 0) < 0
}
