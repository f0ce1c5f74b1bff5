package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/medflow/report-explainer/internal/reports/domain"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrUndecodableText means a page decoded mostly to replacement or
// control characters, typically a font without a usable ToUnicode map.
var ErrUndecodableText = errors.New("text layer is not decodable")

// kernSpace is the TJ adjustment, in thousandths of an em, read as a word gap
const kernSpace = -200

// PDFTextExtractor reads the text layer without MuPDF. pdfcpu parses the
// document structure and counts pages; ledongthuc/pdf interprets each
// page's content stream and decodes strings with the active font.
type PDFTextExtractor struct {
	conf *model.Configuration
}

// NewPDFTextExtractor creates the fallback PDF extractor in relaxed mode
func NewPDFTextExtractor() *PDFTextExtractor {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFTextExtractor{conf: conf}
}

func (e *PDFTextExtractor) Name() string { return "pdftext" }

func (e *PDFTextExtractor) CanExtract(format domain.DocumentFormat) bool {
	return format == domain.FormatPDF
}

func (e *PDFTextExtractor) Extract(ctx context.Context, data []byte) (doc *domain.ExtractedDocument, err error) {
	// both parsers panic on some malformed input
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("pdftext: malformed document: %v", r)
		}
	}()

	pdfCtx, err := api.ReadContext(bytes.NewReader(data), e.conf)
	if err != nil {
		return nil, fmt.Errorf("pdftext: read structure: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("pdftext: open: %w", err)
	}

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		text, ok := cleanText(pageText(page))
		if !ok {
			return nil, fmt.Errorf("pdftext: page %d: %w", i, ErrUndecodableText)
		}
		pages = append(pages, text)
	}

	pageCount := pdfCtx.PageCount
	if numPages > pageCount {
		pageCount = numPages
	}

	return &domain.ExtractedDocument{
		Text:       joinPages(pages),
		ByteLength: len(data),
		PageCount:  pageCount,
		Extractor:  e.Name(),
	}, nil
}

// pageText runs the page's content streams through the interpreter.
// Positioning operators start a new line.
func pageText(page pdf.Page) string {
	var (
		sb       strings.Builder
		enc      pdf.TextEncoding
		encoders = make(map[string]pdf.TextEncoding)
	)

	show := func(raw string) {
		sb.WriteString(decodeShown(raw, enc))
	}

	interpret := func(strm pdf.Value) {
		pdf.Interpret(strm, func(stk *pdf.Stack, op string) {
			n := stk.Len()
			args := make([]pdf.Value, n)
			for i := n - 1; i >= 0; i-- {
				args[i] = stk.Pop()
			}

			switch op {
			case "Tf":
				if n < 1 {
					return
				}
				name := args[0].Name()
				e, ok := encoders[name]
				if !ok {
					e = page.Font(name).Encoder()
					encoders[name] = e
				}
				enc = e
			case "Td", "TD", "T*", "Tm", "ET":
				sb.WriteByte('\n')
			case "Tj":
				if n == 1 {
					show(args[0].RawString())
				}
			case "'", "\"":
				sb.WriteByte('\n')
				if n > 0 {
					show(args[n-1].RawString())
				}
			case "TJ":
				if n != 1 {
					return
				}
				items := args[0]
				for i := 0; i < items.Len(); i++ {
					item := items.Index(i)
					switch item.Kind() {
					case pdf.String:
						show(item.RawString())
					case pdf.Integer, pdf.Real:
						if item.Float64() < kernSpace {
							sb.WriteByte(' ')
						}
					}
				}
			}
		})
	}

	contents := page.V.Key("Contents")
	if contents.Kind() == pdf.Array {
		for i := 0; i < contents.Len(); i++ {
			interpret(contents.Index(i))
		}
	} else {
		interpret(contents)
	}
	return sb.String()
}

// decodeShown decodes one shown string. A UTF-16BE byte order mark wins
// over the font encoding.
func decodeShown(raw string, enc pdf.TextEncoding) string {
	if strings.HasPrefix(raw, "\xfe\xff") {
		return decodeUTF16BE(raw[2:])
	}
	if enc == nil {
		return raw
	}
	return enc.Decode(raw)
}

func decodeUTF16BE(s string) string {
	units := make([]uint16, 0, len(s)/2)
	for i := 0; i+1 < len(s); i += 2 {
		units = append(units, uint16(s[i])<<8|uint16(s[i+1]))
	}
	return string(utf16.Decode(units))
}

// cleanText tidies lines and drops stray undecodable runes. It reports
// false when they make up more than a twentieth of the page.
func cleanText(text string) (string, bool) {
	var total, bad int
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			total++
			return r
		}
		total++
		if r == utf8.RuneError || unicode.IsControl(r) {
			bad++
			return -1
		}
		return r
	}, text)

	if bad > 0 && bad*20 >= total {
		return "", false
	}

	lines := strings.Split(cleaned, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n"), true
}
