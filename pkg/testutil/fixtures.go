package testutil

import (
	"bytes"
	"fmt"
	"strings"
)

// SampleReport is a short radiology report used across tests
const SampleReport = "MRI LUMBAR SPINE. Impression: mild disc bulge at L4-L5 without nerve root compression."

// MinimalPDF returns a single-page PDF showing each line in Helvetica
func MinimalPDF(lines ...string) []byte {
	return BuildPDF(lines)
}

// BuildPDF returns a valid PDF with one page per entry. Each page shows
// its lines top to bottom.
func BuildPDF(pages ...[]string) []byte {
	streams := make([]string, len(pages))
	for i, lines := range pages {
		streams[i] = contentStream(lines)
	}
	return BuildPDFFromContent(streams...)
}

// BuildPDFFromContent returns a valid PDF with one page per raw content
// stream. Font /F1 is Helvetica with no explicit encoding.
func BuildPDFFromContent(streams ...string) []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"", // page tree, filled in once kids are known
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var kids []string
	for _, stream := range streams {
		pageID := len(objects) + 1
		contentID := pageID + 1
		kids = append(kids, fmt.Sprintf("%d 0 R", pageID))

		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", contentID),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}
	objects[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(streams))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return buf.Bytes()
}

func contentStream(lines []string) string {
	var sb strings.Builder
	sb.WriteString("BT\n/F1 12 Tf\n72 720 Td\n")
	for i, line := range lines {
		if i > 0 {
			sb.WriteString("0 -16 Td\n")
		}
		fmt.Fprintf(&sb, "(%s) Tj\n", escapePDFString(line))
	}
	sb.WriteString("ET")
	return sb.String()
}

func escapePDFString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
