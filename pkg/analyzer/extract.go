package analyzer

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/claimpilot/backend/pkg/logger"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

const (
	// Pre-extracted text below this length is treated as a stub (often just
	// a filename echo) and the binary payload is processed instead.
	preExtractedMinChars = 100

	// Decoded text shorter than this is considered unusable noise.
	minUsableTextChars = 50

	// A PDF text layer shorter than this means the document is scanned
	// imagery rather than digital text.
	minPDFTextChars = 200
)

// extractLocalText attempts cheap local text extraction before any model
// call. It returns the extracted text and whether it is usable; an unusable
// result routes the document to the model-side path for its format.
// Extraction failures never cross this boundary as errors, only as ok=false.
func extractLocalText(format FileFormat, data []byte, preExtracted string) (string, bool) {
	if pre := strings.TrimSpace(preExtracted); len(pre) > preExtractedMinChars {
		return pre, true
	}

	switch format {
	case FormatText, FormatLegacyDoc, FormatUnknown:
		// Decode permissively and strip control bytes, so a binary blob
		// with a text extension cannot pass the usability threshold on
		// noise alone.
		text := strings.TrimSpace(stripNonPrintable(strings.ToValidUTF8(string(data), "")))
		return text, len(text) > minUsableTextChars

	case FormatDocx:
		text, err := extractDocxText(data)
		if err != nil {
			logger.Warn("Failed to extract text from docx", "err", err)
			return "", false
		}
		text = strings.TrimSpace(text)
		return text, len(text) > minUsableTextChars

	case FormatPDF:
		text, err := extractPDFTextLayer(data)
		if err != nil {
			logger.Warn("Failed to read PDF text layer", "err", err)
			return "", false
		}
		text = strings.TrimSpace(text)
		return text, len(text) > minPDFTextChars
	}

	return "", false
}

// extractPDFTextLayer pulls the embedded text layer out of a digital PDF.
// Scanned PDFs yield little or nothing here, which is how they are detected.
func extractPDFTextLayer(data []byte) (text string, err error) {
	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

var xmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// extractDocxText reads the document body of a .docx file and flattens its
// XML to plain text, one line per paragraph.
func extractDocxText(data []byte) (string, error) {
	reader, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer reader.Close()

	content := reader.Editable().GetContent()

	var sb strings.Builder
	for _, paragraph := range strings.Split(content, "<w:p") {
		line := strings.TrimSpace(xmlTagPattern.ReplaceAllString("<w:p"+paragraph, ""))
		if line == "" {
			continue
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func stripNonPrintable(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
