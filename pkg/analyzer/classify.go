package analyzer

import "strings"

// FileFormat is the processing branch chosen for an uploaded file.
type FileFormat string

const (
	FormatImage     FileFormat = "image"
	FormatPDF       FileFormat = "pdf"
	FormatDocx      FileFormat = "docx"
	FormatLegacyDoc FileFormat = "doc"
	FormatText      FileFormat = "text"
	FormatUnknown   FileFormat = "unknown"
)

var imageMimeTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/tiff": true,
	"image/bmp":  true,
}

var textLikeExtensions = []string{".txt", ".csv", ".json", ".xml", ".md"}

// ClassifyFormat chooses the processing branch for a file based on its
// declared MIME type and filename. The MIME type alone is not authoritative:
// some upload paths omit or mis-set it, so well-known extensions are checked
// as well. Pure function, no side effects.
func ClassifyFormat(mimeType string, fileName string) FileFormat {
	mime := strings.ToLower(strings.TrimSpace(mimeType))
	name := strings.ToLower(strings.TrimSpace(fileName))

	if imageMimeTypes[mime] {
		return FormatImage
	}
	if mime == "application/pdf" || strings.HasSuffix(name, ".pdf") {
		return FormatPDF
	}
	if mime == "application/vnd.openxmlformats-officedocument.wordprocessingml.document" ||
		strings.HasSuffix(name, ".docx") {
		return FormatDocx
	}
	if mime == "application/msword" || strings.HasSuffix(name, ".doc") {
		return FormatLegacyDoc
	}
	if strings.HasPrefix(mime, "text/") ||
		strings.Contains(mime, "json") ||
		strings.Contains(mime, "xml") ||
		strings.Contains(mime, "csv") {
		return FormatText
	}
	for _, ext := range textLikeExtensions {
		if strings.HasSuffix(name, ext) {
			return FormatText
		}
	}
	return FormatUnknown
}
