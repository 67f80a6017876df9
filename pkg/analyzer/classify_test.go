package analyzer

import "testing"

func TestClassifyFormat(t *testing.T) {
	tests := []struct {
		name     string
		mime     string
		fileName string
		want     FileFormat
	}{
		{"png mime", "image/png", "scan.bin", FormatImage},
		{"jpeg mime", "image/jpeg", "photo", FormatImage},
		{"pdf mime", "application/pdf", "records", FormatPDF},
		{"pdf extension without mime", "", "str-2019.PDF", FormatPDF},
		{"docx mime", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "notes", FormatDocx},
		{"docx extension", "application/octet-stream", "notes.docx", FormatDocx},
		{"legacy doc mime", "application/msword", "old", FormatLegacyDoc},
		{"legacy doc extension", "", "old.doc", FormatLegacyDoc},
		{"plain text", "text/plain", "notes.txt", FormatText},
		{"json mime", "application/json", "export", FormatText},
		{"txt extension only", "application/octet-stream", "notes.txt", FormatText},
		{"markdown extension", "", "summary.md", FormatText},
		{"unknown", "application/octet-stream", "mystery.bin", FormatUnknown},
		{"empty everything", "", "", FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyFormat(tt.mime, tt.fileName)
			if got != tt.want {
				t.Fatalf("ClassifyFormat(%q, %q) = %q, want %q", tt.mime, tt.fileName, got, tt.want)
			}
		})
	}
}
