package analyzer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/claimpilot/backend/pkg/ai"
)

type fakeAIClient struct {
	chatResponse string
	chatErr      error
	chatCalls    int
	lastMessages []ai.ChatMessage
	lastChatOpts ai.GenerateOptions

	fileResponse string
	fileErr      error
	fileCalls    int
	lastPrompt   string
	lastFile     ai.FilePayload
	lastFileOpts ai.GenerateOptions

	imageResponse string
	imageErr      error
	imageCalls    int
	lastImage     ai.ImagePayload

	docType   string
	formatErr error
}

func applyOpts(opts []ai.GenerateOption) ai.GenerateOptions {
	options := ai.GenerateOptions{}
	for _, o := range opts {
		o(&options)
	}
	return options
}

func (f *fakeAIClient) GenerateChat(ctx context.Context, messages []ai.ChatMessage, opts ...ai.GenerateOption) (string, error) {
	f.chatCalls++
	f.lastMessages = messages
	f.lastChatOpts = applyOpts(opts)
	return f.chatResponse, f.chatErr
}

func (f *fakeAIClient) GenerateChatWithFormat(ctx context.Context, name string, description string, messages []ai.ChatMessage, out any, opts ...ai.GenerateOption) error {
	if f.formatErr != nil {
		return f.formatErr
	}
	if c, ok := out.(*DocumentClassification); ok {
		c.DocumentType = f.docType
		c.Confidence = 0.9
	}
	return nil
}

func (f *fakeAIClient) GenerateChatWithFile(ctx context.Context, prompt string, file ai.FilePayload, opts ...ai.GenerateOption) (string, error) {
	f.fileCalls++
	f.lastPrompt = prompt
	f.lastFile = file
	f.lastFileOpts = applyOpts(opts)
	return f.fileResponse, f.fileErr
}

func (f *fakeAIClient) GenerateImageAnalysis(ctx context.Context, prompt string, image ai.ImagePayload, opts ...ai.GenerateOption) (string, error) {
	f.imageCalls++
	f.lastImage = image
	return f.imageResponse, f.imageErr
}

func (f *fakeAIClient) ResetMetrics()               {}
func (f *fakeAIClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

const sampleRecordText = `PROGRESS NOTE. Veteran presents with chronic bilateral tinnitus, constant ringing since deployment. Audiology consult confirms high-frequency hearing loss. Assessment: tinnitus, noise-induced.`

func TestAnalyzeTextDocument(t *testing.T) {
	fake := &fakeAIClient{
		chatResponse: `[{"conditionName":"Tinnitus","category":"AUDITORY"},{"conditionName":"Hearing Loss","category":"AUDITORY"}]`,
		docType:      "va_medical_record",
	}
	a := New(fake, Config{})

	result, err := a.Analyze(context.Background(), AnalyzeInput{
		Data:     []byte(sampleRecordText),
		MimeType: "text/plain",
		FileName: "progress-note.txt",
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if fake.chatCalls != 1 {
		t.Fatalf("expected 1 chat call, got %d", fake.chatCalls)
	}
	if fake.imageCalls != 0 || fake.fileCalls != 0 {
		t.Fatal("text document should not use image or file paths")
	}
	if len(result.Diagnoses) != 2 {
		t.Fatalf("expected 2 diagnoses, got %d", len(result.Diagnoses))
	}
	if want := "progress-note.txt (va_medical_record)"; result.Diagnoses[0].SourceDocument != want {
		t.Fatalf("source document = %q, want %q", result.Diagnoses[0].SourceDocument, want)
	}
	if len(fake.lastChatOpts.SystemPrompts) == 0 {
		t.Fatal("expected extraction system prompt to be set")
	}
	if result.RawAnalysis != fake.chatResponse {
		t.Fatal("raw analysis should carry the model output verbatim")
	}
}

func TestAnalyzeClassificationFailureIsNonFatal(t *testing.T) {
	fake := &fakeAIClient{
		chatResponse: `[{"conditionName":"Tinnitus"}]`,
		formatErr:    errors.New("classifier offline"),
	}
	a := New(fake, Config{})

	result, err := a.Analyze(context.Background(), AnalyzeInput{
		Data:     []byte(sampleRecordText),
		MimeType: "text/plain",
		FileName: "note.txt",
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.Diagnoses[0].SourceDocument != "note.txt" {
		t.Fatalf("expected bare filename as source, got %q", result.Diagnoses[0].SourceDocument)
	}
}

func TestAnalyzePreExtractedTextShortCircuits(t *testing.T) {
	fake := &fakeAIClient{chatResponse: "[]", docType: "other"}
	a := New(fake, Config{})

	pre := strings.Repeat("Assessment: chronic lumbar strain with radiculopathy. ", 5)
	_, err := a.Analyze(context.Background(), AnalyzeInput{
		Data:             []byte{0x00, 0x01, 0x02},
		MimeType:         "application/octet-stream",
		FileName:         "export.bin",
		PreExtractedText: pre,
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if fake.chatCalls != 1 {
		t.Fatalf("expected pre-extracted text to reach the chat path, chat calls = %d", fake.chatCalls)
	}
	if !strings.Contains(fake.lastMessages[0].Message, "lumbar strain") {
		t.Fatal("prompt should contain the pre-extracted text")
	}
}

func TestAnalyzeUnusableDocument(t *testing.T) {
	fake := &fakeAIClient{}
	a := New(fake, Config{})

	result, err := a.Analyze(context.Background(), AnalyzeInput{
		Data:     []byte{0x00, 0x01, 0x02, 0x03},
		MimeType: "application/octet-stream",
		FileName: "mystery.bin",
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if fake.chatCalls+fake.fileCalls+fake.imageCalls != 0 {
		t.Fatal("unusable document should not trigger any model call")
	}
	if len(result.Diagnoses) != 0 || result.RawAnalysis != NoExtractableTextMessage {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestAnalyzeBinaryRenamedAsText(t *testing.T) {
	fake := &fakeAIClient{}
	a := New(fake, Config{})

	// Control-byte noise with a .txt name and text/plain mime: after
	// stripping non-printable bytes nothing usable remains, so no model
	// call happens.
	noise := bytes.Repeat([]byte{0x00, 0x01, 0x07, 0x10, 0x1b, 0x7f}, 100)
	result, err := a.Analyze(context.Background(), AnalyzeInput{
		Data:     noise,
		MimeType: "text/plain",
		FileName: "report.txt",
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if fake.chatCalls+fake.fileCalls+fake.imageCalls != 0 {
		t.Fatalf("binary noise should not trigger any model call, got %d chat, %d file, %d image",
			fake.chatCalls, fake.fileCalls, fake.imageCalls)
	}
	if len(result.Diagnoses) != 0 || result.RawAnalysis != NoExtractableTextMessage {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestAnalyzeImageDocument(t *testing.T) {
	fake := &fakeAIClient{
		imageResponse: `[{"conditionName":"Knee Strain","category":"MUSCULOSKELETAL"}]`,
	}
	a := New(fake, Config{})

	result, err := a.Analyze(context.Background(), AnalyzeInput{
		Data:     []byte("fake-image-bytes"),
		MimeType: "image/jpeg",
		FileName: "page1.jpg",
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if fake.imageCalls != 1 {
		t.Fatalf("expected 1 image call, got %d", fake.imageCalls)
	}
	if !strings.HasPrefix(fake.lastImage.DataURL, "data:image/jpeg;base64,") {
		t.Fatalf("unexpected data URL prefix: %q", fake.lastImage.DataURL[:30])
	}
	if len(result.Diagnoses) != 1 || result.Diagnoses[0].SourceDocument != "page1.jpg" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestAnalyzeScannedPDFOneShot(t *testing.T) {
	fake := &fakeAIClient{
		fileResponse: `[{"conditionName":"COPD","category":"RESPIRATORY"}]`,
	}
	a := New(fake, Config{})

	// Bytes that are not a real PDF: the text-layer probe fails, which is
	// exactly what a scanned document looks like to it.
	result, err := a.Analyze(context.Background(), AnalyzeInput{
		Data:     []byte("scanned-image-content"),
		MimeType: "application/pdf",
		FileName: "str.pdf",
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if fake.fileCalls != 1 {
		t.Fatalf("expected 1 file call, got %d", fake.fileCalls)
	}
	if !fake.lastFileOpts.DocumentOCR {
		t.Fatal("scanned PDF analysis should request document OCR")
	}
	if !strings.HasPrefix(fake.lastFile.DataURL, "data:application/pdf;base64,") {
		t.Fatalf("unexpected data URL prefix: %q", fake.lastFile.DataURL[:30])
	}
	if len(result.Diagnoses) != 1 || result.Diagnoses[0].ConditionName != "COPD" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestAnalyzeScannedPDFFileModeUnsupported(t *testing.T) {
	fake := &fakeAIClient{fileErr: ai.ErrFileInputUnsupported}
	a := New(fake, Config{})

	result, err := a.Analyze(context.Background(), AnalyzeInput{
		Data:     []byte("scanned-image-content"),
		MimeType: "application/pdf",
		FileName: "str.pdf",
	})
	if err != nil {
		t.Fatalf("expected graceful degradation, got error: %v", err)
	}
	if len(result.Diagnoses) != 0 {
		t.Fatalf("expected no diagnoses, got %+v", result.Diagnoses)
	}
	if !strings.Contains(result.RawAnalysis, "cannot process document attachments") {
		t.Fatalf("unexpected raw analysis: %q", result.RawAnalysis)
	}
}

func TestAnalyzeScannedPDFFallsBackToChunking(t *testing.T) {
	fake := &fakeAIClient{fileResponse: "[]"}
	a := New(fake, Config{})

	// One-shot finds nothing, so chunking is attempted. The bytes are not a
	// valid PDF, so page counting fails and the error crosses the boundary.
	_, err := a.Analyze(context.Background(), AnalyzeInput{
		Data:     []byte("scanned-image-content"),
		MimeType: "application/pdf",
		FileName: "str.pdf",
	})
	if err == nil {
		t.Fatal("expected an error from the chunking fallback on invalid PDF bytes")
	}
	if fake.fileCalls != 1 {
		t.Fatalf("expected exactly the one-shot file call, got %d", fake.fileCalls)
	}
	if !strings.Contains(err.Error(), "read scanned pdf") {
		t.Fatalf("unexpected error: %v", err)
	}
}
