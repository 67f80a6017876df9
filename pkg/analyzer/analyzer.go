package analyzer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/claimpilot/backend/internal/util"
	"github.com/claimpilot/backend/pkg/ai"
	"github.com/claimpilot/backend/pkg/logger"
)

// NoExtractableTextMessage is returned as the raw analysis when every
// extraction strategy came up empty.
const NoExtractableTextMessage = "No text could be extracted from this document. Add conditions manually or upload a clearer copy of the record."

// fileModeUnsupportedMessage is returned when the configured AI adapter
// cannot take document attachments and the record has no usable text layer.
const fileModeUnsupportedMessage = "This document appears to be scanned and the configured AI backend cannot process document attachments. Upload a digital copy of the record or add conditions manually."

// charsPerPageEstimate approximates printed pages from character counts for
// the truncation notice.
const charsPerPageEstimate = 800

// Config tunes the analysis pipeline. Zero values fall back to defaults.
type Config struct {
	// Model requested for every call. Empty selects the adapter's default;
	// the fallback wrapper may substitute other models either way.
	Model string

	// ChunkPages is the page count per scanned-PDF chunk.
	ChunkPages int

	// OneShotMaxBytes is the size limit under which a scanned PDF is first
	// tried as a single attachment before chunking.
	OneShotMaxBytes int64

	// MaxTextChars caps the text sent in a single prompt.
	MaxTextChars int

	// MaxOutputTokens caps the model's reply length.
	MaxOutputTokens int
}

// ConfigFromEnv reads pipeline tuning from the environment.
func ConfigFromEnv() Config {
	return Config{
		Model:           util.GetEnvString("ANALYZER_MODEL", ""),
		ChunkPages:      util.GetEnvInt("ANALYZER_CHUNK_PAGES", 10),
		OneShotMaxBytes: util.GetEnvInt64("ANALYZER_ONESHOT_MAX_BYTES", 12<<20),
		MaxTextChars:    util.GetEnvInt("ANALYZER_MAX_TEXT_CHARS", 400_000),
		MaxOutputTokens: util.GetEnvInt("ANALYZER_MAX_OUTPUT_TOKENS", 8192),
	}
}

func (c Config) withDefaults() Config {
	if c.ChunkPages <= 0 {
		c.ChunkPages = 10
	}
	if c.OneShotMaxBytes <= 0 {
		c.OneShotMaxBytes = 12 << 20
	}
	if c.MaxTextChars <= 0 {
		c.MaxTextChars = 400_000
	}
	if c.MaxOutputTokens <= 0 {
		c.MaxOutputTokens = 8192
	}
	return c
}

// Analyzer runs the medical record analysis pipeline. It is stateless
// between calls and safe for concurrent use.
type Analyzer struct {
	client ai.RecordAIClient
	cfg    Config
}

// New creates an Analyzer on top of the given AI client. The client should
// usually be wrapped in an ai.FallbackClient so individual model failures
// are retried across the candidate list.
func New(client ai.RecordAIClient, cfg Config) *Analyzer {
	return &Analyzer{client: client, cfg: cfg.withDefaults()}
}

// AnalyzeInput is one uploaded document.
type AnalyzeInput struct {
	Data     []byte
	MimeType string
	FileName string

	// PreExtractedText is text a previous processing step already pulled
	// out of the document. When substantial it short-circuits local
	// extraction entirely.
	PreExtractedText string
}

// AnalysisResult is the outcome of analyzing one document.
type AnalysisResult struct {
	Diagnoses []ExtractedDiagnosis `json:"diagnoses"`

	// RawAnalysis preserves the model's unparsed output for manual review.
	// For chunked documents it is the concatenation of per-chunk sections,
	// each under a "--- pages X-Y of Z ---" header.
	RawAnalysis string `json:"rawAnalysis"`
}

// Analyze routes a document through format classification, text extraction,
// and the appropriate model path, returning the merged diagnoses. It returns
// an error only when the document itself could not be processed at all;
// partial failures inside a chunked analysis degrade the result instead.
func (a *Analyzer) Analyze(ctx context.Context, in AnalyzeInput) (*AnalysisResult, error) {
	format := ClassifyFormat(in.MimeType, in.FileName)
	logger.Info("Analyzing medical record",
		"file", in.FileName,
		"format", format,
		"bytes", len(in.Data),
	)

	if format == FormatImage {
		return a.analyzeImage(ctx, in)
	}

	if text, ok := extractLocalText(format, in.Data, in.PreExtractedText); ok {
		return a.analyzeText(ctx, text, in.FileName)
	}

	if format == FormatPDF {
		return a.analyzeScannedPDF(ctx, in)
	}

	logger.Warn("No usable text in document", "file", in.FileName, "format", format)
	return &AnalysisResult{
		Diagnoses:   []ExtractedDiagnosis{},
		RawAnalysis: NoExtractableTextMessage,
	}, nil
}

func (a *Analyzer) generateOptions() []ai.GenerateOption {
	opts := []ai.GenerateOption{
		ai.WithSystemPrompts(ExtractionPrompt),
		ai.WithTemperature(0.1),
		ai.WithMaxTokens(a.cfg.MaxOutputTokens),
	}
	if a.cfg.Model != "" {
		opts = append(opts, ai.WithModel(a.cfg.Model))
	}
	return opts
}

func (a *Analyzer) analyzeText(ctx context.Context, text string, fileName string) (*AnalysisResult, error) {
	payload := text
	if len(payload) > a.cfg.MaxTextChars {
		shown := a.cfg.MaxTextChars / charsPerPageEstimate
		total := len(text) / charsPerPageEstimate
		payload = truncationNotice(shown, total) + "\n\n" + payload[:a.cfg.MaxTextChars]
		logger.Warn("Record text truncated for prompt",
			"file", fileName,
			"chars", len(text),
			"cap", a.cfg.MaxTextChars,
		)
	}

	sourceLabel := filepath.Base(fileName)
	if classification, err := a.ClassifyDocument(ctx, text); err == nil {
		sourceLabel = fmt.Sprintf("%s (%s)", sourceLabel, classification.DocumentType)
	} else {
		logger.Warn("Document type classification failed", "file", fileName, "err", err)
	}

	raw, err := a.client.GenerateChat(
		ctx,
		[]ai.ChatMessage{{Role: "user", Message: payload}},
		a.generateOptions()...,
	)
	if err != nil {
		return nil, fmt.Errorf("analyze record text: %w", err)
	}

	diagnoses := ParseDiagnosisResponse(raw)
	backfillSource(diagnoses, sourceLabel)
	return &AnalysisResult{
		Diagnoses:   MergeDiagnoses(diagnoses),
		RawAnalysis: raw,
	}, nil
}

func (a *Analyzer) analyzeImage(ctx context.Context, in AnalyzeInput) (*AnalysisResult, error) {
	mime := in.MimeType
	if mime == "" {
		mime = "image/png"
	}
	payload := ai.ImagePayload{
		DataURL: fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(in.Data)),
	}

	raw, err := a.client.GenerateImageAnalysis(
		ctx,
		imageExtractionPrompt,
		payload,
		a.generateOptions()...,
	)
	if err != nil {
		return nil, fmt.Errorf("analyze record image: %w", err)
	}

	diagnoses := ParseDiagnosisResponse(raw)
	backfillSource(diagnoses, filepath.Base(in.FileName))
	return &AnalysisResult{
		Diagnoses:   MergeDiagnoses(diagnoses),
		RawAnalysis: raw,
	}, nil
}

// analyzeScannedPDF handles PDFs without a usable text layer. Small files
// are first tried as a single attachment; large files, and one-shot attempts
// that produced nothing, are split into page chunks processed sequentially
// so only one chunk's bytes are in flight at a time.
func (a *Analyzer) analyzeScannedPDF(ctx context.Context, in AnalyzeInput) (*AnalysisResult, error) {
	if int64(len(in.Data)) <= a.cfg.OneShotMaxBytes {
		result, err := a.analyzeWholePDF(ctx, in)
		if err == nil && len(result.Diagnoses) > 0 {
			return result, nil
		}
		if errors.Is(err, ai.ErrFileInputUnsupported) {
			return a.fileModeUnsupportedResult(in), nil
		}
		if err != nil {
			logger.Warn("One-shot scanned PDF analysis failed, switching to chunked processing",
				"file", in.FileName, "err", err)
		} else {
			logger.Info("One-shot scanned PDF analysis found nothing, switching to chunked processing",
				"file", in.FileName)
		}
	}
	return a.analyzeChunkedPDF(ctx, in)
}

func (a *Analyzer) analyzeWholePDF(ctx context.Context, in AnalyzeInput) (*AnalysisResult, error) {
	raw, err := a.callFileModel(ctx, fileExtractionPrompt, filepath.Base(in.FileName), in.Data)
	if err != nil {
		return nil, err
	}

	diagnoses := ParseDiagnosisResponse(raw)
	backfillSource(diagnoses, filepath.Base(in.FileName))
	return &AnalysisResult{
		Diagnoses:   MergeDiagnoses(diagnoses),
		RawAnalysis: raw,
	}, nil
}

type chunkOutcome struct {
	pages     pageRange
	diagnoses []ExtractedDiagnosis
	raw       string
	err       error
}

func (a *Analyzer) analyzeChunkedPDF(ctx context.Context, in AnalyzeInput) (*AnalysisResult, error) {
	totalPages, err := pdfPageCount(in.Data)
	if err != nil {
		return nil, fmt.Errorf("read scanned pdf: %w", err)
	}

	ranges := chunkRanges(totalPages, a.cfg.ChunkPages)
	logger.Info("Processing scanned PDF in chunks",
		"file", in.FileName,
		"pages", totalPages,
		"chunks", len(ranges),
	)

	var (
		lists    [][]ExtractedDiagnosis
		sections []string
		failed   int
	)
	for _, r := range ranges {
		outcome := a.analyzeChunk(ctx, in, r, totalPages)
		if errors.Is(outcome.err, ai.ErrFileInputUnsupported) {
			return a.fileModeUnsupportedResult(in), nil
		}

		header := chunkHeader(r, totalPages)
		if outcome.err != nil {
			failed++
			logger.Warn("Chunk analysis failed",
				"file", in.FileName,
				"pages", fmt.Sprintf("%d-%d", r.Start, r.End),
				"err", outcome.err,
			)
			sections = append(sections, header+"\n[analysis failed: "+outcome.err.Error()+"]")
			continue
		}
		sections = append(sections, header+"\n"+outcome.raw)
		lists = append(lists, outcome.diagnoses)
	}

	if failed > 0 {
		logger.Warn("Scanned PDF analysis completed with failed chunks",
			"file", in.FileName,
			"failed", failed,
			"chunks", len(ranges),
		)
	}

	return &AnalysisResult{
		Diagnoses:   MergeDiagnoses(lists...),
		RawAnalysis: strings.Join(sections, "\n\n"),
	}, nil
}

// analyzeChunk splits out one page range and analyzes it. The chunk's bytes
// go out of scope when this returns, before the next chunk is built.
func (a *Analyzer) analyzeChunk(ctx context.Context, in AnalyzeInput, r pageRange, totalPages int) chunkOutcome {
	outcome := chunkOutcome{pages: r}

	chunkData, err := extractPageRange(in.Data, r)
	if err != nil {
		outcome.err = err
		return outcome
	}

	base := strings.TrimSuffix(filepath.Base(in.FileName), filepath.Ext(in.FileName))
	chunkName := fmt.Sprintf("%s.pages-%d-%d.pdf", base, r.Start, r.End)

	raw, err := a.callFileModel(ctx, chunkExtractionPrompt(r, totalPages), chunkName, chunkData)
	if err != nil {
		outcome.err = err
		return outcome
	}

	diagnoses := ParseDiagnosisResponse(raw)
	for i := range diagnoses {
		if diagnoses[i].PageNumber == "" {
			// Approximate location: the chunk's first absolute page.
			diagnoses[i].PageNumber = strconv.Itoa(r.Start)
		}
	}
	backfillSource(diagnoses, filepath.Base(in.FileName))

	outcome.diagnoses = diagnoses
	outcome.raw = raw
	return outcome
}

func (a *Analyzer) callFileModel(ctx context.Context, prompt string, fileName string, data []byte) (string, error) {
	payload := ai.FilePayload{
		Filename: fileName,
		DataURL:  "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(data),
	}
	opts := append(a.generateOptions(), ai.WithDocumentOCR())
	return a.client.GenerateChatWithFile(ctx, prompt, payload, opts...)
}

func (a *Analyzer) fileModeUnsupportedResult(in AnalyzeInput) *AnalysisResult {
	logger.Warn("AI adapter cannot process scanned documents", "file", in.FileName)
	return &AnalysisResult{
		Diagnoses:   []ExtractedDiagnosis{},
		RawAnalysis: fileModeUnsupportedMessage,
	}
}

func backfillSource(diagnoses []ExtractedDiagnosis, source string) {
	for i := range diagnoses {
		if diagnoses[i].SourceDocument == "" {
			diagnoses[i].SourceDocument = source
		}
	}
}
