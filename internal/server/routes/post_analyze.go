package routes

import (
	"io"
	"net/http"
	"time"

	"github.com/claimpilot/backend/internal/queue"
	"github.com/claimpilot/backend/internal/server/middleware"
	"github.com/claimpilot/backend/internal/storage"
	"github.com/claimpilot/backend/pkg/ai"
	"github.com/claimpilot/backend/pkg/analyzer"
	"github.com/claimpilot/backend/pkg/logger"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// AnalyzeClaimHandler runs the diagnosis extraction pipeline over one medical
// record. The record arrives either as a multipart upload ("file") or as a
// storage key referencing a previously uploaded evidence document.
func AnalyzeClaimHandler(c echo.Context) error {
	type analyzeRequest struct {
		StorageKey    string `form:"storage_key" json:"storage_key"`
		FileName      string `form:"file_name" json:"file_name"`
		MimeType      string `form:"mime_type" json:"mime_type"`
		ExtractedText string `form:"extracted_text" json:"extracted_text"`
		Model         string `form:"model" json:"model"`
	}

	type analyzeResponse struct {
		Message     string                        `json:"message"`
		AnalysisID  string                        `json:"analysis_id,omitempty"`
		FileName    string                        `json:"file_name,omitempty"`
		Diagnoses   []analyzer.ExtractedDiagnosis `json:"diagnoses"`
		RawAnalysis string                        `json:"raw_analysis,omitempty"`
		Metrics     *ai.ModelMetrics              `json:"metrics,omitempty"`
	}

	data := new(analyzeRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, analyzeResponse{
			Message:   "Invalid request body",
			Diagnoses: []analyzer.ExtractedDiagnosis{},
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, analyzeResponse{
			Message:   "Invalid request body",
			Diagnoses: []analyzer.ExtractedDiagnosis{},
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	var (
		fileBytes []byte
		fileName  = data.FileName
		mimeType  = data.MimeType
	)

	if upload, err := c.FormFile("file"); err == nil {
		src, err := upload.Open()
		if err != nil {
			return c.JSON(http.StatusBadRequest, analyzeResponse{
				Message:   "Could not open uploaded file",
				Diagnoses: []analyzer.ExtractedDiagnosis{},
			})
		}
		defer src.Close()

		fileBytes, err = io.ReadAll(src)
		if err != nil {
			return c.JSON(http.StatusBadRequest, analyzeResponse{
				Message:   "Could not read uploaded file",
				Diagnoses: []analyzer.ExtractedDiagnosis{},
			})
		}
		if fileName == "" {
			fileName = upload.Filename
		}
		if mimeType == "" {
			mimeType = upload.Header.Get("Content-Type")
		}
	} else if data.StorageKey != "" {
		fileBytes, err = storage.GetFile(ctx, app.S3, data.StorageKey)
		if err != nil {
			logger.Error("Failed to fetch evidence document", "key", data.StorageKey, "err", err)
			return c.JSON(http.StatusNotFound, analyzeResponse{
				Message:   "Evidence document not found",
				Diagnoses: []analyzer.ExtractedDiagnosis{},
			})
		}
		if fileName == "" {
			fileName = data.StorageKey
		}
	} else if data.ExtractedText == "" {
		return c.JSON(http.StatusBadRequest, analyzeResponse{
			Message:   "Provide a file upload, a storage_key, or extracted_text",
			Diagnoses: []analyzer.ExtractedDiagnosis{},
		})
	}

	analysisID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, analyzeResponse{
			Message:   "Internal server error",
			Diagnoses: []analyzer.ExtractedDiagnosis{},
		})
	}

	cfg := analyzer.ConfigFromEnv()
	if data.Model != "" {
		cfg.Model = data.Model
	}
	an := analyzer.New(app.AiClient, cfg)

	result, err := an.Analyze(ctx, analyzer.AnalyzeInput{
		Data:             fileBytes,
		MimeType:         mimeType,
		FileName:         fileName,
		PreExtractedText: data.ExtractedText,
	})
	if err != nil {
		logger.Error("Analysis failed", "analysis_id", analysisID, "file", fileName, "err", err)
		return c.JSON(http.StatusInternalServerError, analyzeResponse{
			Message:   "Failed to analyze document",
			Diagnoses: []analyzer.ExtractedDiagnosis{},
		})
	}

	err = queue.PublishAnalysisCompleted(app.Queue, queue.AnalysisCompletedEvent{
		AnalysisID:     analysisID,
		UserID:         user.UserID,
		FileName:       fileName,
		StorageKey:     data.StorageKey,
		DiagnosisCount: len(result.Diagnoses),
		CompletedAt:    time.Now().UTC(),
	})
	if err != nil {
		logger.Error("Failed to publish analysis event", "analysis_id", analysisID, "err", err)
	}

	metrics := app.AiClient.GetMetrics()
	return c.JSON(http.StatusOK, analyzeResponse{
		Message:     "Analysis completed",
		AnalysisID:  analysisID,
		FileName:    fileName,
		Diagnoses:   result.Diagnoses,
		RawAnalysis: result.RawAnalysis,
		Metrics:     &metrics,
	})
}
