package routes

import (
	"fmt"
	"net/http"

	"github.com/claimpilot/backend/internal/server/middleware"
	"github.com/claimpilot/backend/internal/storage"
	"github.com/claimpilot/backend/pkg/logger"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// UploadEvidenceHandler stores an evidence document in the bucket so it can
// be analyzed later by storage key.
func UploadEvidenceHandler(c echo.Context) error {
	type uploadResponse struct {
		Message     string `json:"message"`
		StorageKey  string `json:"storage_key,omitempty"`
		FileName    string `json:"file_name,omitempty"`
		DownloadURL string `json:"download_url,omitempty"`
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	upload, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, uploadResponse{
			Message: "No file provided",
		})
	}
	src, err := upload.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, uploadResponse{
			Message: "Could not open uploaded file",
		})
	}
	defer src.Close()

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	fId, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, uploadResponse{
			Message: "Internal server error",
		})
	}

	key, err := storage.PutFile(
		ctx,
		app.S3,
		fmt.Sprintf("evidence/%d", user.UserID),
		upload.Filename,
		fId,
		src,
	)
	if err != nil {
		logger.Error("Failed to upload evidence document", "err", err)
		return c.JSON(http.StatusInternalServerError, uploadResponse{
			Message: "Internal server error",
		})
	}

	link, err := storage.GenerateDownloadLink(ctx, app.S3, key)
	if err != nil {
		logger.Error("Failed to presign evidence document", "key", key, "err", err)
		link = ""
	}

	return c.JSON(http.StatusOK, uploadResponse{
		Message:     "Evidence uploaded",
		StorageKey:  key,
		FileName:    upload.Filename,
		DownloadURL: link,
	})
}

// DeleteEvidenceHandler removes an evidence document from the bucket.
func DeleteEvidenceHandler(c echo.Context) error {
	type deleteRequest struct {
		StorageKey string `form:"storage_key" json:"storage_key" validate:"required"`
	}

	data := new(deleteRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	app := c.(*middleware.AppContext).App
	if err := storage.DeleteFile(c.Request().Context(), app.S3, data.StorageKey); err != nil {
		logger.Error("Failed to delete evidence document", "key", data.StorageKey, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Evidence deleted"})
}
