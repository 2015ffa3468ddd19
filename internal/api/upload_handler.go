package api

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arnb-smnta/chatline/internal/auth"
	"github.com/arnb-smnta/chatline/internal/service"
)

// UploadHandler handles attachment staging uploads.
type UploadHandler struct {
	service *service.UploadService
}

// NewUploadHandler creates an UploadHandler.
func NewUploadHandler(svc *service.UploadService) *UploadHandler {
	return &UploadHandler{service: svc}
}

// Upload handles POST /api/v1/chats/:id/attachments.
//
// Expects a multipart form with one or more parts under the "files" field.
// Returns the staged attachments whose IDs can be claimed by a later send.
func (h *UploadHandler) Upload(c echo.Context) error {
	userID := auth.GetUserID(c)

	chatID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid chat ID")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_BODY", "expected multipart form data")
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		return Error(c, http.StatusBadRequest, "NO_FILES", "no files provided")
	}

	files := make([]service.UploadFile, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		files = append(files, service.UploadFile{
			Filename:    fh.Filename,
			Size:        fh.Size,
			ContentType: fh.Header.Get("Content-Type"),
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}

	staged, err := h.service.UploadFiles(c.Request().Context(), chatID, userID, files)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, staged)
}
