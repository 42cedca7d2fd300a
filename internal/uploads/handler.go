package uploads

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-review/internal/extract"
	"resume-review/internal/shared/server/middleware"
	"resume-review/internal/shared/server/respond"
	"resume-review/internal/versions"
)

const maxUploadBytes = 5 << 20

// Handler accepts multipart uploads.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches upload routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/uploads", h.upload)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes+(1<<20))

	documentID := strings.TrimSpace(c.PostForm("documentId"))
	if documentID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "documentId is required", nil)
		return
	}
	middleware.Tag(c, middleware.DocumentIDKey, documentID)

	fh, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	if fh.Size > maxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds upload limit", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	res, err := h.Svc.Ingest(c.Request.Context(), Input{
		DocumentID:        documentID,
		FileName:          fh.Filename,
		TargetDescription: c.PostForm("targetDescription"),
		Data:              data,
	})
	switch {
	case err == nil:
	case errors.Is(err, extract.ErrUnsupportedType):
		respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_media_type", "file type is not supported", nil)
		return
	case errors.Is(err, ErrEmptyDocument):
		respond.Error(c, http.StatusUnprocessableEntity, "empty_document", "no text found in document", nil)
		return
	case errors.Is(err, versions.ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to process upload", nil)
		return
	}
	middleware.Tag(c, middleware.VersionIDKey, res.Version.ID)
	respond.JSON(c, http.StatusCreated, res)
}
