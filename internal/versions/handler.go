package versions

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-review/internal/shared/server/middleware"
	"resume-review/internal/shared/server/respond"
)

const maxContentBytes = 1 << 20

// Handler wires HTTP handlers to the version store.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches version routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/:documentId/versions", h.create)
	rg.GET("/documents/:documentId/versions", h.list)
	rg.GET("/documents/:documentId/versions/current", h.current)
	rg.GET("/documents/:documentId/history", h.history)
	rg.GET("/documents/:documentId/improvement", h.improvement)
	rg.GET("/versions/compare", h.compare)
	rg.GET("/versions/:versionId", h.get)
	rg.POST("/versions/:versionId/restore", h.restore)
}

type createVersionRequest struct {
	Content           string         `json:"content"`
	TargetDescription *string        `json:"targetDescription"`
	Score             *float64       `json:"score"`
	Metadata          map[string]any `json:"metadata"`
}

func (h *Handler) create(c *gin.Context) {
	documentID := strings.TrimSpace(c.Param("documentId"))
	middleware.Tag(c, middleware.DocumentIDKey, documentID)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxContentBytes)

	var req createVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "content is required", nil)
		return
	}

	v, err := h.Svc.CreateVersion(c.Request.Context(), CreateInput{
		DocumentID:        documentID,
		Content:           req.Content,
		TargetDescription: req.TargetDescription,
		Score:             req.Score,
		Metadata:          req.Metadata,
	})
	if err != nil {
		writeError(c, err, "failed to create version")
		return
	}
	middleware.Tag(c, middleware.VersionIDKey, v.ID)
	respond.JSON(c, http.StatusCreated, v)
}

func (h *Handler) list(c *gin.Context) {
	documentID := c.Param("documentId")
	middleware.Tag(c, middleware.DocumentIDKey, documentID)
	list, err := h.Svc.GetAllVersions(c.Request.Context(), documentID)
	if err != nil {
		writeError(c, err, "failed to list versions")
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"versions": list})
}

func (h *Handler) current(c *gin.Context) {
	documentID := c.Param("documentId")
	middleware.Tag(c, middleware.DocumentIDKey, documentID)
	v, err := h.Svc.GetCurrentVersion(c.Request.Context(), documentID)
	if err != nil {
		writeError(c, err, "failed to fetch version")
		return
	}
	middleware.Tag(c, middleware.VersionIDKey, v.ID)
	respond.JSON(c, http.StatusOK, v)
}

func (h *Handler) history(c *gin.Context) {
	documentID := c.Param("documentId")
	middleware.Tag(c, middleware.DocumentIDKey, documentID)
	entries, err := h.Svc.GetVersionHistory(c.Request.Context(), documentID)
	if err != nil {
		writeError(c, err, "failed to fetch history")
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"history": entries})
}

func (h *Handler) improvement(c *gin.Context) {
	documentID := c.Param("documentId")
	middleware.Tag(c, middleware.DocumentIDKey, documentID)
	m, err := h.Svc.GetImprovementMetrics(c.Request.Context(), documentID)
	if err != nil {
		writeError(c, err, "failed to compute improvement")
		return
	}
	respond.JSON(c, http.StatusOK, m)
}

func (h *Handler) get(c *gin.Context) {
	versionID := c.Param("versionId")
	middleware.Tag(c, middleware.VersionIDKey, versionID)
	v, err := h.Svc.GetVersion(c.Request.Context(), versionID)
	if err != nil {
		writeError(c, err, "failed to fetch version")
		return
	}
	middleware.Tag(c, middleware.DocumentIDKey, v.DocumentID)
	respond.JSON(c, http.StatusOK, v)
}

func (h *Handler) compare(c *gin.Context) {
	from := strings.TrimSpace(c.Query("from"))
	to := strings.TrimSpace(c.Query("to"))
	if from == "" || to == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "from and to are required", nil)
		return
	}
	d, err := h.Svc.CompareVersions(c.Request.Context(), from, to)
	if err != nil {
		writeError(c, err, "failed to compare versions")
		return
	}
	respond.JSON(c, http.StatusOK, d)
}

type restoreRequest struct {
	Metadata map[string]any `json:"metadata"`
}

func (h *Handler) restore(c *gin.Context) {
	versionID := c.Param("versionId")
	var req restoreRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return
		}
	}
	v, err := h.Svc.RestoreVersion(c.Request.Context(), versionID, req.Metadata)
	if err != nil {
		writeError(c, err, "failed to restore version")
		return
	}
	middleware.Tag(c, middleware.DocumentIDKey, v.DocumentID)
	middleware.Tag(c, middleware.VersionIDKey, v.ID)
	respond.JSON(c, http.StatusCreated, v)
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "version not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
