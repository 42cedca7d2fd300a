package reviews

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-review/internal/llm"
	"resume-review/internal/review"
	"resume-review/internal/shared/server/middleware"
	"resume-review/internal/shared/server/respond"
)

const maxContentBytes = 1 << 20

// Handler exposes review sessions over HTTP.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches review routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/reviews", h.start)
	rg.GET("/reviews/:id", h.get)
	rg.POST("/reviews/:id/advance", h.advance)
	rg.POST("/reviews/:id/stages/:stage", h.runStage)
	rg.POST("/reviews/:id/run", h.run)
	rg.GET("/documents/:documentId/reviews", h.listByDocument)
}

type sessionResponse struct {
	Session
	NextStage review.Stage `json:"nextStage"`
}

func toResponse(s Session) sessionResponse {
	return sessionResponse{Session: s, NextStage: s.Result.Stage()}
}

func (h *Handler) start(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxContentBytes)
	var req StartInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	middleware.Tag(c, middleware.DocumentIDKey, strings.TrimSpace(req.DocumentID))

	session, err := h.Svc.Start(c.Request.Context(), req)
	if err != nil {
		writeError(c, err, "failed to start review")
		return
	}
	middleware.Tag(c, middleware.SessionIDKey, session.ID)
	middleware.Tag(c, middleware.VersionIDKey, session.BaseVersionID)
	respond.JSON(c, http.StatusCreated, toResponse(session))
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	middleware.Tag(c, middleware.SessionIDKey, id)
	session, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "failed to load review")
		return
	}
	middleware.Tag(c, middleware.DocumentIDKey, session.DocumentID)
	respond.JSON(c, http.StatusOK, toResponse(session))
}

func (h *Handler) listByDocument(c *gin.Context) {
	documentID := c.Param("documentId")
	middleware.Tag(c, middleware.DocumentIDKey, documentID)
	list, err := h.Svc.ListByDocument(c.Request.Context(), documentID)
	if err != nil {
		writeError(c, err, "failed to list reviews")
		return
	}
	out := make([]sessionResponse, 0, len(list))
	for _, s := range list {
		out = append(out, toResponse(s))
	}
	respond.JSON(c, http.StatusOK, gin.H{"reviews": out})
}

func (h *Handler) advance(c *gin.Context) {
	id := c.Param("id")
	middleware.Tag(c, middleware.SessionIDKey, id)
	result, err := h.Svc.Advance(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "failed to advance review")
		return
	}
	respond.JSON(c, http.StatusOK, result)
}

func (h *Handler) runStage(c *gin.Context) {
	id := c.Param("id")
	middleware.Tag(c, middleware.SessionIDKey, id)
	stage, err := review.ParseStage(c.Param("stage"))
	if err != nil || !stage.Runnable() {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unknown stage", nil)
		return
	}
	result, err := h.Svc.RunStage(c.Request.Context(), id, stage)
	if err != nil {
		writeError(c, err, "failed to run stage")
		return
	}
	respond.JSON(c, http.StatusOK, result)
}

func (h *Handler) run(c *gin.Context) {
	id := c.Param("id")
	middleware.Tag(c, middleware.SessionIDKey, id)

	if c.Query("async") == "true" {
		if err := h.Svc.Enqueue(c.Request.Context(), id, middleware.RequestIDFromContext(c)); err != nil {
			writeError(c, err, "failed to queue review")
			return
		}
		respond.JSON(c, http.StatusAccepted, gin.H{
			"sessionId": id,
			"status":    "queued",
		})
		return
	}

	result, err := h.Svc.RunToCompletion(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "failed to run review")
		return
	}
	respond.JSON(c, http.StatusOK, result)
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "review not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, review.ErrOutOfOrderStage):
		respond.Error(c, http.StatusConflict, "stage_out_of_order", "stage cannot run yet", nil)
	case errors.Is(err, review.ErrReviewComplete):
		respond.Error(c, http.StatusConflict, "review_complete", "review already complete", nil)
	case errors.Is(err, review.ErrMalformedResponse):
		respond.Error(c, http.StatusBadGateway, "analyzer_malformed", "the analyzer response could not be used, try again", nil)
	case errors.Is(err, llm.ErrUnavailable), errors.Is(err, llm.ErrNotConfigured):
		respond.Error(c, http.StatusServiceUnavailable, "analyzer_unavailable", "the analyzer is unavailable, try again later", nil)
	case errors.Is(err, ErrQueueNotConfigured):
		respond.Error(c, http.StatusServiceUnavailable, "queue_not_configured", "background processing is not available", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
