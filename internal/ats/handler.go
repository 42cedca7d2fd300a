package ats

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-review/internal/shared/server/respond"
)

const maxDescriptionBytes = 256 << 10

// Handler exposes catalog lookups over HTTP.
type Handler struct {
	Catalog *Catalog
}

// NewHandler constructs a Handler.
func NewHandler(c *Catalog) *Handler {
	return &Handler{Catalog: c}
}

// RegisterRoutes attaches ATS routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/ats/match", h.match)
}

type matchRequest struct {
	Description string `json:"description"`
	Limit       int    `json:"limit"`
}

func (h *Handler) match(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxDescriptionBytes)
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "description is required", nil)
		return
	}
	if req.Limit < 0 || req.Limit > 50 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "limit must be between 0 and 50", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"systems": h.Catalog.Lookup(req.Description, req.Limit)})
}
