package respond

import (
	"github.com/gin-gonic/gin"

	"resume-review/internal/shared/telemetry"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	for _, key := range []string{"documentId", "sessionId", "versionId"} {
		if v := c.GetString(key); v != "" {
			fields[snakeKey(key)] = v
		}
	}
	telemetry.Error("http.error", fields)

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func snakeKey(key string) string {
	switch key {
	case "documentId":
		return "document_id"
	case "sessionId":
		return "session_id"
	case "versionId":
		return "version_id"
	}
	return key
}
