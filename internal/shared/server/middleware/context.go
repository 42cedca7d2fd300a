package middleware

import "github.com/gin-gonic/gin"

// Context keys read by Logging and respond.Error.
const (
	DocumentIDKey = "documentId"
	SessionIDKey  = "sessionId"
	VersionIDKey  = "versionId"
)

// Tag records a domain identifier on the request for logging. Empty values are ignored.
func Tag(c *gin.Context, key, value string) {
	if c == nil || value == "" {
		return
	}
	c.Set(key, value)
}
