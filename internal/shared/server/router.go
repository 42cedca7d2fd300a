package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-review/internal/ats"
	"resume-review/internal/reviews"
	"resume-review/internal/shared/config"
	"resume-review/internal/shared/metrics"
	"resume-review/internal/shared/server/middleware"
	"resume-review/internal/shared/server/respond"
	"resume-review/internal/uploads"
	"resume-review/internal/versions"
)

const (
	rateGroupDefault = "DEFAULT"
	rateGroupReview  = "REVIEW"
)

// RouterDeps are the handlers mounted under /api/v1. Nil handlers are skipped.
type RouterDeps struct {
	Config          config.Config
	VersionsHandler *versions.Handler
	ReviewsHandler  *reviews.Handler
	ATSHandler      *ats.Handler
	UploadsHandler  *uploads.Handler
	// Health reports dependency status for /health; nil means always healthy.
	Health func() map[string]any
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.RateLimit(rateLimitConfig(deps.Config)),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		body := gin.H{"ok": true}
		if deps.Health != nil {
			for k, v := range deps.Health() {
				body[k] = v
			}
		}
		respond.JSON(c, http.StatusOK, body)
	})

	if deps.VersionsHandler != nil {
		deps.VersionsHandler.RegisterRoutes(api)
	}
	if deps.ReviewsHandler != nil {
		deps.ReviewsHandler.RegisterRoutes(api)
	}
	if deps.ATSHandler != nil {
		deps.ATSHandler.RegisterRoutes(api)
	}
	if deps.UploadsHandler != nil {
		deps.UploadsHandler.RegisterRoutes(api)
	}

	return r
}

func rateLimitConfig(cfg config.Config) middleware.RateLimitConfig {
	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 20
	}
	reviewBurst := burst / 4
	if reviewBurst < 1 {
		reviewBurst = 1
	}
	return middleware.RateLimitConfig{
		DefaultGroup: rateGroupDefault,
		GroupFor:     rateGroupFor,
		Rules: map[string]middleware.RateLimitRule{
			rateGroupDefault: {Rate: rps, Burst: burst},
			rateGroupReview:  {Rate: rps / 5, Burst: reviewBurst},
		},
	}
}

// rateGroupFor puts every request that can reach the analyzer into the review group.
func rateGroupFor(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return rateGroupDefault
	}
	if strings.HasPrefix(c.FullPath(), "/api/v1/reviews") {
		return rateGroupReview
	}
	return rateGroupDefault
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
