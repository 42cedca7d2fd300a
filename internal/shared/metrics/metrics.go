package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var durationBucketsMs = []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000}

var (
	stageStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_stage_started_total",
		Help: "Total review stages started",
	}, []string{"stage"})
	stageCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_stage_completed_total",
		Help: "Total review stages completed",
	}, []string{"stage"})
	stageFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_stage_failed_total",
		Help: "Total review stages failed",
	}, []string{"stage", "reason"})
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "review_stage_duration_ms",
		Help:    "Review stage duration in milliseconds",
		Buckets: durationBucketsMs,
	}, []string{"stage"})

	sessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "review_sessions_started_total",
		Help: "Total review sessions started",
	})
	reviewVersionsCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "review_versions_committed_total",
		Help: "Total rewritten versions committed by completed reviews",
	})
	versionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "document_versions_created_total",
		Help: "Total document versions created",
	})

	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "analyzer_breaker_state",
		Help: "Analyzer circuit breaker state (0 closed, 1 half-open, 2 open)",
	}, []string{"name"})

	jobsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "review_jobs_received_total",
		Help: "Total review jobs received by workers",
	})
	jobsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "review_jobs_completed_total",
		Help: "Total review jobs completed by workers",
	})
	jobsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "review_jobs_failed_total",
		Help: "Total review jobs failed in workers",
	})
	jobsDeletedUnrecoverable = promauto.NewCounter(prometheus.CounterOpts{
		Name: "review_jobs_deleted_unrecoverable_total",
		Help: "Total review jobs deleted because they could not be decoded",
	})

	notificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_dropped_total",
		Help: "Total notification events dropped because the sink buffer was full",
	})
)

// IncStageStarted increments the started counter for stage.
func IncStageStarted(stage string) {
	stageStarted.WithLabelValues(stage).Inc()
}

// IncStageCompleted increments the completed counter for stage.
func IncStageCompleted(stage string) {
	stageCompleted.WithLabelValues(stage).Inc()
}

// IncStageFailed increments the failed counter for stage.
func IncStageFailed(stage, reason string) {
	stageFailed.WithLabelValues(stage, reason).Inc()
}

// ObserveStageDurationMs records a stage duration in milliseconds.
func ObserveStageDurationMs(stage string, value float64) {
	if value < 0 {
		value = 0
	}
	stageDuration.WithLabelValues(stage).Observe(value)
}

func IncSessionsStarted() { sessionsStarted.Inc() }
func IncReviewVersionsCommitted() { reviewVersionsCommitted.Inc() }
func IncVersionsCreated() { versionsCreated.Inc() }

// SetBreakerState records the circuit breaker state for name.
func SetBreakerState(name string, state float64) {
	breakerState.WithLabelValues(name).Set(state)
}

func IncReviewJobsReceived() { jobsReceived.Inc() }
func IncReviewJobsCompleted() { jobsCompleted.Inc() }
func IncReviewJobsFailed() { jobsFailed.Inc() }
func IncReviewJobsDeletedUnrecoverable() { jobsDeletedUnrecoverable.Inc() }
func IncNotificationsDropped() { notificationsDropped.Inc() }

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// SinceMs returns the milliseconds elapsed since start.
func SinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
