package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	SubmissionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusmath_submissions_total",
			Help: "Answer submissions recorded, by subject and correctness",
		},
		[]string{"subject", "correct"},
	)

	DifficultyChangeCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusmath_difficulty_changes_total",
			Help: "Adaptive difficulty steps, by direction",
		},
		[]string{"direction"},
	)

	RewardCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusmath_rewards_emitted_total",
			Help: "Rewards emitted, by type",
		},
		[]string{"type"},
	)

	VersionConflictCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "focusmath_performance_version_conflicts_total",
			Help: "Optimistic lock conflicts while updating performance records",
		},
	)

	QuestionsGeneratedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusmath_questions_generated_total",
			Help: "Questions generated by the AI provider, by subject",
		},
		[]string{"subject"},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			SubmissionCounter,
			DifficultyChangeCounter,
			RewardCounter,
			VersionConflictCounter,
			QuestionsGeneratedCounter,
		)
	})
}

// RecordDifficultyChange 按升降方向计数，不变时忽略
func RecordDifficultyChange(before, after int) {
	switch {
	case after > before:
		DifficultyChangeCounter.WithLabelValues("up").Inc()
	case after < before:
		DifficultyChangeCounter.WithLabelValues("down").Inc()
	}
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
