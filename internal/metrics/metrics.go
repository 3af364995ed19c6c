// Package metrics exposes Prometheus collectors for the HTTP layer and the
// exam delivery engine.
package metrics

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
			Name: "eduassess_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eduassess_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	AttemptsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eduassess_attempts_started_total",
			Help: "Attempts created after passing the duplicate guard",
		},
	)

	AttemptsFinalized = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eduassess_attempts_finalized_total",
			Help: "Attempts finalized, by reason (timeout or manual)",
		},
		[]string{"reason"},
	)

	DuplicateRefusals = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eduassess_duplicate_attempts_refused_total",
			Help: "Attempt starts refused because the student already submitted",
		},
	)

	ActiveAttempts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "eduassess_active_attempts",
			Help: "Attempts currently counting down",
		},
	)

	ScorePercent = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eduassess_score_percent",
			Help:    "Distribution of finalized scores as a percentage of total points",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		},
	)

	ArchiveFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eduassess_archive_failures_total",
			Help: "Submissions that could not be written to the record store",
		},
	)
)

var initOnce sync.Once

// Init registers every collector with the default registry. Safe to call
// more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			AttemptsStarted,
			AttemptsFinalized,
			DuplicateRefusals,
			ActiveAttempts,
			ScorePercent,
			ArchiveFailures,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
