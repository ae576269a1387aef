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
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	AnswersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_answers_submitted_total",
			Help: "Answers recorded by activity type",
		},
		[]string{"tipo"},
	)

	ContentsConcluded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lms_contents_concluded_total",
			Help: "Successful content conclusion calls",
		},
	)

	TemplatesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lms_templates_dropped_total",
			Help: "Templates excluded from a sequence because the fetch failed",
		},
	)

	CertificateConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lms_certificate_conflicts_total",
			Help: "Level conflicts detected while saving certificates",
		},
	)

	PartialCommits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_partial_commits_total",
			Help: "Multi-step writes that failed after earlier steps were applied",
		},
		[]string{"flow", "step"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(AnswersSubmitted)
		prometheus.MustRegister(ContentsConcluded)
		prometheus.MustRegister(TemplatesDropped)
		prometheus.MustRegister(CertificateConflicts)
		prometheus.MustRegister(PartialCommits)
	})
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
