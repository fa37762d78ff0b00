// Package metrics exposes the Prometheus collectors shared by the HTTP, database and domain layers.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "leap"

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	dbQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "db_query_duration_seconds",
		Help:      "Database query latency by operation and table.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"operation", "table"})

	dbReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "db_reconnects_total",
		Help:      "Successful database reconnections.",
	})

	generationAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generation_attempts_total",
		Help:      "Calls to the generative text service by outcome.",
	}, []string{"outcome"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "content_cache_lookups_total",
		Help:      "Lesson content lookups by tier and result.",
	}, []string{"tier", "result"})

	videoSearches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "video_searches_total",
		Help:      "Calls made to the video search provider.",
	})

	certificateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "certificate_transitions_total",
		Help:      "Certificate state changes by target status.",
	}, []string{"status"})

	jobRuns = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_seconds",
		Help:      "Background job runs by job and outcome.",
		Buckets:   []float64{.01, .05, .25, 1, 5, 30, 120},
	}, []string{"job", "outcome"})
)

// Middleware records request count and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordDBQuery observes one database statement.
func RecordDBQuery(operation, table string, elapsed time.Duration) {
	dbQueryDuration.WithLabelValues(operation, table).Observe(elapsed.Seconds())
}

// RecordDBReconnect counts a recovered database connection.
func RecordDBReconnect() {
	dbReconnects.Inc()
}

// RecordGeneration counts one attempt against the generative service.
// outcome is "ok", "overloaded" or "error".
func RecordGeneration(outcome string) {
	generationAttempts.WithLabelValues(outcome).Inc()
}

// RecordCacheLookup counts a content cache probe.
func RecordCacheLookup(tier string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(tier, result).Inc()
}

// RecordVideoSearch counts a call to the video search provider.
func RecordVideoSearch() {
	videoSearches.Inc()
}

// RecordCertificateTransition counts a certificate moving into status.
func RecordCertificateTransition(status string) {
	certificateTransitions.WithLabelValues(status).Inc()
}

// RecordJobRun observes one background job execution.
func RecordJobRun(job string, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	jobRuns.WithLabelValues(job, outcome).Observe(elapsed.Seconds())
}
