package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareCountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware())
	router.GET("/api/courses/:courseId", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/courses/:courseId", "204"))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/courses/abc", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/courses/def", nil))

	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/courses/:courseId", "204"))
	assert.Equal(t, before+2, after)
}

func TestRecordCacheLookup(t *testing.T) {
	before := testutil.ToFloat64(cacheLookups.WithLabelValues("memory", "hit"))
	RecordCacheLookup("memory", true)
	RecordCacheLookup("memory", false)
	assert.Equal(t, before+1, testutil.ToFloat64(cacheLookups.WithLabelValues("memory", "hit")))
}

func TestRecordJobRunSplitsOutcomes(t *testing.T) {
	RecordJobRun("sweep", nil, 10*time.Millisecond)
	RecordJobRun("sweep", errors.New("boom"), time.Second)

	assert.Equal(t, 2, testutil.CollectAndCount(jobRuns, "leap_job_duration_seconds"))
}
