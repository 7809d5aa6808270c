package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		reqSize := c.Request.ContentLength
		if reqSize < 0 {
			reqSize = 0
		}

		c.Next()

		// Route templates keep label cardinality bounded
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		duration := time.Since(start)
		status := strconv.Itoa(c.Writer.Status())
		respSize := int64(c.Writer.Size())
		if respSize < 0 {
			respSize = 0
		}

		metrics.RecordHTTPRequest(method, path, status, duration, reqSize, respSize)
	}
}

// Timer measures an install session
type Timer struct {
	start   time.Time
	metrics *Metrics
}

// NewInstallTimer marks an install as started and begins timing it
func NewInstallTimer(metrics *Metrics) *Timer {
	metrics.InstallStarted()
	return &Timer{
		start:   time.Now(),
		metrics: metrics,
	}
}

// Stop records the result and duration
func (t *Timer) Stop(result string) {
	t.metrics.InstallFinished(result, time.Since(t.start))
}

// Elapsed returns the time since the timer started
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
