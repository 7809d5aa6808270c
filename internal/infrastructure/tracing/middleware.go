package tracing

import (
	"github.com/gin-gonic/gin"
)

// HTTPMiddleware opens a span per request. traceID extracts the id to trace
// under, normally the request id.
func HTTPMiddleware(tracer *Tracer, traceID func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.FullPath()
		if name == "" {
			name = "unmatched"
		}

		span, ctx := tracer.StartSpan(c.Request.Context(), traceID(c), name)
		span.SetTag("http.method", c.Request.Method)
		if id := c.Param("id"); id != "" {
			span.SetTag("app_id", id)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		span.StatusCode = c.Writer.Status()
		if len(c.Errors) > 0 {
			span.Err = c.Errors.Last()
		}
		span.Finish()
		tracer.Submit(span)
	}
}
