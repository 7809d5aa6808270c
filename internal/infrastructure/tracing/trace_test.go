package tracing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/GriffinCanCode/librarian/internal/infrastructure/logging"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestHTTPMiddlewareLogsSpan(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	tracer := New("test", &logging.Logger{Logger: zap.New(core)})

	var seen string
	router := gin.New()
	router.Use(HTTPMiddleware(tracer, func(*gin.Context) string { return "req-1" }))
	router.GET("/items/:id", func(c *gin.Context) {
		seen = TraceID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/items/game1", nil))
	tracer.Close()

	assert.Equal(t, "req-1", seen)
	entries := logs.FilterMessage("span completed").All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "req-1", fields["trace_id"])
		assert.Equal(t, "/items/:id", fields["operation"])
		assert.Equal(t, "game1", fields["app_id"])
		assert.EqualValues(t, http.StatusNoContent, fields["status"])
	}
}

func TestSubmitDropsWhenFull(t *testing.T) {
	tracer := &Tracer{logger: logging.NewNop(), spans: make(chan *Span, 1)}
	tracer.Submit(&Span{})
	tracer.Submit(&Span{})
	assert.EqualValues(t, 1, tracer.Dropped())
}
