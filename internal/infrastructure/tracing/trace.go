package tracing

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/librarian/internal/infrastructure/logging"
	"go.uber.org/zap"
)

type contextKey string

const traceIDKey contextKey = "trace_id"

// Span is a single traced operation
type Span struct {
	TraceID    string
	Name       string
	Service    string
	StartTime  time.Time
	Duration   time.Duration
	Tags       map[string]string
	StatusCode int
	Err        error
}

// SetTag adds a tag to the span
func (s *Span) SetTag(key, value string) {
	s.Tags[key] = value
}

// Finish stamps the duration
func (s *Span) Finish() {
	s.Duration = time.Since(s.StartTime)
}

// Tracer collects finished spans
type Tracer struct {
	service string
	logger  *logging.Logger
	spans   chan *Span
	dropped atomic.Int64
	wg      sync.WaitGroup
	once    sync.Once
}

// New creates a tracer and starts its collector
func New(service string, logger *logging.Logger) *Tracer {
	if logger == nil {
		logger = logging.NewNop()
	}
	t := &Tracer{
		service: service,
		logger:  logger.Named("trace"),
		spans:   make(chan *Span, 1000),
	}
	t.wg.Add(1)
	go t.collect()
	return t
}

// StartSpan opens a span under traceID and stores the id in ctx
func (t *Tracer) StartSpan(ctx context.Context, traceID, name string) (*Span, context.Context) {
	span := &Span{
		TraceID:   traceID,
		Name:      name,
		Service:   t.service,
		StartTime: time.Now(),
		Tags:      make(map[string]string),
	}
	return span, context.WithValue(ctx, traceIDKey, traceID)
}

// Submit queues a finished span, dropping it when the queue is full
func (t *Tracer) Submit(span *Span) {
	select {
	case t.spans <- span:
	default:
		t.dropped.Add(1)
	}
}

// Dropped reports spans lost to a full queue
func (t *Tracer) Dropped() int64 {
	return t.dropped.Load()
}

// Close drains queued spans and stops the collector
func (t *Tracer) Close() {
	t.once.Do(func() {
		close(t.spans)
		t.wg.Wait()
	})
}

func (t *Tracer) collect() {
	defer t.wg.Done()
	for span := range t.spans {
		fields := []zap.Field{
			zap.String("trace_id", span.TraceID),
			zap.String("operation", span.Name),
			zap.Int("status", span.StatusCode),
			zap.Duration("duration", span.Duration),
		}
		for k, v := range span.Tags {
			fields = append(fields, zap.String(k, v))
		}
		if span.Err != nil {
			t.logger.Warn("span completed with error", append(fields, zap.Error(span.Err))...)
			continue
		}
		t.logger.Debug("span completed", fields...)
	}
}

// TraceID returns the trace id stored in ctx
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}
