// Package tracing records one span per HTTP request.
//
// A span carries the request id assigned by the request id middleware, the
// matched route, the status and the elapsed time. Finished spans are handed
// to a collector goroutine that writes them to the structured log so the
// request path never blocks on logging; when the collector falls behind,
// spans are dropped and counted.
//
// Example Usage:
//
//	tracer := tracing.New("librarian", logger)
//	defer tracer.Close()
//	router.Use(tracing.HTTPMiddleware(tracer, middleware.GetRequestID))
package tracing
