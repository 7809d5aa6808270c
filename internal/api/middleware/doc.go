// Package middleware provides the gin middleware of the provider API.
//
// Stack, in order:
//   - RequestID: tags each request with an X-Request-ID (uuid)
//   - CORS: cross-origin access for local host UIs
//   - RateLimit: per-IP token bucket with idle client eviction
//
// Recovery comes from gin and metrics from the monitoring package.
//
// Example Usage:
//
//	router.Use(middleware.RequestID())
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
