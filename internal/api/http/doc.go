// Package http provides the REST handlers of the library provider API.
//
// Every provider operation maps to one route under /api/v1. Failures reply
// with {"code": ..., "error": ...} where code is the stable error code and
// the HTTP status follows from it.
//
// Endpoints:
//   - Plugin: /api/v1/plugin
//   - Auth: /api/v1/auth/public-key, /login, /logout, /user
//   - Library: /api/v1/library/installed, /items, /refresh, /updates
//   - Items: /api/v1/library/items/:id and its metadata, launch-options,
//     install-options, eulas, post-install, pre-launch, install, pause,
//     import and move sub-routes
//
// Example Usage:
//
//	handlers := http.NewHandlers(provider)
//	http.Register(router.Group("/api/v1"), handlers)
package http
