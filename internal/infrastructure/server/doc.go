// Package server assembles and runs the provider HTTP server.
//
// NewServer builds the application context, the mount scanner, the catalog
// and install pipeline, and a gin router carrying the middleware stack and
// every route. Run serves on a listener capped at MaxConnections and stops
// on context cancellation: the HTTP server drains first, then in-flight
// installs are cancelled and awaited.
package server
