// Package main runs the local library provider server.
//
// The server exposes the provider operations over a REST API, streams
// provider events over a WebSocket, and serves Prometheus metrics.
//
// Configuration comes from the environment (see internal/infrastructure/config).
// A .env file in the working directory, or the file named by -env, is
// loaded first when present.
//
// Usage:
//
//	# Production mode
//	HOME_LIBRARY=/srv/games ./server
//
//	# Development mode (colored logs, debug level)
//	./server -dev -port 8080
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
