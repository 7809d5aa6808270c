/*
Package monitoring provides Prometheus metrics for the library provider.

# Overview

Each Metrics value owns a private registry, so tests and multiple servers in
one process never collide on registration.

# Metrics

- HTTP request metrics (latency, throughput, size)
- Install sessions (active, finished by result, duration, bytes transferred)
- Uninstalls by result
- Catalog entries skipped during bulk listing
- Login attempts by result
- Published and dropped events, open event streams

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewInstallTimer(metrics)
	// ... run the install ...
	timer.Stop("completed")
*/
package monitoring
