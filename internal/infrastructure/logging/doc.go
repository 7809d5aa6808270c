// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Components receive a *Logger at construction and scope it with Named or
// With so every line carries the component and app id.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Install started", zap.String("app_id", "game1"))
//	logger.Warn("Skipping catalog entry", zap.Error(err))
package logging
