// Package config provides 12-factor configuration management for the library provider.
//
// Configuration is loaded from environment variables with sensible defaults.
// cmd/server loads an optional .env file first.
//
// Configuration Sections:
//   - Server: HTTP listener settings (port, host, connection cap)
//   - Library: Data directory, scan roots, download base URL, install source mode
//   - Transfer: Archive transfer timeout, retries, pacing and chunk size
//   - Auth: Accounts file and key size
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
package config
