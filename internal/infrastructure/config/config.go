package config

import (
	"fmt"
	"time"

	"github.com/GriffinCanCode/librarian/internal/shared/paths"
	"github.com/kelseyhightower/envconfig"
)

// SourceMode selects where install records come from
type SourceMode string

const (
	SourceScan     SourceMode = "scan"
	SourceRegistry SourceMode = "registry"
	SourceMerged   SourceMode = "merged"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Library   LibraryConfig
	Transfer  TransferConfig
	Auth      AuthConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string `envconfig:"PORT" default:"8000"`
	Host           string `envconfig:"HOST" default:"127.0.0.1"`
	MaxConnections int    `envconfig:"MAX_CONNECTIONS" default:"64"`
}

// LibraryConfig holds catalog and install layout configuration.
type LibraryConfig struct {
	DataDir           string     `envconfig:"DATA_DIR"`
	HomeLibrary       string     `envconfig:"HOME_LIBRARY"`
	RemovablePrefixes []string   `envconfig:"REMOVABLE_PREFIXES" default:"/media,/run/media"`
	DownloadBaseURL   string     `envconfig:"DOWNLOAD_BASE_URL"`
	DefaultPlatform   string     `envconfig:"DEFAULT_PLATFORM" default:"windows"`
	SourceMode        SourceMode `envconfig:"INSTALL_SOURCE_MODE" default:"merged"`
}

// TransferConfig holds archive transfer configuration. Timeout bounds the
// wait for response headers, not the body.
type TransferConfig struct {
	Timeout           time.Duration `envconfig:"TRANSFER_TIMEOUT" default:"2m"`
	Retries           int           `envconfig:"TRANSFER_RETRIES" default:"3"`
	RequestsPerSecond float64       `envconfig:"TRANSFER_RPS" default:"0"`
	ChunkSize         int           `envconfig:"TRANSFER_CHUNK_SIZE" default:"32768"`
}

// AuthConfig holds identity configuration.
type AuthConfig struct {
	AccountsFile string `envconfig:"ACCOUNTS_FILE"`
	KeyBits      int    `envconfig:"KEY_BITS" default:"2048"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:           "8000",
			Host:           "127.0.0.1",
			MaxConnections: 64,
		},
		Library: LibraryConfig{
			RemovablePrefixes: []string{"/media", "/run/media"},
			DefaultPlatform:   "windows",
			SourceMode:        SourceMerged,
		},
		Transfer: TransferConfig{
			Timeout:   2 * time.Minute,
			Retries:   3,
			ChunkSize: 32 * 1024,
		},
		Auth: AuthConfig{
			KeyBits: 2048,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
	_ = cfg.normalize()
	return cfg
}

// Layout returns the persisted path layout for this configuration.
func (c *Config) Layout() paths.Layout {
	return paths.NewLayout(c.Library.DataDir)
}

// normalize fills derived defaults and rejects unknown values.
func (c *Config) normalize() error {
	layout := paths.NewLayout(c.Library.DataDir)
	c.Library.DataDir = layout.DataDir
	if c.Library.HomeLibrary == "" {
		c.Library.HomeLibrary = layout.HomeLibrary()
	}

	switch c.Library.SourceMode {
	case SourceScan, SourceRegistry, SourceMerged:
	case "":
		c.Library.SourceMode = SourceMerged
	default:
		return fmt.Errorf("unknown install source mode %q", c.Library.SourceMode)
	}

	if c.Transfer.ChunkSize <= 0 {
		c.Transfer.ChunkSize = 32 * 1024
	}
	if c.Auth.KeyBits < 2048 {
		return fmt.Errorf("key size %d is below 2048 bits", c.Auth.KeyBits)
	}
	return nil
}
