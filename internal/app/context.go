package app

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/GriffinCanCode/librarian/internal/domain/auth"
	"github.com/GriffinCanCode/librarian/internal/domain/events"
	"github.com/GriffinCanCode/librarian/internal/domain/keys"
	"github.com/GriffinCanCode/librarian/internal/infrastructure/config"
	"github.com/GriffinCanCode/librarian/internal/infrastructure/logging"
	"github.com/GriffinCanCode/librarian/internal/infrastructure/monitoring"
	"go.uber.org/zap"
)

// Options overrides pieces of the context, mostly for tests
type Options struct {
	Logger  *logging.Logger
	Metrics *monitoring.Metrics
	// Backend replaces the accounts-file backend
	Backend auth.IdentityBackend
	// Entropy feeds key generation; crypto/rand when nil
	Entropy io.Reader
}

// Context is the application context shared by every component
type Context struct {
	Config  *config.Config
	Logger  *logging.Logger
	Metrics *monitoring.Metrics
	Keys    *keys.Identity
	Bus     *events.Bus
	Auth    *auth.Session
}

// New builds the context. A key generation failure is fatal to the caller.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Context, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = monitoring.NewMetrics()
	}
	if opts.Entropy == nil {
		opts.Entropy = rand.Reader
	}

	identity, err := keys.GenerateFrom(opts.Entropy, cfg.Auth.KeyBits, opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create process key: %w", err)
	}

	backend := opts.Backend
	if backend == nil {
		local, err := auth.NewLocalBackend(cfg.Auth.AccountsFile, opts.Logger)
		if err != nil {
			return nil, err
		}
		backend = local
	}

	bus := events.NewBus(opts.Metrics, opts.Logger)
	session := auth.NewSession(backend, auth.SessionOptions{
		AccountFile: cfg.Layout().AccountFile(),
		Keys:        identity,
		Emitter:     bus,
		Metrics:     opts.Metrics,
		Logger:      opts.Logger,
	})
	if err := session.Restore(ctx); err != nil {
		// A corrupt account file only costs a fresh login
		opts.Logger.Warn("Failed to restore account", zap.Error(err))
	}

	return &Context{
		Config:  cfg,
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
		Keys:    identity,
		Bus:     bus,
		Auth:    session,
	}, nil
}

// Close releases the event bus subscribers
func (c *Context) Close() {
	c.Bus.Close()
}
