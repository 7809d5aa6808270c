package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	apihttp "github.com/GriffinCanCode/librarian/internal/api/http"
	"github.com/GriffinCanCode/librarian/internal/api/middleware"
	"github.com/GriffinCanCode/librarian/internal/api/ws"
	"github.com/GriffinCanCode/librarian/internal/app"
	"github.com/GriffinCanCode/librarian/internal/domain/catalog"
	"github.com/GriffinCanCode/librarian/internal/domain/mounts"
	"github.com/GriffinCanCode/librarian/internal/infrastructure/config"
	"github.com/GriffinCanCode/librarian/internal/infrastructure/logging"
	"github.com/GriffinCanCode/librarian/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/librarian/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/librarian/internal/service"
)

// ShutdownTimeout bounds the graceful stop
const ShutdownTimeout = 30 * time.Second

// Options overrides server dependencies, mostly for tests
type Options struct {
	Logger  *logging.Logger
	AppOpts app.Options
	// Roots replaces the mount scanner
	Roots catalog.RootLister
}

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	app      *app.Context
	provider *service.LibraryProvider
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer
}

// NewServer creates a new server instance
func NewServer(ctx context.Context, cfg *config.Config, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		var err error
		logger, err = logging.New(logging.Config{Level: cfg.Logging.Level, Development: cfg.Logging.Development})
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	logger.Info("Initializing library provider",
		zap.String("port", cfg.Server.Port),
		zap.String("data_dir", cfg.Library.DataDir),
		zap.String("home_library", cfg.Library.HomeLibrary),
		zap.String("source_mode", string(cfg.Library.SourceMode)),
	)

	appOpts := opts.AppOpts
	appOpts.Logger = logger
	if appOpts.Metrics == nil {
		appOpts.Metrics = monitoring.NewMetrics()
	}
	appCtx, err := app.New(ctx, cfg, appOpts)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Library.HomeLibrary, 0o755); err != nil {
		appCtx.Close()
		return nil, fmt.Errorf("failed to create home library: %w", err)
	}

	roots := opts.Roots
	if roots == nil {
		roots = mounts.NewScanner(cfg.Library.HomeLibrary, cfg.Library.RemovablePrefixes, mounts.SystemPartitions{}, logger)
	}
	provider := service.Build(appCtx, roots)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	tracer := tracing.New("librarian", logger)
	router.Use(tracing.HTTPMiddleware(tracer, middleware.GetRequestID))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}
	router.Use(monitoring.Middleware(appCtx.Metrics))

	handlers := apihttp.NewHandlers(provider)
	wsHandler := ws.NewHandler(appCtx.Bus, appCtx.Metrics, logger)

	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(appCtx.Metrics.Handler()))

	api := router.Group("/api/v1")
	apihttp.Register(api, handlers)
	api.GET("/events", wsHandler.HandleConnection)

	logger.Info("Server initialized successfully")

	return &Server{
		router:   router,
		app:      appCtx,
		provider: provider,
		logger:   logger,
		config:   cfg,
		metrics:  appCtx.Metrics,
		tracer:   tracer,
	}, nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Provider returns the provider facade
func (s *Server) Provider() *service.LibraryProvider {
	return s.provider
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Server.Host, s.config.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if limit := s.config.Server.MaxConnections; limit > 0 {
		ln = netutil.LimitListener(ln, limit)
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := s.provider.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("install shutdown: %w", err))
	}
	s.Close()
	return errors.Join(errs...)
}

// Close releases event subscribers, drains spans and flushes the logger
func (s *Server) Close() {
	s.app.Close()
	s.tracer.Close()
	s.logger.Sync()
}
