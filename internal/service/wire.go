package service

import (
	"github.com/GriffinCanCode/librarian/internal/app"
	"github.com/GriffinCanCode/librarian/internal/domain/catalog"
	"github.com/GriffinCanCode/librarian/internal/domain/install"
	"github.com/GriffinCanCode/librarian/internal/domain/registry"
	"github.com/GriffinCanCode/librarian/internal/transfer"
)

// Build assembles the record registry, catalog, transfer client and
// install pipeline from the application config
func Build(appCtx *app.Context, roots catalog.RootLister) *LibraryProvider {
	cfg := appCtx.Config

	records := registry.NewManager(registry.NewDiskStore(cfg.Layout().InstalledAppsDir()), appCtx.Logger)
	sessions := install.NewSessions()
	store := catalog.NewStore(roots, records, catalog.Options{
		Mode:            cfg.Library.SourceMode,
		DefaultPlatform: cfg.Library.DefaultPlatform,
		DownloadBaseURL: cfg.Library.DownloadBaseURL,
		Metrics:         appCtx.Metrics,
		Logger:          appCtx.Logger,
		Active:          sessions,
	})

	clientCfg := transfer.DefaultClientConfig()
	clientCfg.Timeout = cfg.Transfer.Timeout
	clientCfg.Retries = cfg.Transfer.Retries
	clientCfg.RequestsPerSecond = cfg.Transfer.RequestsPerSecond
	client := transfer.NewClient(clientCfg, appCtx.Logger)

	pipeline := install.NewPipeline(store, transfer.NewResolver(client, cfg.Library.DownloadBaseURL), sessions, appCtx.Bus, install.Options{
		ChunkSize: cfg.Transfer.ChunkSize,
		Metrics:   appCtx.Metrics,
		Logger:    appCtx.Logger,
	})

	return NewLibraryProvider(appCtx, store, pipeline, Options{})
}
