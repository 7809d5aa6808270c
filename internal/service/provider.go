package service

import (
	"context"
	"fmt"
	"os"

	"github.com/GriffinCanCode/librarian/internal/app"
	"github.com/GriffinCanCode/librarian/internal/domain/catalog"
	"github.com/GriffinCanCode/librarian/internal/domain/events"
	"github.com/GriffinCanCode/librarian/internal/domain/install"
	"github.com/GriffinCanCode/librarian/internal/infrastructure/logging"
	"github.com/GriffinCanCode/librarian/internal/shared/types"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// Version is stamped at build time
var Version = "0.1.0"

// Plugin identity reported to hosts
const (
	PluginName        = "Local games"
	MinimumAPIVersion = "0.1.1"
)

// Options configures a LibraryProvider
type Options struct {
	// HomeLibrary is the install destination when a caller gives none
	HomeLibrary string
}

// LibraryProvider implements every provider operation
type LibraryProvider struct {
	app      *app.Context
	catalog  *catalog.Store
	pipeline *install.Pipeline
	home     string
	logger   *logging.Logger
}

// NewLibraryProvider wires the provider facade
func NewLibraryProvider(appCtx *app.Context, store *catalog.Store, pipeline *install.Pipeline, opts Options) *LibraryProvider {
	if opts.HomeLibrary == "" {
		opts.HomeLibrary = appCtx.Config.Library.HomeLibrary
	}
	return &LibraryProvider{
		app:      appCtx,
		catalog:  store,
		pipeline: pipeline,
		home:     opts.HomeLibrary,
		logger:   appCtx.Logger.Named("provider"),
	}
}

// Events returns the bus carrying every provider event
func (p *LibraryProvider) Events() *events.Bus {
	return p.app.Bus
}

// PluginInfo identifies the provider
func (p *LibraryProvider) PluginInfo() types.PluginInfo {
	return types.PluginInfo{
		ID:                catalog.ProviderID,
		Name:              PluginName,
		Version:           Version,
		MinimumAPIVersion: MinimumAPIVersion,
	}
}

// PublicKey returns the key type label and the PEM public key. An empty
// PEM means no usable key.
func (p *LibraryProvider) PublicKey() (string, string) {
	return p.app.Keys.KeyType(), p.app.Keys.PublicPEM()
}

// Login authenticates against the identity backend
func (p *LibraryProvider) Login(ctx context.Context, name, secret string, encrypted bool) error {
	return p.app.Auth.Login(ctx, name, secret, encrypted)
}

// Logout clears the account slot
func (p *LibraryProvider) Logout(ctx context.Context, accountID string) error {
	return p.app.Auth.Logout(ctx, accountID)
}

// User returns the derived provider status and profile
func (p *LibraryProvider) User() types.User {
	return p.app.Auth.User()
}

// ListInstalledApps lists install records
func (p *LibraryProvider) ListInstalledApps(ctx context.Context) ([]types.InstalledApp, error) {
	return p.catalog.ListInstalledApps(ctx)
}

// ProviderItems lists every catalog entry with readable metadata
func (p *LibraryProvider) ProviderItems(ctx context.Context) []types.ProviderItem {
	return p.catalog.ProviderItems(ctx)
}

// ProviderItem returns one catalog entry
func (p *LibraryProvider) ProviderItem(ctx context.Context, id string) (types.ProviderItem, error) {
	return p.catalog.ProviderItem(ctx, id)
}

// ItemMetadata returns the serialized metadata document of id
func (p *LibraryProvider) ItemMetadata(ctx context.Context, id string) (string, error) {
	item, err := p.catalog.ItemMetadata(ctx, id)
	if err != nil {
		return "", err
	}
	doc, err := sonic.MarshalString(item)
	if err != nil {
		return "", types.IOFailure("encode metadata", err)
	}
	return doc, nil
}

// LaunchOptions returns how to start id
func (p *LibraryProvider) LaunchOptions(ctx context.Context, id string) ([]types.LaunchOption, error) {
	return p.catalog.LaunchOptions(ctx, id)
}

// requireItem fails with NotFound for ids the catalog cannot resolve
func (p *LibraryProvider) requireItem(ctx context.Context, id string) error {
	if _, ok := p.catalog.FindApp(ctx, id); !ok {
		return types.NotFound(id)
	}
	return nil
}

// InstallOptions describes the options install accepts for id
func (p *LibraryProvider) InstallOptions(ctx context.Context, id string) ([]types.InstallOptionDescription, error) {
	if err := p.requireItem(ctx, id); err != nil {
		return nil, err
	}

	platform := p.catalog.DefaultPlatform()
	if meta, err := p.catalog.LoadMetadata(ctx, id); err == nil {
		platform = meta.Platform(platform)
	}

	return []types.InstallOptionDescription{
		{
			Key:         "platform",
			Description: "Target platform of the installed build",
			Values:      []string{platform},
			Default:     platform,
		},
		{
			Key:         "language",
			Description: "Preferred language recorded with the install",
			Values:      []string{},
			Default:     "",
		},
		{
			Key:         "verify",
			Description: "Check archive size and checksum before extracting",
			Values:      []string{"false", "true"},
			Default:     "false",
		},
	}, nil
}

// Eulas lists license agreements for id. Local games carry none.
func (p *LibraryProvider) Eulas(ctx context.Context, id string) ([]types.EulaEntry, error) {
	if err := p.requireItem(ctx, id); err != nil {
		return nil, err
	}
	return []types.EulaEntry{}, nil
}

// PostInstallSteps returns the serialized post-install step list
func (p *LibraryProvider) PostInstallSteps(ctx context.Context, id string) (string, error) {
	if err := p.requireItem(ctx, id); err != nil {
		return "", err
	}
	return "[]", nil
}

// PreLaunchHook runs before a launch and returns extra environment entries
func (p *LibraryProvider) PreLaunchHook(ctx context.Context, id string) ([]string, error) {
	if err := p.requireItem(ctx, id); err != nil {
		return nil, err
	}
	p.app.Bus.Emit(events.LaunchReady(id))
	return []string{}, nil
}

// Install starts an install of id under destinationRoot, or under the
// home library when destinationRoot is empty
func (p *LibraryProvider) Install(ctx context.Context, id, destinationRoot string, opts types.InstallOptions) (types.InstallAccepted, error) {
	if destinationRoot == "" {
		destinationRoot = p.home
	}
	return p.pipeline.Install(ctx, id, destinationRoot, opts)
}

// PauseInstall cancels the active install of id
func (p *LibraryProvider) PauseInstall(id string) error {
	return p.pipeline.Pause(id)
}

// Uninstall removes id
func (p *LibraryProvider) Uninstall(ctx context.Context, id string) error {
	return p.pipeline.Uninstall(ctx, id)
}

// MoveItem is not offered by this provider
func (p *LibraryProvider) MoveItem(ctx context.Context, id, destination string) error {
	return types.NewError(types.CodeNotSupported, "moving installed items is not supported", types.ErrNotSupported)
}

// Shutdown cancels in-flight installs and waits for them
func (p *LibraryProvider) Shutdown(ctx context.Context) error {
	p.logger.Info("Stopping provider", zap.Int("active_installs", len(p.pipeline.Sessions().List())))
	return p.pipeline.Shutdown(ctx)
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func notDirectory(folder string) error {
	return types.NewError(types.CodeNotFound, fmt.Sprintf("%s is not a directory", folder), types.ErrNotFound)
}
