package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/GriffinCanCode/librarian/internal/domain/registry"
	"github.com/GriffinCanCode/librarian/internal/infrastructure/config"
	"github.com/GriffinCanCode/librarian/internal/infrastructure/logging"
	"github.com/GriffinCanCode/librarian/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/librarian/internal/shared/paths"
	"github.com/GriffinCanCode/librarian/internal/shared/types"
	"go.uber.org/zap"
)

// RootLister yields scan roots in order
type RootLister interface {
	ListRoots(ctx context.Context) []string
}

// Options configures a Store
type Options struct {
	Mode            config.SourceMode
	DefaultPlatform string
	DownloadBaseURL string
	Metrics         *monitoring.Metrics
	Logger          *logging.Logger
	// Active reports app ids with an install in flight; used by reconciliation
	Active registry.ActivityChecker
}

// Store resolves catalog entries across scan roots and owns install records
type Store struct {
	roots      RootLister
	records    *registry.Manager
	reconciler *registry.Reconciler
	mode       config.SourceMode
	platform   string
	baseURL    string
	sanitizer  *sanitizer
	metrics    *monitoring.Metrics
	logger     *logging.Logger

	// remove deletes an installed tree; replaced in tests
	remove func(string) error
}

// NewStore creates a catalog over roots and the install record registry
func NewStore(roots RootLister, records *registry.Manager, opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Mode == "" {
		opts.Mode = config.SourceMerged
	}
	if opts.DefaultPlatform == "" {
		opts.DefaultPlatform = "windows"
	}

	logger := opts.Logger.Named("catalog")
	return &Store{
		roots:      roots,
		records:    records,
		reconciler: registry.NewReconciler(records, opts.Active, opts.Logger),
		mode:       opts.Mode,
		platform:   opts.DefaultPlatform,
		baseURL:    strings.TrimRight(opts.DownloadBaseURL, "/"),
		sanitizer:  newSanitizer(),
		metrics:    opts.Metrics,
		logger:     logger,
		remove:     os.RemoveAll,
	}
}

// Records exposes the install record registry
func (s *Store) Records() *registry.Manager {
	return s.records
}

// DefaultPlatform returns the platform used when none is given
func (s *Store) DefaultPlatform() string {
	return s.platform
}

// DownloadBaseURL returns the configured archive host, without trailing slash
func (s *Store) DownloadBaseURL() string {
	return s.baseURL
}

// Mode returns the install source mode
func (s *Store) Mode() config.SourceMode {
	return s.mode
}

// ListAppIDs returns every directory or symlink name under any scan root
func (s *Store) ListAppIDs(ctx context.Context) []string {
	seen := make(map[string]bool)
	for _, root := range s.roots.ListRoots(ctx) {
		entries, err := os.ReadDir(root)
		if err != nil {
			s.logger.Warn("Failed to read scan root", zap.String("root", root), zap.Error(err))
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || entry.Type()&os.ModeSymlink != 0 {
				seen[entry.Name()] = true
			}
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FindApp returns the first root, in scan order, holding a directory named
// exactly id. When no root has it and records are consulted, an existing
// recorded install path is returned instead.
func (s *Store) FindApp(ctx context.Context, id string) (string, bool) {
	if paths.ValidateAppID(id) != nil {
		return "", false
	}

	for _, root := range s.roots.ListRoots(ctx) {
		candidate := filepath.Join(root, id)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, true
		}
	}

	if s.mode == config.SourceScan {
		return "", false
	}
	rec, err := s.records.Load(ctx, id)
	if err != nil {
		return "", false
	}
	if info, err := os.Stat(rec.InstalledPath); err == nil && info.IsDir() {
		return rec.InstalledPath, true
	}
	return "", false
}

// LoadMetadata reads the descriptor of the resolved app directory
func (s *Store) LoadMetadata(ctx context.Context, id string) (types.AppMetadata, error) {
	dir, ok := s.FindApp(ctx, id)
	if !ok {
		return nil, types.NewError(types.CodeMetadataNotFound, fmt.Sprintf("app %q not found", id), types.ErrMetadataNotFound)
	}
	return s.loadMetadataAt(id, dir)
}

func (s *Store) loadMetadataAt(id, dir string) (types.AppMetadata, error) {
	meta, err := ReadDescriptor(dir)
	if err != nil {
		cause := fmt.Sprintf("descriptor for %q unreadable: %v", id, err)
		if isNotExist(err) {
			cause = fmt.Sprintf("no descriptor for %q in %s", id, dir)
		}
		return nil, types.NewError(types.CodeMetadataUnreadable, cause, types.ErrMetadataUnreadable)
	}

	if declared, ok := meta.Get(types.MetaID); ok && declared != id {
		s.logger.Warn("Descriptor id differs from directory name, using directory name",
			zap.String("app_id", id), zap.String("declared", declared))
	}
	meta[types.MetaID] = id
	if _, ok := meta.Get(types.MetaName); !ok {
		meta[types.MetaName] = id
	}
	return meta, nil
}

// AppDir returns the directory the metadata of id was loaded from
func (s *Store) AppDir(ctx context.Context, id string) (string, error) {
	dir, ok := s.FindApp(ctx, id)
	if !ok {
		return "", types.NotFound(id)
	}
	return dir, nil
}

// isProtected reports paths uninstall must never remove: the filesystem
// root and the scan roots themselves
func (s *Store) isProtected(ctx context.Context, path string) bool {
	clean := filepath.Clean(path)
	if clean == string(filepath.Separator) || clean == "." {
		return true
	}
	for _, root := range s.roots.ListRoots(ctx) {
		if filepath.Clean(root) == clean {
			return true
		}
	}
	return false
}

// ListInstalledApps lists installed apps according to the source mode.
// Scan-derived entries whose metadata fails to load are skipped with a
// warning; in merged mode a registry record wins over a scanned entry.
func (s *Store) ListInstalledApps(ctx context.Context) ([]types.InstalledApp, error) {
	byID := make(map[string]types.InstalledApp)
	order := make([]string, 0)

	if s.mode != config.SourceScan {
		records, err := s.reconciler.Reconcile(ctx)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			byID[rec.AppID] = *rec
			order = append(order, rec.AppID)
		}
	}

	if s.mode != config.SourceRegistry {
		for _, app := range s.scanInstalled(ctx) {
			if _, ok := byID[app.AppID]; ok {
				continue
			}
			byID[app.AppID] = app
			order = append(order, app.AppID)
		}
	}

	sort.Strings(order)
	apps := make([]types.InstalledApp, 0, len(order))
	for _, id := range order {
		apps = append(apps, byID[id])
	}
	return apps, nil
}

// scanInstalled derives install records from directory presence. The first
// root holding an id wins.
func (s *Store) scanInstalled(ctx context.Context) []types.InstalledApp {
	seen := make(map[string]bool)
	var apps []types.InstalledApp

	for _, root := range s.roots.ListRoots(ctx) {
		entries, err := os.ReadDir(root)
		if err != nil {
			s.logger.Warn("Failed to read scan root", zap.String("root", root), zap.Error(err))
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() && entry.Type()&os.ModeSymlink == 0 {
				continue
			}
			id := entry.Name()
			if seen[id] {
				continue
			}
			seen[id] = true

			dir := filepath.Join(root, id)
			meta, err := s.loadMetadataAt(id, dir)
			if err != nil {
				s.metrics.IncCatalogSkipped()
				s.logger.Warn("Skipping catalog entry", zap.String("app_id", id), zap.String("path", dir), zap.Error(err))
				continue
			}
			apps = append(apps, s.recordFromMetadata(id, dir, meta))
		}
	}
	return apps
}

// recordFromMetadata builds a scan-derived record. Sizes that fail to parse
// are reported as zero here; install validates them strictly.
func (s *Store) recordFromMetadata(id, dir string, meta types.AppMetadata) types.InstalledApp {
	download, _ := meta.RequireSize(types.MetaDownloadSize)
	disk, _ := meta.RequireSize(types.MetaDiskSize)
	version := meta.GetOr(types.MetaVersion, "")

	return types.InstalledApp{
		AppID:             id,
		InstalledPath:     dir,
		DownloadedBytes:   download,
		TotalDownloadSize: download,
		DiskSize:          disk,
		Version:           version,
		LatestVersion:     version,
		OS:                meta.Platform(s.platform),
		DisabledDLC:       []string{},
	}
}

// WriteInstalledApp persists rec under its app id
func (s *Store) WriteInstalledApp(ctx context.Context, rec *types.InstalledApp) error {
	return s.records.Save(ctx, rec)
}

// ReadInstalledApp returns the persisted record of id
func (s *Store) ReadInstalledApp(ctx context.Context, id string) (*types.InstalledApp, error) {
	return s.records.Load(ctx, id)
}

// ResolveInstallPath returns where id is installed, preferring the record
func (s *Store) ResolveInstallPath(ctx context.Context, id string) (string, bool) {
	if s.mode != config.SourceScan {
		if rec, err := s.records.Load(ctx, id); err == nil && rec.InstalledPath != "" {
			if _, err := os.Lstat(rec.InstalledPath); err == nil {
				return rec.InstalledPath, true
			}
		}
	}
	if s.mode == config.SourceRegistry {
		return "", false
	}
	for _, root := range s.roots.ListRoots(ctx) {
		candidate := filepath.Join(root, id)
		if info, err := os.Lstat(candidate); err == nil && (info.IsDir() || info.Mode()&os.ModeSymlink != 0) {
			return candidate, true
		}
	}
	return "", false
}

// Uninstall removes the installed tree of id and then its record.
// Unresolvable ids succeed without touching the filesystem. When removal
// fails the record is left in place.
func (s *Store) Uninstall(ctx context.Context, id string) error {
	if err := paths.ValidateAppID(id); err != nil {
		s.logger.Info("Nothing to uninstall", zap.String("app_id", id))
		return nil
	}

	path, ok := s.ResolveInstallPath(ctx, id)
	if !ok {
		s.logger.Info("Nothing to uninstall", zap.String("app_id", id))
		// Clear a record that points nowhere so the app stops listing
		if err := s.records.Delete(ctx, id); err != nil {
			s.logger.Warn("Failed to drop stale install record", zap.String("app_id", id), zap.Error(err))
		}
		s.metrics.RecordUninstall("absent")
		return nil
	}

	if s.isProtected(ctx, path) {
		s.metrics.RecordUninstall("failed")
		return types.NewError(types.CodeUninstallFailed,
			fmt.Sprintf("refusing to remove %s for %q", path, id), types.ErrUninstallFailed)
	}

	if err := s.remove(path); err != nil {
		s.metrics.RecordUninstall("failed")
		s.logger.Error("Failed to remove install tree", zap.String("app_id", id), zap.String("path", path), zap.Error(err))
		return types.NewError(types.CodeUninstallFailed, fmt.Sprintf("remove %s: %v", path, err), types.ErrUninstallFailed)
	}

	if err := s.records.Delete(ctx, id); err != nil {
		s.metrics.RecordUninstall("failed")
		return types.NewError(types.CodeUninstallFailed, fmt.Sprintf("drop record: %v", err), types.ErrUninstallFailed)
	}

	s.metrics.RecordUninstall("removed")
	s.logger.Info("Uninstalled app", zap.String("app_id", id), zap.String("path", path))
	return nil
}

// Descriptors loads the descriptor of id from every scan root holding it,
// in scan order. Unreadable copies are skipped.
func (s *Store) Descriptors(ctx context.Context, id string) []types.AppMetadata {
	if paths.ValidateAppID(id) != nil {
		return nil
	}

	var found []types.AppMetadata
	for _, root := range s.roots.ListRoots(ctx) {
		dir := filepath.Join(root, id)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		meta, err := s.loadMetadataAt(id, dir)
		if err != nil {
			s.logger.Debug("Skipping unreadable descriptor", zap.String("app_id", id), zap.String("path", dir), zap.Error(err))
			continue
		}
		found = append(found, meta)
	}
	return found
}
