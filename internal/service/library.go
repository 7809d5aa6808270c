package service

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/librarian/internal/domain/catalog"
	"github.com/GriffinCanCode/librarian/internal/domain/events"
	"github.com/GriffinCanCode/librarian/internal/shared/paths"
	"github.com/GriffinCanCode/librarian/internal/shared/types"
	"github.com/GriffinCanCode/librarian/internal/shared/utils"
	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"
)

// Import registers an existing folder as the installed tree of id. The
// folder must hold a descriptor with a version; sizes are measured.
func (p *LibraryProvider) Import(ctx context.Context, id, folder string) (types.InstalledApp, error) {
	if err := paths.ValidateAppID(id); err != nil {
		return types.InstalledApp{}, types.NotFound(id)
	}
	if err := utils.ValidatePath(folder, "folder"); err != nil {
		return types.InstalledApp{}, types.IOFailure("import", err)
	}
	if !dirExists(folder) {
		return types.InstalledApp{}, notDirectory(folder)
	}
	release, err := p.pipeline.Sessions().Hold(id)
	if err != nil {
		return types.InstalledApp{}, err
	}
	defer release()

	meta, err := catalog.ReadDescriptor(folder)
	if err != nil {
		return types.InstalledApp{}, types.NewError(types.CodeMetadataUnreadable,
			fmt.Sprintf("descriptor in %s unreadable: %v", folder, err), types.ErrMetadataUnreadable)
	}
	version, err := meta.Require(types.MetaVersion)
	if err != nil {
		return types.InstalledApp{}, err
	}
	download, _ := meta.RequireSize(types.MetaDownloadSize)

	size, err := catalog.DiskUsage(ctx, folder)
	if err != nil {
		return types.InstalledApp{}, types.IOFailure("measure imported tree", err)
	}

	rec := types.InstalledApp{
		AppID:             id,
		InstalledPath:     folder,
		DownloadedBytes:   download,
		TotalDownloadSize: download,
		DiskSize:          size,
		Version:           version,
		LatestVersion:     version,
		OS:                meta.Platform(p.catalog.DefaultPlatform()),
		DisabledDLC:       []string{},
	}
	if err := p.catalog.WriteInstalledApp(ctx, &rec); err != nil {
		return types.InstalledApp{}, types.IOFailure("write install record", err)
	}

	p.logger.Info("Imported app",
		zap.String("app_id", id),
		zap.String("path", folder),
		zap.Uint64("disk_size", size))
	return rec, nil
}

// Refresh drops cached records, re-scans the library and reports how many
// apps are installed
func (p *LibraryProvider) Refresh(ctx context.Context) (int, error) {
	p.catalog.Records().Invalidate()

	apps, err := p.catalog.ListInstalledApps(ctx)
	if err != nil {
		return 0, err
	}
	p.app.Bus.Emit(events.LibraryUpdated(len(apps)))
	return len(apps), nil
}

// CheckUpdates compares each install record with the newest descriptor
// version found across scan roots. Records whose version is not semver are
// left alone. It returns the records with an update pending.
func (p *LibraryProvider) CheckUpdates(ctx context.Context) ([]types.InstalledApp, error) {
	records, err := p.catalog.Records().List(ctx)
	if err != nil {
		return nil, err
	}

	pending := make([]types.InstalledApp, 0)
	for _, rec := range records {
		if p.pipeline.Sessions().Active(rec.AppID) {
			continue
		}

		installed, err := semver.NewVersion(rec.Version)
		if err != nil {
			p.logger.Debug("Skipping non-semver version",
				zap.String("app_id", rec.AppID), zap.String("version", rec.Version))
			continue
		}

		latest, latestRaw := installed, rec.Version
		for _, meta := range p.catalog.Descriptors(ctx, rec.AppID) {
			raw, ok := meta.Get(types.MetaVersion)
			if !ok {
				continue
			}
			v, err := semver.NewVersion(raw)
			if err != nil {
				continue
			}
			if v.GreaterThan(latest) {
				latest, latestRaw = v, raw
			}
		}

		hasUpdate := latest.GreaterThan(installed)
		current := *rec
		if latestRaw != rec.LatestVersion || hasUpdate != rec.UpdatePending {
			updated, err := p.catalog.Records().Update(ctx, rec.AppID, func(r *types.InstalledApp) error {
				r.LatestVersion = latestRaw
				r.UpdatePending = hasUpdate
				return nil
			})
			if err != nil {
				p.logger.Warn("Failed to record update state", zap.String("app_id", rec.AppID), zap.Error(err))
				continue
			}
			current = *updated

			if hasUpdate {
				p.logger.Info("New version found",
					zap.String("app_id", rec.AppID),
					zap.String("installed", rec.Version),
					zap.String("latest", latestRaw))
				p.app.Bus.Emit(events.NewVersionFound(rec.AppID, latestRaw))
			}
		}

		if hasUpdate {
			pending = append(pending, current)
		}
	}
	return pending, nil
}
