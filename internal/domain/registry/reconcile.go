package registry

import (
	"context"
	"os"

	"github.com/GriffinCanCode/librarian/internal/infrastructure/logging"
	"github.com/GriffinCanCode/librarian/internal/shared/types"
	"go.uber.org/zap"
)

// ActivityChecker reports whether an install session owns an app id
type ActivityChecker interface {
	Active(appID string) bool
}

// Reconciler keeps the registry consistent with the disk
type Reconciler struct {
	manager *Manager
	active  ActivityChecker
	logger  *logging.Logger
}

// NewReconciler creates a reconciler. active may be nil when no installs run.
func NewReconciler(manager *Manager, active ActivityChecker, logger *logging.Logger) *Reconciler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Reconciler{
		manager: manager,
		active:  active,
		logger:  logger.Named("reconcile"),
	}
}

// Reconcile lists records and drops those whose installed path is gone.
// Records of apps with an install in flight are always kept, since their
// directory may not exist yet.
func (r *Reconciler) Reconcile(ctx context.Context) ([]*types.InstalledApp, error) {
	records, err := r.manager.List(ctx)
	if err != nil {
		return nil, err
	}

	kept := records[:0]
	for _, rec := range records {
		if r.active != nil && r.active.Active(rec.AppID) {
			kept = append(kept, rec)
			continue
		}
		if dirExists(rec.InstalledPath) {
			kept = append(kept, rec)
			continue
		}

		r.logger.Warn("Dropping install record whose path is missing",
			zap.String("app_id", rec.AppID),
			zap.String("installed_path", rec.InstalledPath))
		if err := r.manager.Delete(ctx, rec.AppID); err != nil {
			r.logger.Warn("Failed to drop stale install record", zap.String("app_id", rec.AppID), zap.Error(err))
		}
	}
	return kept, nil
}

func dirExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
