package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"sync"

	"github.com/GriffinCanCode/librarian/internal/infrastructure/logging"
	"github.com/GriffinCanCode/librarian/internal/shared/paths"
	"github.com/GriffinCanCode/librarian/internal/shared/types"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// Manager handles install record persistence
type Manager struct {
	records sync.Map // app id -> *types.InstalledApp
	locks   sync.Map // app id -> *sync.Mutex
	store   Store
	logger  *logging.Logger
}

// NewManager creates a new registry manager
func NewManager(store Store, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		store:  store,
		logger: logger.Named("registry"),
	}
}

// lock serializes writers of one app id
func (m *Manager) lock(id string) func() {
	v, _ := m.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Save writes a record, replacing any previous record for the same id
func (m *Manager) Save(ctx context.Context, rec *types.InstalledApp) error {
	if rec == nil || rec.AppID == "" {
		return fmt.Errorf("app ID is required")
	}
	if err := paths.ValidateAppID(rec.AppID); err != nil {
		return types.NewError(types.CodeInvalidMetadata, err.Error(), types.ErrInvalidMetadata)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock := m.lock(rec.AppID)
	defer unlock()
	return m.saveLocked(rec)
}

func (m *Manager) saveLocked(rec *types.InstalledApp) error {
	if rec.DisabledDLC == nil {
		rec.DisabledDLC = []string{}
	}

	data, err := sonic.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal install record: %w", err)
	}

	if err := m.store.Write(rec.AppID, data); err != nil {
		return types.IOFailure("write install record", err)
	}

	m.records.Store(rec.AppID, clone(rec))
	return nil
}

// Load reads the record for id. A missing record is ErrNotFound.
func (m *Manager) Load(ctx context.Context, id string) (*types.InstalledApp, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cached, ok := m.records.Load(id); ok {
		return clone(cached.(*types.InstalledApp)), nil
	}
	return m.loadFromStore(id)
}

func (m *Manager) loadFromStore(id string) (*types.InstalledApp, error) {
	if err := paths.ValidateAppID(id); err != nil {
		return nil, types.NotFound(id)
	}

	data, err := m.store.Read(id)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, types.NotFound(id)
	}
	if err != nil {
		return nil, types.IOFailure("read install record", err)
	}

	var rec types.InstalledApp
	if err := sonic.Unmarshal(data, &rec); err != nil {
		return nil, types.NewError(types.CodeMetadataUnreadable,
			fmt.Sprintf("install record %s is corrupt: %v", id, err), types.ErrMetadataUnreadable)
	}
	if rec.AppID == "" {
		rec.AppID = id
	}
	if rec.AppID != id {
		return nil, types.NewError(types.CodeMetadataUnreadable,
			fmt.Sprintf("install record %s names app %q", id, rec.AppID), types.ErrMetadataUnreadable)
	}

	m.records.Store(id, clone(&rec))
	return &rec, nil
}

// Exists reports whether a record is stored for id
func (m *Manager) Exists(ctx context.Context, id string) bool {
	_, err := m.Load(ctx, id)
	return err == nil
}

// List returns every readable record sorted by app id. Unreadable records
// are skipped with a warning.
func (m *Manager) List(ctx context.Context) ([]*types.InstalledApp, error) {
	ids, err := m.store.List()
	if err != nil {
		return nil, types.IOFailure("list install records", err)
	}

	records := make([]*types.InstalledApp, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := m.Load(ctx, id)
		if err != nil {
			m.logger.Warn("Skipping unreadable install record", zap.String("app_id", id), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].AppID < records[j].AppID })
	return records, nil
}

// Update applies fn to the stored record under the id's write lock
func (m *Manager) Update(ctx context.Context, id string, fn func(*types.InstalledApp) error) (*types.InstalledApp, error) {
	unlock := m.lock(id)
	defer unlock()

	rec, err := m.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(rec); err != nil {
		return nil, err
	}
	rec.AppID = id
	if err := m.saveLocked(rec); err != nil {
		return nil, err
	}
	return clone(rec), nil
}

// Delete removes the record for id. Deleting a missing record succeeds.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock := m.lock(id)
	defer unlock()

	if err := m.store.Remove(id); err != nil {
		return types.IOFailure("remove install record", err)
	}
	m.records.Delete(id)
	return nil
}

// Invalidate drops cached records so the next read goes to the store
func (m *Manager) Invalidate() {
	m.records.Range(func(key, _ interface{}) bool {
		m.records.Delete(key)
		return true
	})
}

func clone(rec *types.InstalledApp) *types.InstalledApp {
	c := *rec
	c.DisabledDLC = append([]string{}, rec.DisabledDLC...)
	return &c
}
