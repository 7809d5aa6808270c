package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/GriffinCanCode/librarian/internal/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "apps")
	return NewManager(NewDiskStore(dir), nil), dir
}

func record(id, path string) *types.InstalledApp {
	return &types.InstalledApp{
		AppID:             id,
		InstalledPath:     path,
		TotalDownloadSize: 1000,
		Version:           "1.0.0",
		OS:                "windows",
	}
}

func TestSaveCreatesDirectoryAndFile(t *testing.T) {
	ctx := context.Background()
	manager, dir := newTestManager(t)

	_, err := os.Stat(dir)
	require.True(t, os.IsNotExist(err))

	require.NoError(t, manager.Save(ctx, record("game1", "/lib/game1")))

	data, err := os.ReadFile(filepath.Join(dir, "game1.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"app_id": "game1"`)
	assert.Contains(t, string(data), `"disabled_dlc": []`)
}

func TestLoadFromFreshManager(t *testing.T) {
	ctx := context.Background()
	manager, dir := newTestManager(t)
	require.NoError(t, manager.Save(ctx, record("game1", "/lib/game1")))

	fresh := NewManager(NewDiskStore(dir), nil)
	rec, err := fresh.Load(ctx, "game1")
	require.NoError(t, err)
	assert.Equal(t, "/lib/game1", rec.InstalledPath)
	assert.Equal(t, uint64(1000), rec.TotalDownloadSize)
}

func TestLoadMissing(t *testing.T) {
	manager, _ := newTestManager(t)

	_, err := manager.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.False(t, manager.Exists(context.Background(), "nope"))
}

func TestLoadReturnsCopies(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestManager(t)
	require.NoError(t, manager.Save(ctx, record("game1", "/lib/game1")))

	rec, err := manager.Load(ctx, "game1")
	require.NoError(t, err)
	rec.InstalledPath = "/elsewhere"

	again, err := manager.Load(ctx, "game1")
	require.NoError(t, err)
	assert.Equal(t, "/lib/game1", again.InstalledPath)
}

func TestListSkipsCorruptRecords(t *testing.T) {
	ctx := context.Background()
	manager, dir := newTestManager(t)
	require.NoError(t, manager.Save(ctx, record("b-game", "/lib/b")))
	require.NoError(t, manager.Save(ctx, record("a-game", "/lib/a")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	records, err := manager.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a-game", records[0].AppID)
	assert.Equal(t, "b-game", records[1].AppID)
}

func TestListEmptyWhenDirectoryMissing(t *testing.T) {
	manager, _ := newTestManager(t)

	records, err := manager.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestManager(t)
	require.NoError(t, manager.Save(ctx, record("game1", "/lib/game1")))

	updated, err := manager.Update(ctx, "game1", func(rec *types.InstalledApp) error {
		rec.DownloadedBytes = rec.TotalDownloadSize
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), updated.DownloadedBytes)

	_, err = manager.Update(ctx, "game1", func(*types.InstalledApp) error {
		return errors.New("abort")
	})
	assert.Error(t, err)

	_, err = manager.Update(ctx, "missing", func(*types.InstalledApp) error { return nil })
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	manager, dir := newTestManager(t)
	require.NoError(t, manager.Save(ctx, record("game1", "/lib/game1")))

	require.NoError(t, manager.Delete(ctx, "game1"))
	require.NoError(t, manager.Delete(ctx, "game1"))

	_, err := os.Stat(filepath.Join(dir, "game1.json"))
	assert.True(t, os.IsNotExist(err))
	assert.False(t, manager.Exists(ctx, "game1"))
}

func TestSaveRejectsUnsafeID(t *testing.T) {
	manager, _ := newTestManager(t)

	err := manager.Save(context.Background(), record("../escape", "/tmp"))
	assert.ErrorIs(t, err, types.ErrInvalidMetadata)
}

func TestConcurrentSavesSameID(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestManager(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := record("game1", "/lib/game1")
			rec.DownloadedBytes = uint64(i)
			assert.NoError(t, manager.Save(ctx, rec))
		}(i)
	}
	wg.Wait()

	manager.Invalidate()
	rec, err := manager.Load(ctx, "game1")
	require.NoError(t, err)
	assert.Equal(t, "game1", rec.AppID)
}

type activeSet map[string]bool

func (a activeSet) Active(id string) bool { return a[id] }

func TestReconcileDropsMissingPaths(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestManager(t)
	present := t.TempDir()

	require.NoError(t, manager.Save(ctx, record("present", present)))
	require.NoError(t, manager.Save(ctx, record("gone", filepath.Join(present, "deleted"))))
	require.NoError(t, manager.Save(ctx, record("installing", filepath.Join(present, "pending"))))

	reconciler := NewReconciler(manager, activeSet{"installing": true}, nil)
	kept, err := reconciler.Reconcile(ctx)
	require.NoError(t, err)

	ids := make([]string, 0, len(kept))
	for _, rec := range kept {
		ids = append(ids, rec.AppID)
	}
	assert.Equal(t, []string{"installing", "present"}, ids)
	assert.False(t, manager.Exists(ctx, "gone"))
	assert.True(t, manager.Exists(ctx, "installing"))
}
