package service

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/GriffinCanCode/librarian/internal/app"
	"github.com/GriffinCanCode/librarian/internal/domain/events"
	"github.com/GriffinCanCode/librarian/internal/infrastructure/config"
	"github.com/GriffinCanCode/librarian/internal/shared/types"
	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticRoots []string

func (r staticRoots) ListRoots(context.Context) []string { return r }

type fixture struct {
	provider    *LibraryProvider
	sub         *events.Subscription
	home        string
	catalogRoot string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Library.DataDir = t.TempDir()
	cfg.Library.HomeLibrary = filepath.Join(cfg.Library.DataDir, "library")
	cfg.Auth.KeyBits = 1024
	require.NoError(t, os.MkdirAll(cfg.Library.HomeLibrary, 0o755))

	appCtx, err := app.New(context.Background(), cfg, app.Options{})
	require.NoError(t, err)

	f := &fixture{
		home:        cfg.Library.HomeLibrary,
		catalogRoot: t.TempDir(),
	}
	f.provider = Build(appCtx, staticRoots{f.home, f.catalogRoot})
	f.sub = appCtx.Bus.Subscribe(events.DefaultBuffer)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = f.provider.Shutdown(ctx)
		appCtx.Close()
	})
	return f
}

func (f *fixture) addApp(t *testing.T, root, id, version string, archive []byte) string {
	t.Helper()
	dir := filepath.Join(root, id)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	desc := fmt.Sprintf("name: <b>%s</b>\ndownload_size: %d\ndisk_size: 4096\nversion: %s\nfile_name: %s.zip\nexecutable: bin/run.exe\n",
		id, len(archive), version, id)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata.yaml"), []byte(desc), 0o644))
	if archive != nil {
		require.NoError(t, os.WriteFile(filepath.Join(dir, id+".zip"), archive, 0o644))
	}
	return dir
}

// drain returns the events delivered so far
func (f *fixture) drain() []events.Event {
	var out []events.Event
	for {
		select {
		case e := <-f.sub.C:
			out = append(out, e)
		default:
			return out
		}
	}
}

// waitFor collects events until one of type want arrives
func (f *fixture) waitFor(t *testing.T, want events.Type) []events.Event {
	t.Helper()
	var out []events.Event
	timeout := time.After(10 * time.Second)
	for {
		select {
		case e := <-f.sub.C:
			out = append(out, e)
			if e.Type == want {
				return out
			}
		case <-timeout:
			t.Fatalf("no %s event", want)
			return nil
		}
	}
}

// waitIdle blocks until no install of appID holds a session
func (f *fixture) waitIdle(t *testing.T, appID string) {
	t.Helper()
	s, ok := f.provider.pipeline.Sessions().Get(appID)
	if !ok {
		return
	}
	select {
	case <-s.Done():
	case <-time.After(10 * time.Second):
		t.Fatalf("install of %s did not finish", appID)
	}
}

func smallZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("bin/run.exe")
	require.NoError(t, err)
	_, err = w.Write([]byte("MZ"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestPluginInfoAndKey(t *testing.T) {
	f := newFixture(t)

	info := f.provider.PluginInfo()
	assert.Equal(t, "local", info.ID)
	assert.Equal(t, PluginName, info.Name)
	assert.Equal(t, MinimumAPIVersion, info.MinimumAPIVersion)

	keyType, pem := f.provider.PublicKey()
	assert.Equal(t, "RSA-SHA256", keyType)
	assert.Contains(t, pem, "BEGIN PUBLIC KEY")
}

func TestLoginRejectedWithoutAccounts(t *testing.T) {
	f := newFixture(t)

	err := f.provider.Login(context.Background(), "alice", "pw", false)
	assert.Equal(t, types.CodeAuthFailure, types.CodeOf(err))
	assert.Equal(t, types.StatusUnauthorized, f.provider.User().Status)

	got := f.drain()
	require.Len(t, got, 1)
	assert.Equal(t, events.TypeAuthError, got[0].Type)
}

func TestItemOperations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addApp(t, f.catalogRoot, "game1", "1.0.0", nil)

	items := f.provider.ProviderItems(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, "game1", items[0].Name)

	doc, err := f.provider.ItemMetadata(ctx, "game1")
	require.NoError(t, err)
	var meta types.ItemMetadata
	require.NoError(t, sonic.UnmarshalString(doc, &meta))
	assert.Equal(t, "1.0.0", meta.Version)

	opts, err := f.provider.InstallOptions(ctx, "game1")
	require.NoError(t, err)
	require.Len(t, opts, 3)
	assert.Equal(t, "windows", opts[0].Default)

	eulas, err := f.provider.Eulas(ctx, "game1")
	require.NoError(t, err)
	assert.Empty(t, eulas)

	steps, err := f.provider.PostInstallSteps(ctx, "game1")
	require.NoError(t, err)
	assert.Equal(t, "[]", steps)

	env, err := f.provider.PreLaunchHook(ctx, "game1")
	require.NoError(t, err)
	assert.Empty(t, env)
	got := f.drain()
	require.Len(t, got, 1)
	assert.Equal(t, events.TypeLaunchReady, got[0].Type)
	assert.Equal(t, "game1", got[0].AppID)

	for name, call := range map[string]func() error{
		"eulas":        func() error { _, err := f.provider.Eulas(ctx, "ghost"); return err },
		"post-install": func() error { _, err := f.provider.PostInstallSteps(ctx, "ghost"); return err },
		"pre-launch":   func() error { _, err := f.provider.PreLaunchHook(ctx, "ghost"); return err },
		"options":      func() error { _, err := f.provider.InstallOptions(ctx, "ghost"); return err },
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, types.CodeNotFound, types.CodeOf(call()))
		})
	}
}

func TestInstallDefaultsToHomeLibrary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addApp(t, f.catalogRoot, "game1", "1.0.0", smallZip(t))

	accepted, err := f.provider.Install(ctx, "game1", "", types.InstallOptions{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.home, "game1"), accepted.Path)

	got := f.waitFor(t, events.TypeInstallCompleted)
	assert.Equal(t, events.TypeInstallStarted, got[0].Type)
	f.waitIdle(t, "game1")
	assert.FileExists(t, filepath.Join(f.home, "game1", "bin", "run.exe"))

	apps, err := f.provider.ListInstalledApps(ctx)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "windows", apps[0].OS)

	launch, err := f.provider.LaunchOptions(ctx, "game1")
	require.NoError(t, err)
	require.Len(t, launch, 1)
	assert.Equal(t, filepath.Join(f.home, "game1", "bin", "run.exe"), launch[0].Executable)

	require.NoError(t, f.provider.Uninstall(ctx, "game1"))
	assert.NoDirExists(t, filepath.Join(f.home, "game1"))
}

func TestPauseWithoutInstall(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, types.CodeNotFound, types.CodeOf(f.provider.PauseInstall("game1")))
}

func TestMoveItemNotSupported(t *testing.T) {
	f := newFixture(t)
	err := f.provider.MoveItem(context.Background(), "game1", "/elsewhere")
	assert.Equal(t, types.CodeNotSupported, types.CodeOf(err))
}

func TestImportAndRefresh(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	folder := filepath.Join(t.TempDir(), "existing")
	require.NoError(t, os.MkdirAll(filepath.Join(folder, "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "metadata.toml"), []byte("version = \"2.1.0\"\ndownload_size = 10\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "bin", "run.exe"), make([]byte, 100), 0o644))

	rec, err := f.provider.Import(ctx, "imported", folder)
	require.NoError(t, err)
	assert.Equal(t, folder, rec.InstalledPath)
	assert.Equal(t, "2.1.0", rec.Version)
	assert.Equal(t, uint64(10), rec.TotalDownloadSize)
	assert.Greater(t, rec.DiskSize, uint64(100))

	count, err := f.provider.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got := f.drain()
	require.Len(t, got, 1)
	assert.Equal(t, events.TypeLibraryUpdated, got[0].Type)
	assert.Equal(t, 1, got[0].Payload.(events.LibraryUpdatedPayload).Count)
}

func TestImportRejects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	noVersion := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(noVersion, "metadata.json"), []byte(`{"name":"x"}`), 0o644))

	tests := []struct {
		name   string
		id     string
		folder string
		code   types.Code
	}{
		{"bad id", "../x", t.TempDir(), types.CodeNotFound},
		{"relative folder", "game1", "relative/dir", types.CodeIOFailure},
		{"missing folder", "game1", filepath.Join(t.TempDir(), "gone"), types.CodeNotFound},
		{"no descriptor", "game1", t.TempDir(), types.CodeMetadataUnreadable},
		{"no version", "game1", noVersion, types.CodeInvalidMetadata},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.provider.Import(ctx, tt.id, tt.folder)
			assert.Equal(t, tt.code, types.CodeOf(err))
		})
	}
}

func TestImportHoldsInstallSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	folder := filepath.Join(t.TempDir(), "existing")
	require.NoError(t, os.MkdirAll(folder, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "metadata.yaml"), []byte("version: 1.0.0\n"), 0o644))

	sessions := f.provider.pipeline.Sessions()
	release, err := sessions.Hold("game1")
	require.NoError(t, err)

	_, err = f.provider.Import(ctx, "game1", folder)
	assert.Equal(t, types.CodeAlreadyInProgress, types.CodeOf(err))
	release()

	_, err = f.provider.Import(ctx, "game1", folder)
	require.NoError(t, err)
	assert.False(t, sessions.Active("game1"), "import releases the slot when done")
}

func TestCheckUpdates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	installed := filepath.Join(t.TempDir(), "game1")
	require.NoError(t, os.MkdirAll(installed, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(installed, "metadata.yaml"), []byte("version: 1.0.0\n"), 0o644))
	_, err := f.provider.Import(ctx, "game1", installed)
	require.NoError(t, err)

	pending, err := f.provider.CheckUpdates(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Empty(t, f.drain())

	f.addApp(t, f.catalogRoot, "game1", "1.2.0", nil)

	pending, err = f.provider.CheckUpdates(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "1.2.0", pending[0].LatestVersion)
	assert.True(t, pending[0].UpdatePending)

	got := f.drain()
	require.Len(t, got, 1)
	assert.Equal(t, events.TypeAppNewVersionFound, got[0].Type)
	assert.Equal(t, events.NewVersionPayload{AppID: "game1", Version: "1.2.0"}, got[0].Payload)

	// Already recorded; no second event
	_, err = f.provider.CheckUpdates(ctx)
	require.NoError(t, err)
	assert.Empty(t, f.drain())
}
