package mounts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLister struct {
	mock.Mock
}

func (m *mockLister) Partitions(ctx context.Context) ([]disk.PartitionStat, error) {
	args := m.Called(ctx)
	if parts := args.Get(0); parts != nil {
		return parts.([]disk.PartitionStat), args.Error(1)
	}
	return nil, args.Error(1)
}

func mkdirs(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		require.NoError(t, os.MkdirAll(p, 0o755))
	}
}

func TestListRoots(t *testing.T) {
	base := t.TempDir()
	home := filepath.Join(base, "home", "library")
	usbB := filepath.Join(base, "media", "usb-b")
	usbA := filepath.Join(base, "run", "media", "deck", "sd")
	network := filepath.Join(base, "mnt", "nas")
	mkdirs(t, home, usbA, usbB, network)

	prefixes := []string{filepath.Join(base, "media"), filepath.Join(base, "run", "media")}

	lister := new(mockLister)
	lister.On("Partitions", mock.Anything).Return([]disk.PartitionStat{
		{Mountpoint: "/"},
		{Mountpoint: usbB},
		{Mountpoint: network},
		{Mountpoint: usbA},
		{Mountpoint: filepath.Join(base, "media", "unplugged")},
	}, nil)

	scanner := NewScanner(home, prefixes, lister, nil)
	roots := scanner.ListRoots(context.Background())

	assert.Equal(t, []string{home, usbB, usbA}, roots)
	lister.AssertExpectations(t)
}

func TestListRootsSkipsMissingHome(t *testing.T) {
	lister := new(mockLister)
	lister.On("Partitions", mock.Anything).Return([]disk.PartitionStat{}, nil)

	scanner := NewScanner(filepath.Join(t.TempDir(), "absent"), nil, lister, nil)

	assert.Empty(t, scanner.ListRoots(context.Background()))
}

func TestListRootsSurvivesMountTableFailure(t *testing.T) {
	home := t.TempDir()
	lister := new(mockLister)
	lister.On("Partitions", mock.Anything).Return(nil, errors.New("no /proc"))

	scanner := NewScanner(home, nil, lister, nil)

	assert.Equal(t, []string{home}, scanner.ListRoots(context.Background()))
}

func TestIsRemovable(t *testing.T) {
	scanner := NewScanner("", nil, new(mockLister), nil)

	tests := []struct {
		mountpoint string
		want       bool
	}{
		{"/media/usb", true},
		{"/run/media/deck/sd", true},
		{"/mnt/usb", false},
		{"/", false},
		{"/home/media", false},
	}

	for _, tt := range tests {
		t.Run(tt.mountpoint, func(t *testing.T) {
			assert.Equal(t, tt.want, scanner.IsRemovable(tt.mountpoint))
		})
	}
}
