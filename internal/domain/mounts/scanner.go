// Package mounts enumerates the storage roots the catalog scans.
package mounts

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/GriffinCanCode/librarian/internal/infrastructure/logging"
	"github.com/shirou/gopsutil/v3/disk"
	"go.uber.org/zap"
)

// DefaultRemovablePrefixes are the mount point prefixes treated as removable media
var DefaultRemovablePrefixes = []string{"/media", "/run/media"}

// PartitionLister lists mounted filesystems
type PartitionLister interface {
	Partitions(ctx context.Context) ([]disk.PartitionStat, error)
}

// SystemPartitions lists mounts through gopsutil
type SystemPartitions struct{}

// Partitions implements PartitionLister
func (SystemPartitions) Partitions(ctx context.Context) ([]disk.PartitionStat, error) {
	return disk.PartitionsWithContext(ctx, true)
}

// Scanner produces the ordered list of scan roots: the home library first,
// then qualifying removable mounts in lexical order.
type Scanner struct {
	home     string
	prefixes []string
	lister   PartitionLister
	logger   *logging.Logger
}

// NewScanner creates a scanner. A nil lister uses the system mount table.
func NewScanner(home string, prefixes []string, lister PartitionLister, logger *logging.Logger) *Scanner {
	if lister == nil {
		lister = SystemPartitions{}
	}
	if prefixes == nil {
		prefixes = DefaultRemovablePrefixes
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scanner{
		home:     home,
		prefixes: prefixes,
		lister:   lister,
		logger:   logger.Named("mounts"),
	}
}

// Home returns the fixed per-user root
func (s *Scanner) Home() string {
	return s.home
}

// ListRoots returns existing roots in scan order. Missing roots are skipped;
// the scanner never creates directories.
func (s *Scanner) ListRoots(ctx context.Context) []string {
	roots := make([]string, 0, 4)
	seen := make(map[string]bool)

	add := func(path string) {
		if path == "" || seen[path] {
			return
		}
		seen[path] = true
		if !isDir(path) {
			return
		}
		roots = append(roots, path)
	}

	add(s.home)

	partitions, err := s.lister.Partitions(ctx)
	if err != nil {
		s.logger.Warn("Failed to list mount points", zap.Error(err))
		return roots
	}

	removable := make([]string, 0, len(partitions))
	for _, p := range partitions {
		if s.IsRemovable(p.Mountpoint) {
			removable = append(removable, p.Mountpoint)
		}
	}
	sort.Strings(removable)

	for _, mp := range removable {
		add(mp)
	}
	return roots
}

// IsRemovable reports whether a mount point starts with a removable-media prefix
func (s *Scanner) IsRemovable(mountpoint string) bool {
	for _, prefix := range s.prefixes {
		if prefix != "" && strings.HasPrefix(mountpoint, prefix) {
			return true
		}
	}
	return false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
