package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/GriffinCanCode/librarian/internal/shared/paths"
)

// Store persists record documents by name
type Store interface {
	Read(id string) ([]byte, error)
	Write(id string, data []byte) error
	Remove(id string) error
	List() ([]string, error)
}

// DiskStore keeps one <id>.json file per record in a directory that is
// created on first write.
type DiskStore struct {
	dir string
}

// NewDiskStore creates a store rooted at dir
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: dir}
}

// Dir returns the record directory
func (s *DiskStore) Dir() string {
	return s.dir
}

func (s *DiskStore) path(id string) string {
	return filepath.Join(s.dir, id+paths.RecordExt)
}

// Read returns the record document; fs.ErrNotExist when absent
func (s *DiskStore) Read(id string) ([]byte, error) {
	return os.ReadFile(s.path(id))
}

// Write replaces the record document atomically
func (s *DiskStore) Write(id string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create record directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+id+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp record: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp record: %w", err)
	}

	if err := os.Rename(tmpName, s.path(id)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace record: %w", err)
	}
	return nil
}

// Remove deletes the record document; a missing document is not an error
func (s *DiskStore) Remove(id string) error {
	err := os.Remove(s.path(id))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// List returns the ids of all stored records
func (s *DiskStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != paths.RecordExt {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, paths.RecordExt))
	}
	return ids, nil
}
