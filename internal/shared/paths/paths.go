package paths

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

// Well-known names under the data directory
const (
	InstalledAppsDirName = "apps"
	HomeLibraryDirName   = "library"
	AccountFileName      = "account.json"
	RecordExt            = ".json"
)

// DefaultDataDir returns the per-user data directory of the provider
func DefaultDataDir() string {
	return filepath.Join(xdg.DataHome, "playtron", "plugins", "local")
}

// Layout resolves every persisted path from one data directory
type Layout struct {
	DataDir string
}

// NewLayout creates a layout rooted at dataDir, or the default when empty
func NewLayout(dataDir string) Layout {
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	return Layout{DataDir: dataDir}
}

// InstalledAppsDir returns the directory holding install records
func (l Layout) InstalledAppsDir() string {
	return filepath.Join(l.DataDir, InstalledAppsDirName)
}

// HomeLibrary returns the fixed per-user scan root
func (l Layout) HomeLibrary() string {
	return filepath.Join(l.DataDir, HomeLibraryDirName)
}

// AccountFile returns the path of the persisted account slot
func (l Layout) AccountFile() string {
	return filepath.Join(l.DataDir, AccountFileName)
}

// RecordPath returns the install record path for appID
func (l Layout) RecordPath(appID string) string {
	return filepath.Join(l.InstalledAppsDir(), appID+RecordExt)
}

// InstallPath returns destinationRoot/appID
func InstallPath(destinationRoot, appID string) string {
	return filepath.Join(destinationRoot, appID)
}

// ValidateAppID checks if an app ID is valid for path construction
func ValidateAppID(appID string) error {
	if appID == "" {
		return fmt.Errorf("app ID cannot be empty")
	}
	if filepath.IsAbs(appID) {
		return fmt.Errorf("app ID cannot be an absolute path")
	}
	if appID == "." || appID == ".." || strings.ContainsAny(appID, "/\\\x00") {
		return fmt.Errorf("app ID contains invalid path components")
	}
	return nil
}

// Within reports whether target stays inside root after cleaning
func Within(root, target string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(target))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
