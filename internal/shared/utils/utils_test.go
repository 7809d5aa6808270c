package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.bin")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	sum, n, err := DefaultHasher().HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", sum)
	assert.True(t, EqualDigest(strings.ToUpper(sum), sum))
}

func TestHashFileMissing(t *testing.T) {
	_, _, err := DefaultHasher().HashFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "alice", false},
		{"email", "alice@example.com", false},
		{"empty", "", true},
		{"space", "al ice", true},
		{"nul", "al\x00ice", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	assert.NoError(t, ValidatePath("/media/usb/games", "destination"))
	assert.Error(t, ValidatePath("relative/dir", "destination"))
	assert.Error(t, ValidatePath("", "destination"))
}
