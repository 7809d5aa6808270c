package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/GriffinCanCode/librarian/internal/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newBackend(t *testing.T) *LocalBackend {
	t.Helper()
	b, err := NewLocalBackend(filepath.Join(t.TempDir(), "accounts.yaml"), nil)
	require.NoError(t, err)
	b.cost = bcrypt.MinCost
	return b
}

func TestLocalBackendMissingFileRejects(t *testing.T) {
	b := newBackend(t)

	_, err := b.Authenticate(context.Background(), "alice", "pw")
	assert.ErrorIs(t, err, types.ErrAuthFailure)
}

func TestLocalBackendAddAndReload(t *testing.T) {
	b := newBackend(t)

	acct, err := b.AddAccount("alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "alice", acct.Username)
	assert.NotEmpty(t, acct.ID)

	reloaded, err := NewLocalBackend(b.path, nil)
	require.NoError(t, err)

	got, err := reloaded.Authenticate(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, acct, got)

	_, err = reloaded.Authenticate(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, types.ErrAuthFailure)
}

func TestLocalBackendDerivesMissingID(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "accounts.yaml")
	doc := "accounts:\n" +
		"  - username: bob\n" +
		"    password_hash: \"" + string(hash) + "\"\n" +
		"  - username: incomplete\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	b, err := NewLocalBackend(path, nil)
	require.NoError(t, err)

	first, err := b.Authenticate(context.Background(), "bob", "pw")
	require.NoError(t, err)
	assert.Equal(t, accountID("bob"), first.ID)

	_, err = b.Authenticate(context.Background(), "incomplete", "")
	assert.Error(t, err)
}

func TestLocalBackendRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("accounts: [unterminated"), 0o600))

	_, err := NewLocalBackend(path, nil)
	assert.Error(t, err)
}

func TestLocalBackendAddValidates(t *testing.T) {
	b := newBackend(t)

	_, err := b.AddAccount("", "pw")
	assert.Error(t, err)
	_, err = b.AddAccount("bad name", "pw")
	assert.Error(t, err)
	_, err = b.AddAccount("carol", "")
	assert.Error(t, err)
}
