package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/GriffinCanCode/librarian/internal/domain/auth"
	"github.com/GriffinCanCode/librarian/internal/domain/keys"
	"github.com/GriffinCanCode/librarian/internal/infrastructure/config"
	"github.com/GriffinCanCode/librarian/internal/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Library.DataDir = t.TempDir()
	cfg.Auth.KeyBits = 1024
	return cfg
}

func TestNewBuildsContext(t *testing.T) {
	appCtx, err := New(context.Background(), testConfig(t), Options{})
	require.NoError(t, err)
	defer appCtx.Close()

	assert.NotEmpty(t, appCtx.Keys.PublicPEM())
	assert.Equal(t, keys.KeyType, appCtx.Keys.KeyType())
	assert.Equal(t, types.StatusUnauthorized, appCtx.Auth.Status())
}

func TestNewRestoresAccount(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Library.DataDir, "account.json"),
		[]byte(`{"id":"acct-7","username":"dana"}`), 0o600))

	appCtx, err := New(context.Background(), cfg, Options{
		Backend: auth.BackendFunc(func(ctx context.Context, name, secret string) (types.Account, error) {
			return types.Account{}, types.ErrAuthFailure
		}),
	})
	require.NoError(t, err)
	defer appCtx.Close()

	assert.Equal(t, types.StatusAuthorized, appCtx.Auth.Status())
	assert.Equal(t, "dana", appCtx.Auth.Username())
}

func TestNewIgnoresCorruptAccount(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Library.DataDir, "account.json"), []byte("{"), 0o600))

	appCtx, err := New(context.Background(), cfg, Options{})
	require.NoError(t, err)
	defer appCtx.Close()
	assert.Equal(t, types.StatusUnauthorized, appCtx.Auth.Status())
}

func TestNewRejectsBadAccountsFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.AccountsFile = filepath.Join(t.TempDir(), "accounts.yaml")
	require.NoError(t, os.WriteFile(cfg.Auth.AccountsFile, []byte("accounts: [unterminated"), 0o600))

	_, err := New(context.Background(), cfg, Options{})
	assert.Error(t, err)
}
