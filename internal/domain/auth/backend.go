package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/GriffinCanCode/librarian/internal/infrastructure/logging"
	"github.com/GriffinCanCode/librarian/internal/shared/types"
	"github.com/GriffinCanCode/librarian/internal/shared/utils"
	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// IdentityBackend verifies credentials
type IdentityBackend interface {
	Authenticate(ctx context.Context, name, secret string) (types.Account, error)
}

// BackendFunc adapts a function to IdentityBackend
type BackendFunc func(ctx context.Context, name, secret string) (types.Account, error)

// Authenticate calls f
func (f BackendFunc) Authenticate(ctx context.Context, name, secret string) (types.Account, error) {
	return f(ctx, name, secret)
}

var errInvalidCredentials = fmt.Errorf("invalid username or secret: %w", types.ErrAuthFailure)

type accountEntry struct {
	Username     string `yaml:"username"`
	ID           string `yaml:"id,omitempty"`
	PasswordHash string `yaml:"password_hash"`
}

type accountsFile struct {
	Accounts []accountEntry `yaml:"accounts"`
}

// LocalBackend checks secrets against bcrypt hashes kept in a YAML file
type LocalBackend struct {
	path   string
	mu     sync.RWMutex
	byName map[string]accountEntry
	cost   int
	logger *logging.Logger
}

// NewLocalBackend loads the accounts file at path. A missing file yields a
// backend that rejects every login.
func NewLocalBackend(path string, logger *logging.Logger) (*LocalBackend, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	b := &LocalBackend{
		path:   path,
		byName: make(map[string]accountEntry),
		cost:   bcrypt.DefaultCost,
		logger: logger.Named("accounts"),
	}
	if err := b.load(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *LocalBackend) load() error {
	if b.path == "" {
		return nil
	}
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		b.logger.Info("No accounts file, all logins will be rejected", zap.String("path", b.path))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read accounts file: %w", err)
	}

	var file accountsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse accounts file: %w", err)
	}

	for _, entry := range file.Accounts {
		if entry.Username == "" || entry.PasswordHash == "" {
			b.logger.Warn("Skipping incomplete account entry", zap.String("username", entry.Username))
			continue
		}
		if entry.ID == "" {
			entry.ID = accountID(entry.Username)
		}
		b.byName[entry.Username] = entry
	}
	b.logger.Info("Loaded accounts", zap.Int("count", len(b.byName)))
	return nil
}

// accountID derives a stable identifier for entries that do not declare one
func accountID(username string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("librarian:"+username)).String()
}

// Authenticate implements IdentityBackend
func (b *LocalBackend) Authenticate(ctx context.Context, name, secret string) (types.Account, error) {
	if err := ctx.Err(); err != nil {
		return types.Account{}, err
	}

	b.mu.RLock()
	entry, ok := b.byName[name]
	b.mu.RUnlock()
	if !ok {
		return types.Account{}, errInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(entry.PasswordHash), []byte(secret)); err != nil {
		return types.Account{}, errInvalidCredentials
	}
	return types.Account{ID: entry.ID, Username: entry.Username}, nil
}

// AddAccount stores a new account with a bcrypt hash of secret and
// rewrites the accounts file
func (b *LocalBackend) AddAccount(name, secret string) (types.Account, error) {
	if err := utils.ValidateUsername(name); err != nil {
		return types.Account{}, err
	}
	if err := utils.ValidateSecret(secret); err != nil {
		return types.Account{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), b.cost)
	if err != nil {
		return types.Account{}, fmt.Errorf("failed to hash secret: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	entry := accountEntry{Username: name, ID: uuid.NewString(), PasswordHash: string(hash)}
	if existing, ok := b.byName[name]; ok {
		entry.ID = existing.ID
	}
	b.byName[name] = entry

	if err := b.saveLocked(); err != nil {
		return types.Account{}, err
	}
	return types.Account{ID: entry.ID, Username: entry.Username}, nil
}

func (b *LocalBackend) saveLocked() error {
	if b.path == "" {
		return nil
	}

	var file accountsFile
	for _, entry := range b.byName {
		file.Accounts = append(file.Accounts, entry)
	}
	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to marshal accounts: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(b.path, data, 0o600)
}
