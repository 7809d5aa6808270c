package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/GriffinCanCode/librarian/internal/domain/events"
	"github.com/GriffinCanCode/librarian/internal/infrastructure/logging"
	"github.com/GriffinCanCode/librarian/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/librarian/internal/shared/types"
	"github.com/GriffinCanCode/librarian/internal/shared/utils"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// Decrypter opens secrets encrypted to the process public key
type Decrypter interface {
	DecryptString(encoded string) (string, error)
}

// SessionOptions configures a Session
type SessionOptions struct {
	// AccountFile persists the slot across restarts; empty disables it
	AccountFile string
	Keys        Decrypter
	Emitter     events.Emitter
	Metrics     *monitoring.Metrics
	Logger      *logging.Logger
}

// Session is the account slot. All access is serialized.
type Session struct {
	mu      sync.RWMutex
	account *types.Account

	backend     IdentityBackend
	accountFile string
	keys        Decrypter
	emitter     events.Emitter
	metrics     *monitoring.Metrics
	logger      *logging.Logger
}

// NewSession creates an empty account slot
func NewSession(backend IdentityBackend, opts SessionOptions) *Session {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Emitter == nil {
		opts.Emitter = events.Nop
	}
	return &Session{
		backend:     backend,
		accountFile: opts.AccountFile,
		keys:        opts.Keys,
		emitter:     opts.Emitter,
		metrics:     opts.Metrics,
		logger:      opts.Logger.Named("auth"),
	}
}

// Restore loads a saved account into the slot. A missing file is not an
// error.
func (s *Session) Restore(ctx context.Context) error {
	if s.accountFile == "" {
		return nil
	}
	data, err := os.ReadFile(s.accountFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read account file: %w", err)
	}

	var acct types.Account
	if err := sonic.Unmarshal(data, &acct); err != nil {
		return fmt.Errorf("failed to parse account file: %w", err)
	}
	if acct.ID == "" {
		return nil
	}

	s.mu.Lock()
	s.account = &acct
	s.mu.Unlock()
	s.logger.Info("Restored account", zap.String("username", acct.Username))
	return nil
}

// Login verifies credentials and fills the slot. When encrypted is set,
// secret is a base64 ciphertext for the process key. Every failure emits
// one auth-error event.
func (s *Session) Login(ctx context.Context, name, secret string, encrypted bool) error {
	if encrypted {
		if s.keys == nil {
			return s.fail(name, "encrypted secrets are not accepted")
		}
		plain, err := s.keys.DecryptString(secret)
		if err != nil {
			s.logger.Debug("Secret decryption failed", zap.Error(err))
			return s.fail(name, "could not decrypt secret")
		}
		secret = plain
	}

	if err := utils.ValidateUsername(name); err != nil {
		return s.fail(name, err.Error())
	}
	if err := utils.ValidateSecret(secret); err != nil {
		return s.fail(name, err.Error())
	}

	acct, err := s.backend.Authenticate(ctx, name, secret)
	if err != nil {
		return s.fail(name, types.CauseOf(err))
	}
	if acct.ID == "" {
		return s.fail(name, "identity backend returned an empty identifier")
	}
	if acct.Username == "" {
		acct.Username = name
	}

	s.mu.Lock()
	s.account = &acct
	s.persistLocked()
	s.mu.Unlock()

	s.metrics.RecordAuthAttempt("success")
	s.logger.Info("Logged in", zap.String("username", acct.Username))
	s.emitChanged()
	return nil
}

func (s *Session) fail(name, cause string) error {
	s.metrics.RecordAuthAttempt("failure")
	s.logger.Warn("Login failed", zap.String("username", name), zap.String("cause", cause))
	s.emitter.Emit(events.AuthError(cause))
	return types.NewError(types.CodeAuthFailure, cause, types.ErrAuthFailure)
}

// Logout clears the slot. id may be empty or name the current account by
// identifier or username.
func (s *Session) Logout(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.account == nil {
		s.mu.Unlock()
		return types.NewError(types.CodeNotLoggedIn, "no account is logged in", types.ErrNotLoggedIn)
	}
	if id != "" && id != s.account.ID && id != s.account.Username {
		s.mu.Unlock()
		return types.NewError(types.CodeNotFound, fmt.Sprintf("account %q is not logged in", id), types.ErrNotFound)
	}
	username := s.account.Username
	s.account = nil
	s.persistLocked()
	s.mu.Unlock()

	s.logger.Info("Logged out", zap.String("username", username))
	s.emitChanged()
	return nil
}

func (s *Session) emitChanged() {
	for _, which := range []string{events.PropertyStatus, events.PropertyUsername, events.PropertyIdentifier} {
		s.emitter.Emit(events.PropertyChanged(which))
	}
}

// persistLocked mirrors the slot to the account file. Failures are logged;
// the in-memory slot stays authoritative.
func (s *Session) persistLocked() {
	if s.accountFile == "" {
		return
	}

	if s.account == nil {
		if err := os.Remove(s.accountFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("Failed to remove account file", zap.Error(err))
		}
		return
	}

	data, err := sonic.Marshal(s.account)
	if err == nil {
		if err = os.MkdirAll(filepath.Dir(s.accountFile), 0o700); err == nil {
			err = os.WriteFile(s.accountFile, data, 0o600)
		}
	}
	if err != nil {
		s.logger.Warn("Failed to save account file", zap.Error(err))
	}
}

// Account returns the authenticated account, if any
func (s *Session) Account() (types.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.account == nil {
		return types.Account{}, false
	}
	return *s.account, true
}

// Status is derived from the slot
func (s *Session) Status() types.ProviderStatus {
	acct, ok := s.Account()
	if ok && acct.ID != "" {
		return types.StatusAuthorized
	}
	return types.StatusUnauthorized
}

// Identifier returns the account id, or "" when logged out
func (s *Session) Identifier() string {
	acct, _ := s.Account()
	return acct.ID
}

// Username returns the account name, or "" when logged out
func (s *Session) Username() string {
	acct, _ := s.Account()
	return acct.Username
}

// User returns the derived user profile
func (s *Session) User() types.User {
	acct, ok := s.Account()
	status := types.StatusUnauthorized
	if ok && acct.ID != "" {
		status = types.StatusAuthorized
	}
	return types.User{
		Identifier: acct.ID,
		Username:   acct.Username,
		Avatar:     "",
		Status:     status,
	}
}
