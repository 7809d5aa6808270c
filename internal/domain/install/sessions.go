package install

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/librarian/internal/shared/id"
	"github.com/GriffinCanCode/librarian/internal/shared/types"
)

// ErrShuttingDown is returned for installs requested during shutdown
var ErrShuttingDown = errors.New("install sessions are shutting down")

// Session is one in-flight install
type Session struct {
	ID      id.SessionID
	AppID   string
	Path    string
	Started time.Time

	ctx    context.Context
	cancel context.CancelFunc
	stage  atomic.Int32
	done   chan struct{}
}

// Context is cancelled when the session is paused or shut down
func (s *Session) Context() context.Context {
	return s.ctx
}

// Stage returns the current stage
func (s *Session) Stage() types.Stage {
	return types.Stage(s.stage.Load())
}

func (s *Session) setStage(stage types.Stage) {
	s.stage.Store(int32(stage))
}

// Done is closed once the session is released
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Info is a snapshot of a session
type Info struct {
	SessionID string      `json:"session_id"`
	AppID     string      `json:"app_id"`
	Path      string      `json:"path"`
	Stage     types.Stage `json:"stage"`
	Started   time.Time   `json:"started"`
}

// Sessions tracks live install sessions by app id
type Sessions struct {
	mu     sync.Mutex
	byApp  map[string]*Session
	closed bool
	wg     sync.WaitGroup

	root   context.Context
	cancel context.CancelFunc
}

// NewSessions creates an empty session registry
func NewSessions() *Sessions {
	root, cancel := context.WithCancel(context.Background())
	return &Sessions{
		byApp:  make(map[string]*Session),
		root:   root,
		cancel: cancel,
	}
}

// Acquire claims the slot for appID. The session context is detached from
// any request context; it ends on Cancel or Shutdown.
func (r *Sessions) Acquire(appID, path string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrShuttingDown
	}
	if existing, ok := r.byApp[appID]; ok {
		return nil, types.NewError(types.CodeAlreadyInProgress,
			fmt.Sprintf("app %q is busy with session %s", appID, existing.ID), types.ErrAlreadyInProgress)
	}

	ctx, cancel := context.WithCancel(r.root)
	s := &Session{
		ID:      id.NewSessionID(),
		AppID:   appID,
		Path:    path,
		Started: time.Now(),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	s.setStage(types.StageResolving)
	r.byApp[appID] = s
	r.wg.Add(1)
	return s, nil
}

// Hold claims the slot of appID for a synchronous operation such as an
// uninstall or import, so no install can start on that id until the
// returned release func is called.
func (r *Sessions) Hold(appID string) (func(), error) {
	s, err := r.Acquire(appID, "")
	if err != nil {
		return nil, err
	}
	s.setStage(types.StageFinalizing)
	return func() { r.Release(s) }, nil
}

// Release frees the slot held by s. Call exactly once per Acquire.
func (r *Sessions) Release(s *Session) {
	r.mu.Lock()
	if r.byApp[s.AppID] == s {
		delete(r.byApp, s.AppID)
	}
	r.mu.Unlock()

	s.cancel()
	close(s.done)
	r.wg.Done()
}

// Active reports whether appID has a live session
func (r *Sessions) Active(appID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byApp[appID]
	return ok
}

// Cancel asks the session of appID to stop. It does not wait.
func (r *Sessions) Cancel(appID string) error {
	r.mu.Lock()
	s, ok := r.byApp[appID]
	r.mu.Unlock()

	if !ok {
		return types.NewError(types.CodeNotFound,
			fmt.Sprintf("no install in progress for %q", appID), types.ErrNotFound)
	}
	s.cancel()
	return nil
}

// Get returns the live session of appID
func (r *Sessions) Get(appID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byApp[appID]
	return s, ok
}

// List returns snapshots of live sessions ordered by start
func (r *Sessions) List() []Info {
	r.mu.Lock()
	infos := make([]Info, 0, len(r.byApp))
	for _, s := range r.byApp {
		infos = append(infos, Info{
			SessionID: s.ID.String(),
			AppID:     s.AppID,
			Path:      s.Path,
			Stage:     s.Stage(),
			Started:   s.Started,
		})
	}
	r.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].SessionID < infos[j].SessionID })
	return infos
}

// Shutdown cancels every session and waits for them to release, or for
// ctx to end
func (r *Sessions) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
