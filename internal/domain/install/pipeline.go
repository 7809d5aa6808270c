package install

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/GriffinCanCode/librarian/internal/archive"
	"github.com/GriffinCanCode/librarian/internal/domain/catalog"
	"github.com/GriffinCanCode/librarian/internal/domain/events"
	"github.com/GriffinCanCode/librarian/internal/infrastructure/logging"
	"github.com/GriffinCanCode/librarian/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/librarian/internal/shared/paths"
	"github.com/GriffinCanCode/librarian/internal/shared/types"
	"github.com/GriffinCanCode/librarian/internal/shared/utils"
	"github.com/GriffinCanCode/librarian/internal/transfer"
	"go.uber.org/zap"
)

// DefaultChunkSize bounds one read from a transfer source
const DefaultChunkSize = 32 * 1024

// ReasonCancelled is the failure reason of a paused install
const ReasonCancelled = "install cancelled"

// Catalog is the part of the catalog store installs depend on
type Catalog interface {
	LoadMetadata(ctx context.Context, id string) (types.AppMetadata, error)
	AppDir(ctx context.Context, id string) (string, error)
	WriteInstalledApp(ctx context.Context, rec *types.InstalledApp) error
	Uninstall(ctx context.Context, id string) error
	DefaultPlatform() string
}

// SourceResolver picks where an archive is streamed from
type SourceResolver interface {
	Resolve(meta types.AppMetadata, appDir, fileName string) (transfer.Source, error)
}

// Options configures a Pipeline
type Options struct {
	ChunkSize int
	Metrics   *monitoring.Metrics
	Logger    *logging.Logger
}

// Pipeline runs installs and uninstalls
type Pipeline struct {
	catalog   Catalog
	sources   SourceResolver
	sessions  *Sessions
	emitter   events.Emitter
	metrics   *monitoring.Metrics
	logger    *logging.Logger
	chunkSize int
	hasher    *utils.Hasher

	extract   func(ctx context.Context, src, dest string) (archive.Result, error)
	diskUsage func(ctx context.Context, root string) (uint64, error)
}

// NewPipeline creates an install pipeline
func NewPipeline(cat Catalog, sources SourceResolver, sessions *Sessions, emitter events.Emitter, opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if emitter == nil {
		emitter = events.Nop
	}
	return &Pipeline{
		catalog:   cat,
		sources:   sources,
		sessions:  sessions,
		emitter:   emitter,
		metrics:   opts.Metrics,
		logger:    opts.Logger.Named("install"),
		chunkSize: opts.ChunkSize,
		hasher:    utils.NewHasher(utils.SHA256),
		extract:   archive.Extract,
		diskUsage: catalog.DiskUsage,
	}
}

// Sessions exposes the live session registry
func (p *Pipeline) Sessions() *Sessions {
	return p.sessions
}

// task carries everything the background stages need
type task struct {
	session *Session
	meta    types.AppMetadata
	fields  types.InstallFields
	appDir  string
	record  types.InstalledApp
	opts    types.InstallOptions
	timer   *monitoring.Timer

	// bytes actually read from the source
	received uint64
}

// Install validates metadata, persists the pending record and starts the
// transfer in the background. It returns before any transfer I/O.
func (p *Pipeline) Install(ctx context.Context, appID, destinationRoot string, opts types.InstallOptions) (types.InstallAccepted, error) {
	if err := paths.ValidateAppID(appID); err != nil {
		return types.InstallAccepted{}, types.NotFound(appID)
	}
	if destinationRoot == "" {
		return types.InstallAccepted{}, types.IOFailure("resolve destination", errors.New("destination root is empty"))
	}
	root, err := filepath.Abs(destinationRoot)
	if err != nil {
		return types.InstallAccepted{}, types.IOFailure("resolve destination", err)
	}
	path := paths.InstallPath(root, appID)

	session, err := p.sessions.Acquire(appID, path)
	if err != nil {
		return types.InstallAccepted{}, err
	}

	t, err := p.prepare(ctx, session, opts)
	if err != nil {
		p.sessions.Release(session)
		p.logger.Warn("Install rejected", zap.String("app_id", appID), zap.Error(err))
		return types.InstallAccepted{}, err
	}

	t.timer = monitoring.NewInstallTimer(p.metrics)
	go p.run(t)

	p.logger.Info("Install accepted",
		zap.String("app_id", appID),
		zap.String("session", session.ID.String()),
		zap.String("path", path))
	return types.InstallAccepted{
		SessionID: session.ID.String(),
		AppID:     appID,
		Path:      path,
		Status:    0,
	}, nil
}

// prepare runs Resolving and Preallocating
func (p *Pipeline) prepare(ctx context.Context, session *Session, opts types.InstallOptions) (*task, error) {
	appID := session.AppID

	meta, err := p.catalog.LoadMetadata(ctx, appID)
	if err != nil {
		return nil, err
	}
	fields, err := meta.InstallFields()
	if err != nil {
		return nil, err
	}
	appDir, _ := p.catalog.AppDir(ctx, appID)

	platform := opts.Platform
	if platform == "" {
		platform = meta.Platform(p.catalog.DefaultPlatform())
	}

	session.setStage(types.StagePreallocating)
	record := types.InstalledApp{
		AppID:             appID,
		InstalledPath:     session.Path,
		DownloadedBytes:   0,
		TotalDownloadSize: fields.DownloadSize,
		DiskSize:          fields.DiskSize,
		Version:           fields.Version,
		LatestVersion:     fields.Version,
		OS:                platform,
		Language:          opts.Language,
		DisabledDLC:       []string{},
	}
	if err := p.catalog.WriteInstalledApp(ctx, &record); err != nil {
		return nil, err
	}
	// Leave the descriptor with the install so lookups and retries work
	if err := catalog.WriteDescriptor(session.Path, meta); err != nil {
		return nil, types.IOFailure("write descriptor", err)
	}

	return &task{
		session: session,
		meta:    meta,
		fields:  fields,
		appDir:  appDir,
		record:  record,
		opts:    opts,
	}, nil
}

// run performs the background stages and always ends in exactly one
// terminal event
func (p *Pipeline) run(t *task) {
	s := t.session
	defer p.sessions.Release(s)

	logger := p.logger.With(zap.String("app_id", s.AppID), zap.String("session", s.ID.String()))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Install panicked", zap.Any("panic", r))
			p.fail(t, fmt.Errorf("internal error: %v", r))
		}
	}()

	p.emitter.Emit(events.InstallStarted(events.InstallStartedPayload{
		AppID:           s.AppID,
		Version:         t.record.Version,
		Path:            s.Path,
		TotalSize:       t.fields.DownloadSize,
		RequiresNetwork: t.meta.Bool(types.MetaRequiresNetwork),
		OS:              t.record.OS,
	}))

	ctx := s.Context()
	archivePath, err := p.download(ctx, t)
	if err == nil && t.opts.Verify {
		err = p.verify(ctx, t, archivePath)
	}
	if err == nil {
		err = p.unpack(ctx, t, archivePath)
	}
	if err == nil {
		err = p.finalize(ctx, t)
	}
	if err != nil {
		logger.Warn("Install failed", zap.String("stage", s.Stage().String()), zap.Error(err))
		p.fail(t, err)
		return
	}

	s.setStage(types.StageCompleted)
	t.timer.Stop("completed")
	logger.Info("Install completed", zap.Duration("elapsed", t.timer.Elapsed()))
	p.emitter.Emit(events.InstallCompleted(s.AppID))
}

func (p *Pipeline) fail(t *task, err error) {
	reason := types.CauseOf(err)
	result := "failed"
	if errors.Is(err, context.Canceled) || errors.Is(t.session.Context().Err(), context.Canceled) {
		reason = ReasonCancelled
		result = "cancelled"
	}
	t.session.setStage(types.StageFailed)
	t.timer.Stop(result)
	p.emitter.Emit(events.InstallFailed(t.session.AppID, reason))
}

// download streams the archive into the install path in bounded chunks
func (p *Pipeline) download(ctx context.Context, t *task) (string, error) {
	s := t.session
	s.setStage(types.StageDownloading)

	src, err := p.sources.Resolve(t.meta, t.appDir, t.fields.FileName)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Path, 0o755); err != nil {
		return "", types.IOFailure("create install directory", err)
	}

	archivePath := filepath.Join(s.Path, t.fields.FileName+archive.PartialSuffix)
	if local, ok := src.(transfer.FileSource); ok && sameFile(local.Path, archivePath) {
		return "", types.IOFailure("download", fmt.Errorf("source %s is the destination archive", local.Path))
	}

	body, _, err := src.Open(ctx)
	if err != nil {
		if types.CodeOf(err) == types.CodeNotFound {
			return "", err
		}
		return "", types.IOFailure(fmt.Sprintf("open %s", src.Location()), err)
	}
	defer body.Close()

	dest, err := os.Create(archivePath)
	if err != nil {
		return "", types.IOFailure("create archive file", err)
	}

	if err := p.stream(ctx, t, body, dest); err != nil {
		dest.Close()
		return "", err
	}
	if err := dest.Close(); err != nil {
		return "", types.IOFailure("close archive file", err)
	}
	return archivePath, nil
}

// stream copies src to dest one bounded read at a time. Progress is
// clamped to the declared size; a source that ends before it is a transfer
// failure.
func (p *Pipeline) stream(ctx context.Context, t *task, src io.Reader, dest io.Writer) error {
	appID := t.session.AppID
	total := t.fields.DownloadSize
	buf := make([]byte, p.chunkSize)
	var received, downloaded uint64

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dest.Write(buf[:n]); err != nil {
				return types.IOFailure("write archive", err)
			}
			received += uint64(n)
			downloaded = min(received, total)
			t.received = received
			p.metrics.AddDownloaded(n)
			p.emitter.Emit(events.InstallProgressed(appID, types.StageDownloading, downloaded, total))
		}

		switch {
		case readErr == nil:
		case errors.Is(readErr, io.EOF):
			if received < total {
				return types.IOFailure("read transfer", fmt.Errorf("transfer ended at %d of %d bytes", received, total))
			}
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			return types.IOFailure("read transfer", readErr)
		}
	}
}

// verify checks the archive size and, when declared, its SHA-256
func (p *Pipeline) verify(ctx context.Context, t *task, archivePath string) error {
	t.session.setStage(types.StageVerifying)
	if err := ctx.Err(); err != nil {
		return err
	}

	sum, size, err := p.hasher.HashFile(archivePath)
	if err != nil {
		return types.IOFailure("hash archive", err)
	}
	if uint64(size) != t.fields.DownloadSize {
		return types.NewError(types.CodeIOFailure,
			fmt.Sprintf("archive is %d bytes, expected %d", size, t.fields.DownloadSize), types.ErrIOFailure)
	}
	if want, ok := t.meta.Get(types.MetaSHA256); ok && !utils.EqualDigest(sum, want) {
		return types.NewError(types.CodeIOFailure, "archive checksum mismatch", types.ErrIOFailure)
	}
	return nil
}

// unpack extracts the archive into the install path and removes it
func (p *Pipeline) unpack(ctx context.Context, t *task, archivePath string) error {
	t.session.setStage(types.StageExtracting)

	res, err := p.extract(ctx, archivePath, t.session.Path)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return types.IOFailure("extract archive", err)
	}
	if err := os.Remove(archivePath); err != nil {
		p.logger.Warn("Failed to remove archive", zap.String("path", archivePath), zap.Error(err))
	}

	p.logger.Debug("Extracted archive",
		zap.String("app_id", t.session.AppID),
		zap.String("format", res.Format.String()),
		zap.Int("files", res.Files),
		zap.Int64("bytes", res.Bytes))
	return nil
}

// finalize rewrites the record with final byte counts
func (p *Pipeline) finalize(ctx context.Context, t *task) error {
	t.session.setStage(types.StageFinalizing)

	rec := t.record
	rec.DownloadedBytes = min(t.received, rec.TotalDownloadSize)
	if size, err := p.diskUsage(ctx, t.session.Path); err == nil {
		rec.DiskSize = size
	} else {
		p.logger.Warn("Failed to measure install size", zap.String("app_id", rec.AppID), zap.Error(err))
	}

	if err := p.catalog.WriteInstalledApp(ctx, &rec); err != nil {
		return err
	}
	t.record = rec
	return nil
}

// Uninstall removes an installed app. It holds the app's session slot for
// the whole removal; apps with a live install must be paused first.
func (p *Pipeline) Uninstall(ctx context.Context, appID string) error {
	release, err := p.sessions.Hold(appID)
	if err != nil {
		return err
	}
	defer release()
	return p.catalog.Uninstall(ctx, appID)
}

// Pause cancels the live install of appID
func (p *Pipeline) Pause(appID string) error {
	if err := p.sessions.Cancel(appID); err != nil {
		return err
	}
	p.logger.Info("Install cancellation requested", zap.String("app_id", appID))
	return nil
}

// Shutdown cancels all sessions and waits for them to finish
func (p *Pipeline) Shutdown(ctx context.Context) error {
	return p.sessions.Shutdown(ctx)
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}
