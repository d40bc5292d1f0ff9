package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"tonearm/internal/catalog"
	"tonearm/internal/config"
	"tonearm/internal/deps"
	"tonearm/internal/history"
	"tonearm/internal/jobs"
	"tonearm/internal/logging"
	"tonearm/internal/lyrics"
	"tonearm/internal/notifications"
	"tonearm/internal/orchestrate"
	"tonearm/internal/preflight"
	"tonearm/internal/previewcache"
	"tonearm/internal/procs"
	"tonearm/internal/services"
	"tonearm/internal/services/ffmpeg"
	"tonearm/internal/services/ytdlp"
)

// Daemon wires the job pipeline together and enforces single-instance
// execution via a lock file.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *jobs.Store
	registry *procs.Registry
	previews *previewcache.Cache
	fetcher  *ytdlp.Client
	orch     *orchestrate.Orchestrator
	history  *history.Store

	lockPath  string
	lock      *flock.Flock
	startedAt time.Time

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	api     *apiServer
}

// Option adjusts daemon construction.
type Option func(*options)

type options struct {
	executor services.Executor
	notifier notifications.Service
}

// WithExecutor substitutes the subprocess executor used by every external
// tool client. Test hook.
func WithExecutor(exec services.Executor) Option {
	return func(o *options) {
		o.executor = exec
	}
}

// WithNotifier substitutes the push notification service.
func WithNotifier(notifier notifications.Service) Option {
	return func(o *options) {
		o.notifier = notifier
	}
}

// New constructs a daemon and all pipeline collaborators from config.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	settings := &options{}
	for _, opt := range opts {
		opt(settings)
	}

	var fetchOpts []ytdlp.Option
	var convOpts []ffmpeg.Option
	if settings.executor != nil {
		fetchOpts = append(fetchOpts, ytdlp.WithExecutor(settings.executor))
		convOpts = append(convOpts, ffmpeg.WithExecutor(settings.executor))
	}
	fetcher, err := ytdlp.New(cfg.YtDlpBinary(), fetchOpts...)
	if err != nil {
		return nil, fmt.Errorf("fetch client: %w", err)
	}
	converter, err := ffmpeg.New(cfg.FFmpegBinary(), cfg.FFprobeBinary(), convOpts...)
	if err != nil {
		return nil, fmt.Errorf("convert client: %w", err)
	}

	registry := procs.NewRegistry()
	store := jobs.NewStore(
		time.Duration(cfg.Workflow.JobRetentionHours)*time.Hour,
		jobs.WithEvictHook(registry.Drop),
		jobs.WithStoreLogger(logger),
	)
	previews := previewcache.New(
		time.Duration(cfg.Preview.TTLMinutes)*time.Minute,
		cfg.Preview.MaxListings,
	)

	resolver := catalog.NewResolver(catalog.Settings{
		ClientID:        cfg.Catalog.ClientID,
		ClientSecret:    cfg.Catalog.ClientSecret,
		BaseURL:         cfg.Catalog.BaseURL,
		TokenURL:        cfg.Catalog.TokenURL,
		Market:          cfg.Catalog.Market,
		FallbackMarkets: cfg.Catalog.FallbackMarkets,
		MinMatchScore:   cfg.Catalog.MinMatchScore,
		RequestsPerSec:  cfg.Catalog.RequestsPerSec,
	}, catalog.WithLogger(logger))

	orchOpts := []orchestrate.Option{
		orchestrate.WithResolver(resolver),
		orchestrate.WithPreviewCache(previews),
		orchestrate.WithLogger(logger),
	}
	if cfg.Lyrics.Enabled {
		orchOpts = append(orchOpts, orchestrate.WithLyrics(lyrics.New(
			cfg.Lyrics.BaseURL,
			time.Duration(cfg.Lyrics.RequestTimeout)*time.Second,
			time.Duration(cfg.Lyrics.CacheTTL)*time.Minute,
		)))
	}
	if settings.notifier != nil {
		orchOpts = append(orchOpts, orchestrate.WithNotifier(settings.notifier))
	}

	var historyStore *history.Store
	if cfg.History.Enabled {
		historyStore, err = history.Open(cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("open history store: %w", err)
		}
		orchOpts = append(orchOpts, orchestrate.WithHistory(historyStore))
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "tonearmd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		registry: registry,
		previews: previews,
		fetcher:  fetcher,
		history:  historyStore,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.orch = orchestrate.New(cfg, fetcher, converter, registry, orchOpts...)
	d.api, err = newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Start acquires the instance lock, launches the sweep loop, and begins
// serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another tonearm daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.startedAt = time.Now()

	go d.store.RunSweeper(d.ctx, time.Duration(d.cfg.Workflow.SweepIntervalMinutes)*time.Minute)

	if d.api != nil {
		if err := d.api.start(d.ctx); err != nil {
			_ = d.lock.Unlock()
			d.cancel()
			d.cancel = nil
			return err
		}
	}

	d.running.Store(true)
	d.logger.Info("tonearm daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("pid", os.Getpid()))
	return nil
}

// Stop shuts down the API server and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.api != nil {
		d.api.stop()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("tonearm daemon stopped")
}

// Close stops the daemon and releases held resources.
func (d *Daemon) Close() error {
	d.Stop()
	if d.history != nil {
		return d.history.Close()
	}
	return nil
}

// APIAddr returns the bound API listener address, or "" before Start.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// Routes exposes the HTTP handler, primarily for tests that serve the API
// without acquiring the daemon lock.
func (d *Daemon) Routes() http.Handler {
	if d.api == nil {
		return http.NotFoundHandler()
	}
	return d.api.routes()
}

// OutputDir returns the configured output directory.
func (d *Daemon) OutputDir() string {
	return d.cfg.Paths.OutputDir
}

// Status summarizes daemon runtime state for the status endpoint and CLI.
type Status struct {
	Running       bool          `json:"running"`
	PID           int           `json:"pid"`
	UptimeSeconds int           `json:"uptimeSeconds"`
	ActiveJobs    int           `json:"activeJobs"`
	LockFilePath  string        `json:"lockFilePath"`
	Dependencies  []deps.Status `json:"dependencies"`
}

// Status reports current runtime information including dependency checks.
func (d *Daemon) Status(ctx context.Context) Status {
	uptime := time.Duration(0)
	if d.running.Load() {
		uptime = time.Since(d.startedAt)
	}
	return Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		UptimeSeconds: int(uptime.Seconds()),
		ActiveJobs:    d.store.ActiveCount(),
		LockFilePath:  d.lockPath,
		Dependencies:  preflight.CheckSystemDeps(ctx, d.cfg),
	}
}

// Submit registers a job and starts its orchestrator goroutine.
func (d *Daemon) Submit(req jobs.Request) *jobs.Job {
	job := d.store.Create(req)
	ctx := d.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	go d.orch.Run(ctx, job)
	return job
}

// CancelJob flips the cancellation flag, terminates live subprocesses, and
// synchronously moves the job to its canceled terminal state. Idempotent;
// a terminal job is reported unchanged.
func (d *Daemon) CancelJob(id string) (*jobs.Job, bool) {
	job := d.store.Get(id)
	if job == nil {
		return nil, false
	}
	if job.Cancel() {
		d.registry.Kill(id)
		job.MarkCanceled()
	}
	return job, true
}
