package orchestrate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tonearm/internal/catalog"
	"tonearm/internal/config"
	"tonearm/internal/history"
	"tonearm/internal/jobs"
	"tonearm/internal/logging"
	"tonearm/internal/lyrics"
	"tonearm/internal/notifications"
	"tonearm/internal/previewcache"
	"tonearm/internal/procs"
	"tonearm/internal/services"
	"tonearm/internal/services/ffmpeg"
	"tonearm/internal/services/ytdlp"
)

// Orchestrator drives jobs through the acquisition and conversion pipeline.
// Each job runs on its own goroutine; the orchestrator owns every mutation
// of the job except the externally-set cancellation flag.
type Orchestrator struct {
	cfg       *config.Config
	fetcher   *ytdlp.Client
	converter *ffmpeg.Client
	procs     *procs.Registry
	resolver  *catalog.Resolver
	lyrics    *lyrics.Client
	previews  *previewcache.Cache
	history   *history.Store
	notifier  notifications.Service
	logger    *slog.Logger
}

// Option configures optional orchestrator collaborators.
type Option func(*Orchestrator)

// WithResolver wires catalog metadata enrichment.
func WithResolver(resolver *catalog.Resolver) Option {
	return func(o *Orchestrator) {
		o.resolver = resolver
	}
}

// WithLyrics wires sidecar lyric retrieval.
func WithLyrics(client *lyrics.Client) Option {
	return func(o *Orchestrator) {
		o.lyrics = client
	}
}

// WithPreviewCache lets playlist mapping reuse listings fetched for the
// preview endpoint.
func WithPreviewCache(cache *previewcache.Cache) Option {
	return func(o *Orchestrator) {
		o.previews = cache
	}
}

// WithHistory wires terminal-state persistence.
func WithHistory(store *history.Store) Option {
	return func(o *Orchestrator) {
		o.history = store
	}
}

// WithNotifier wires push notifications on terminal states.
func WithNotifier(notifier notifications.Service) Option {
	return func(o *Orchestrator) {
		o.notifier = notifier
	}
}

// WithLogger overrides the default nop logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New constructs an orchestrator. The fetcher, converter, and process
// registry are mandatory collaborators.
func New(cfg *config.Config, fetcher *ytdlp.Client, converter *ffmpeg.Client, registry *procs.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:       cfg,
		fetcher:   fetcher,
		converter: converter,
		procs:     registry,
		notifier:  notifications.NewService(cfg),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one job to a terminal state. Blocking; callers start it on a
// dedicated goroutine. The job's temporary working directory is removed on
// every exit path.
func (o *Orchestrator) Run(ctx context.Context, job *jobs.Job) {
	logger := o.logger.With(logging.String("job_id", job.ID))
	workDir := filepath.Join(o.cfg.Paths.WorkDir, job.ID)
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("orchestrator panic", logging.String("panic", fmt.Sprint(r)))
			job.Fail(fmt.Sprintf("internal failure: %v", r))
		}
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn("work directory cleanup failed", logging.Error(err))
		}
		o.procs.Drop(job.ID)
		o.finish(job, logger, time.Since(started))
	}()

	job.SetPhase(jobs.PhasePreparing)
	logger.Info("job started",
		logging.String("source", job.Request.Source),
		logging.String("format", job.Request.Format),
		logging.Bool("playlist", job.Request.IsPlaylist))

	if job.Canceled() {
		o.stopCanceled(job)
		return
	}
	if !ffmpeg.SupportedFormat(job.Request.Format) {
		job.Fail(fmt.Sprintf("unsupported output format %q", job.Request.Format))
		return
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		job.Fail(fmt.Sprintf("create work directory: %v", err))
		return
	}

	entries, listTitle, err := o.resolveEntries(ctx, job)
	if err != nil {
		if services.IsCanceled(err) || job.Canceled() {
			o.stopCanceled(job)
			return
		}
		logger.Error("selection resolution failed", logging.Error(err))
		job.Fail(services.Details(err).Message)
		return
	}

	run := &jobRun{
		o:          o,
		job:        job,
		logger:     logger,
		workDir:    workDir,
		entries:    entries,
		listTitle:  listTitle,
		classifier: newSafeClassifier(),
	}
	if err := run.execute(ctx); err != nil {
		if services.IsCanceled(err) || job.Canceled() {
			o.stopCanceled(job)
			return
		}
		logger.Error("job failed", logging.Error(err))
		job.Fail(services.Details(err).Message)
		return
	}
	job.Complete()
}

// stopCanceled terminates any still-registered subprocesses and moves the
// job to the canceled terminal state.
func (o *Orchestrator) stopCanceled(job *jobs.Job) {
	killed := o.procs.Kill(job.ID)
	if killed > 0 {
		o.logger.Info("terminated job subprocesses",
			logging.String("job_id", job.ID),
			logging.Int("count", killed))
	}
	job.MarkCanceled()
}

// finish records terminal state side effects: history persistence and push
// notifications. Runs on its own context so a canceled job still gets
// recorded.
func (o *Orchestrator) finish(job *jobs.Job, logger *slog.Logger, elapsed time.Duration) {
	snap := job.Snapshot()
	logger.Info("job finished",
		logging.String("status", string(snap.Status)),
		logging.Int("results", len(snap.Results)),
		logging.Int("skipped", snap.SkippedCount),
		logging.Int("errors", snap.ErrorsCount),
		logging.Duration("elapsed", elapsed))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if o.history != nil {
		if err := o.history.Record(ctx, snap); err != nil {
			logger.Warn("history record failed", logging.Error(err))
		}
	}
	if o.notifier == nil {
		return
	}
	title := jobTitle(snap)
	switch snap.Status {
	case jobs.StatusCompleted:
		if err := o.notifier.NotifyJobCompleted(ctx, title, len(snap.Results), snap.SkippedCount); err != nil {
			logger.Warn("completion notification failed", logging.Error(err))
		}
	case jobs.StatusError:
		if err := o.notifier.NotifyJobFailed(ctx, title, snap.Error); err != nil {
			logger.Warn("failure notification failed", logging.Error(err))
		}
	}
}

// jobTitle picks the friendliest label available for logs and notifications.
func jobTitle(snap jobs.Snapshot) string {
	if snap.Request.TitleHint != "" {
		return snap.Request.TitleHint
	}
	if len(snap.Results) > 0 && snap.Results[0].Title != "" {
		return snap.Results[0].Title
	}
	return snap.Request.Source
}
