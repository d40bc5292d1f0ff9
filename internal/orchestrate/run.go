package orchestrate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"tonearm/internal/acquire"
	"tonearm/internal/catalog"
	"tonearm/internal/fileutil"
	"tonearm/internal/jobs"
	"tonearm/internal/logging"
	"tonearm/internal/services"
	"tonearm/internal/services/ffmpeg"
	"tonearm/internal/services/ytdlp"
	"tonearm/internal/skipclass"
)

// jobRun carries the per-run state of a single job between pipeline phases.
type jobRun struct {
	o         *Orchestrator
	job       *jobs.Job
	logger    *slog.Logger
	workDir   string
	entries   []jobs.PlaylistEntry
	listTitle string

	classifier *safeClassifier

	mu     sync.Mutex
	dlDone int

	lyricsStats jobs.LyricsStats
	sidecars    []string
}

// itemOutput is one converted file awaiting finalization.
type itemOutput struct {
	entry       jobs.PlaylistEntry
	path        string
	track       catalog.Track
	sourceTitle string
	duration    float64
}

func (r *jobRun) execute(ctx context.Context) error {
	acquired, err := r.download(ctx)
	if err != nil {
		return err
	}
	outputs, err := r.convert(ctx, acquired)
	if err != nil {
		return err
	}
	return r.finalize(ctx, outputs)
}

// download fans the selected entries out to the bounded acquisition pool
// and reconciles skip/error counters once the pool drains.
func (r *jobRun) download(ctx context.Context) ([]acquire.Result, error) {
	job := r.job
	job.SetPhase(jobs.PhaseDownloading)

	total := len(r.entries)
	concurrency := r.o.cfg.Workflow.DownloadConcurrency
	if total < concurrency {
		concurrency = total
	}
	pool := acquire.New(ctx, concurrency, r.fetchEntry, acquire.WithCancelCheck(func() bool {
		return job.Canceled() || ctx.Err() != nil
	}))
	for _, entry := range r.entries {
		pool.Enqueue(entry)
	}
	pool.End()
	results := pool.Wait()

	if job.Canceled() || ctx.Err() != nil {
		return nil, services.Wrap(services.ErrCanceled, "download", "queue", "canceled", nil)
	}

	successes := 0
	for _, res := range results {
		if res.Err == nil && res.Path != "" {
			successes++
		}
	}

	job.SetSkipped(r.classifier.Reconcile(total, successes))
	job.AddErrors(r.classifier.Errors())
	job.SetLastLog(r.classifier.LastLog())

	if successes == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "download", "queue", "no items could be acquired", nil)
	}
	job.SetDownloadProgress(100)
	return results, nil
}

// fetchEntry acquires one item. Local file sources are copied into the work
// directory; everything else goes through the fetch tool.
func (r *jobRun) fetchEntry(ctx context.Context, entry jobs.PlaylistEntry) (string, error) {
	req := r.job.Request
	total := len(r.entries)

	if entry.WebpageURL == "" && isLocalFile(req.Source) {
		dest := filepath.Join(r.workDir, filepath.Base(req.Source))
		if err := fileutil.CopyFile(req.Source, dest); err != nil {
			return "", services.Wrap(services.ErrValidation, "download", "copy", "import local source", err)
		}
		r.noteDownloadDone(total)
		return dest, nil
	}

	url := entry.WebpageURL
	if url == "" {
		url = ytdlp.NormalizeURL(req.Source, false)
	}
	ordinal := 0
	if total > 1 {
		ordinal = entry.Index
	}

	var proc *os.Process
	path, err := r.o.fetcher.Download(ctx, ytdlp.DownloadRequest{
		URL:            url,
		DestDir:        r.workDir,
		Ordinal:        ordinal,
		AudioOnly:      !videoFormat(req.Format),
		WriteThumbnail: embedsCover(req.Format),
		OnProgress: func(percent int) {
			r.mu.Lock()
			done := r.dlDone
			r.mu.Unlock()
			r.job.SetDownloadProgress(jobs.ItemProgress(done, total, percent))
		},
		OnLine: r.observeLine,
		OnProcess: func(p *os.Process) {
			proc = p
			r.o.procs.Register(r.job.ID, p)
		},
	})
	if proc != nil {
		r.o.procs.Unregister(r.job.ID, proc)
	}
	if err != nil {
		return "", err
	}
	r.noteDownloadDone(total)
	return path, nil
}

func (r *jobRun) noteDownloadDone(total int) {
	r.mu.Lock()
	r.dlDone++
	done := r.dlDone
	r.mu.Unlock()
	r.job.MarkDownloadDone()
	r.job.SetDownloadProgress(jobs.ItemProgress(done, total, 0))
}

func (r *jobRun) observeLine(line string) {
	if category := r.classifier.Observe(line); category != skipclass.None {
		r.job.SetLastLog(r.classifier.LastLog())
	}
	// A subprocess spawned after a cancel swept the registry would otherwise
	// run to completion. Re-check on every output line so it dies promptly.
	if r.job.Canceled() {
		r.o.procs.Kill(r.job.ID)
	}
}

// convert transcodes acquired items sequentially in source order. A single
// item's failure is counted and skipped; only a fully-failed batch aborts
// the job.
func (r *jobRun) convert(ctx context.Context, results []acquire.Result) ([]itemOutput, error) {
	job := r.job
	job.SetPhase(jobs.PhaseConverting)

	convDir := filepath.Join(r.workDir, "converted")
	if err := os.MkdirAll(convDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, "convert", "workdir", "create conversion directory", err)
	}

	total := len(r.entries)
	done := 0
	var outputs []itemOutput
	for _, res := range results {
		if res.Err != nil || res.Path == "" {
			continue
		}
		if job.Canceled() || ctx.Err() != nil {
			return nil, services.Wrap(services.ErrCanceled, "convert", "loop", "canceled", nil)
		}

		entry := res.Entry
		title := entry.Title
		if title == "" {
			base := filepath.Base(res.Path)
			title = fileutil.StripOrdinalPrefix(strings.TrimSuffix(base, filepath.Ext(base)))
		}
		job.SetCurrentItem(title)

		var duration float64
		if probe, err := r.o.converter.Probe(ctx, res.Path); err == nil {
			duration = probe.DurationSeconds
		}

		track := r.resolveTrack(ctx, title, entry.Uploader, duration)
		if track.TrackNumber == 0 && total > 1 {
			track.TrackNumber = entry.Index
			track.TrackTotal = total
		}

		key := itemKey(entry)
		outPath := fileutil.FindExistingOutput(convDir, key, job.Request.Format)
		if outPath == "" {
			converted, err := r.convertItem(ctx, res.Path, convDir, key, track, done, total)
			if err != nil {
				if services.IsCanceled(err) || job.Canceled() {
					return nil, err
				}
				r.logger.Warn("item conversion failed",
					logging.String("title", title),
					logging.Error(err))
				job.AddErrors(1)
				job.SetLastLog(services.Details(err).Message)
				continue
			}
			outPath = converted
		}

		done++
		job.MarkConvertDone()
		job.SetConvertProgress(jobs.ItemProgress(done, total, 0))
		job.AdvancePlaylist()
		outputs = append(outputs, itemOutput{
			entry:       entry,
			path:        outPath,
			track:       track,
			sourceTitle: title,
			duration:    duration,
		})
	}

	if len(outputs) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "convert", "ffmpeg", "no items could be converted", nil)
	}
	job.SetConvertProgress(100)
	job.SetCurrentItem("")
	return outputs, nil
}

func (r *jobRun) convertItem(ctx context.Context, srcPath, convDir, key string, track catalog.Track, done, total int) (string, error) {
	req := r.job.Request
	outPath := filepath.Join(convDir, key+"."+ffmpeg.Extension(req.Format))

	cover := ""
	if embedsCover(req.Format) {
		cover = findThumbnail(srcPath)
	}

	var proc *os.Process
	converted, err := r.o.converter.Convert(ctx, ffmpeg.ConvertRequest{
		SourceFile: srcPath,
		OutputPath: outPath,
		Format:     req.Format,
		Bitrate:    req.Bitrate,
		SampleRate: req.SampleRate,
		TempoRatio: ffmpeg.TempoRatio(req.SourceFPS, req.TargetFPS),
		Tags:       tagsFor(track),
		CoverArt:   cover,
		KeepVideo:  videoFormat(req.Format),
		OnProgress: func(percent int) {
			r.job.SetConvertProgress(jobs.ItemProgress(done, total, percent))
		},
		OnLine: r.observeLine,
		OnProcess: func(p *os.Process) {
			proc = p
			r.o.procs.Register(r.job.ID, p)
		},
	})
	if proc != nil {
		r.o.procs.Unregister(r.job.ID, proc)
	}
	return converted, err
}

// resolveTrack returns catalog-enriched tags, or the heuristic split when
// no resolver is wired or no confident match exists.
func (r *jobRun) resolveTrack(ctx context.Context, title, uploader string, duration float64) catalog.Track {
	if r.o.resolver == nil {
		return catalog.HeuristicTrack(title, uploader)
	}
	track, enriched := r.o.resolver.Resolve(ctx, title, uploader, duration, r.job.Request.Market)
	if enriched {
		r.logger.Debug("catalog match",
			logging.String("artist", track.Artist),
			logging.String("title", track.Title))
	}
	return track
}

func tagsFor(track catalog.Track) ffmpeg.Tags {
	return ffmpeg.Tags{
		Title:       track.Title,
		Artist:      track.Artist,
		Album:       track.Album,
		AlbumArtist: track.AlbumArtist,
		TrackNumber: track.TrackNumber,
		TrackTotal:  track.TrackTotal,
		DiscNumber:  track.DiscNumber,
		DiscTotal:   track.DiscTotal,
		Date:        track.ReleaseDate,
		ISRC:        track.ISRC,
	}
}

// itemKey is the per-item resume key under the job's conversion directory.
func itemKey(entry jobs.PlaylistEntry) string {
	if entry.ID != "" {
		return entry.ID
	}
	return fmt.Sprintf("item%03d", entry.Index)
}

// findThumbnail locates the JPEG cover the fetch tool wrote next to the
// media file.
func findThumbnail(mediaPath string) string {
	base := strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath))
	candidate := base + ".jpg"
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

func videoFormat(format string) bool {
	return strings.EqualFold(format, "mp4")
}

// embedsCover reports whether the target format gets an attached picture.
func embedsCover(format string) bool {
	switch strings.ToLower(format) {
	case "mp3", "flac":
		return true
	default:
		return false
	}
}

// safeClassifier guards a skip classifier for use from concurrent download
// workers.
type safeClassifier struct {
	mu sync.Mutex
	c  *skipclass.Classifier
}

func newSafeClassifier() *safeClassifier {
	return &safeClassifier{c: skipclass.NewClassifier()}
}

func (s *safeClassifier) Observe(line string) skipclass.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Observe(line)
}

func (s *safeClassifier) Errors() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Errors()
}

func (s *safeClassifier) LastLog() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.LastLog()
}

func (s *safeClassifier) Reconcile(declaredTotal, successes int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Reconcile(declaredTotal, successes)
}
