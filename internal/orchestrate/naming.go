package orchestrate

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"tonearm/internal/archive"
	"tonearm/internal/fileutil"
	"tonearm/internal/jobs"
	"tonearm/internal/logging"
	"tonearm/internal/lyrics"
	"tonearm/internal/services"
	"tonearm/internal/services/ffmpeg"
	"tonearm/internal/textutil"
)

// defaultNameTemplate renders "Artist - Track" with the raw source title as
// the fallback when no catalog track name exists.
const defaultNameTemplate = "%(artist)s - %(track|title)s"

var templateKeyPattern = regexp.MustCompile(`%\(([^)]+)\)s`)

// ResolveTemplate substitutes %(key)s placeholders from values. A
// pipe-separated key list falls through to the first non-empty value;
// placeholders with no value at all render empty.
func ResolveTemplate(template string, values map[string]string) string {
	return templateKeyPattern.ReplaceAllStringFunc(template, func(match string) string {
		keys := strings.Split(match[2:len(match)-2], "|")
		for _, key := range keys {
			if value := strings.TrimSpace(values[strings.TrimSpace(key)]); value != "" {
				return value
			}
		}
		return ""
	})
}

// outputBasename renders the final filename stem for one item.
func outputBasename(out itemOutput) string {
	values := map[string]string{
		"artist": out.track.Artist,
		"track":  out.track.Title,
		"title":  out.sourceTitle,
		"album":  out.track.Album,
	}
	name := ResolveTemplate(defaultNameTemplate, values)
	name = strings.Trim(name, " -")
	name = textutil.SanitizeFileName(textutil.NFC(name))
	if name == "" {
		name = "output"
	}
	return name
}

// finalize moves converted files into the output directory under their
// template-derived names, fetches lyric sidecars, and bundles multi-item
// results into an archive. Bundling failure is non-fatal.
func (r *jobRun) finalize(ctx context.Context, outputs []itemOutput) error {
	job := r.job
	job.SetPhase(jobs.PhaseFinalizing)

	outDir := r.o.cfg.Paths.OutputDir
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "finalizing", "outputdir", "create output directory", err)
	}

	ext := "." + ffmpeg.Extension(job.Request.Format)
	var files []string
	for _, out := range outputs {
		if job.Canceled() || ctx.Err() != nil {
			return services.Wrap(services.ErrCanceled, "finalizing", "move", "canceled", nil)
		}
		finalPath := fileutil.UniquePath(outDir, outputBasename(out), ext)
		if err := fileutil.MoveFile(out.path, finalPath); err != nil {
			return services.Wrap(services.ErrTransient, "finalizing", "move", "place output file", err)
		}
		files = append(files, finalPath)
		job.AddResult(jobs.ItemResult{
			Index: out.entry.Index,
			Path:  finalPath,
			Title: displayTitle(out),
		})
		if job.Request.IncludeLyrics {
			r.fetchLyrics(ctx, finalPath, out)
		}
	}
	if job.Request.IncludeLyrics {
		job.SetLyricsStats(r.lyricsStats)
	}

	if len(files) > 1 {
		zipPath := filepath.Join(outDir, archive.BundleName(r.bundleHint(), job.ID))
		bundled := append(append([]string(nil), files...), r.sidecars...)
		if err := archive.Bundle(zipPath, bundled); err != nil {
			r.logger.Warn("archive bundling failed", logging.Error(err))
		} else {
			job.SetZipPath(zipPath)
		}
	}
	return nil
}

// fetchLyrics retrieves and writes a lyric sidecar for one output. Misses
// and write failures only affect the stats.
func (r *jobRun) fetchLyrics(ctx context.Context, mediaPath string, out itemOutput) {
	if r.o.lyrics == nil {
		return
	}
	r.lyricsStats.Attempted++

	result, found, err := r.o.lyrics.Fetch(ctx, out.track.Artist, out.track.Title, out.track.Album, int(out.duration))
	if err != nil || !found || !result.Found() {
		if err != nil && !services.IsCanceled(err) {
			r.logger.Debug("lyrics lookup failed", logging.Error(err))
		}
		r.lyricsStats.Missing++
		return
	}
	sidecar, err := lyrics.WriteSidecar(mediaPath, result)
	if err != nil {
		r.logger.Warn("lyrics sidecar write failed", logging.Error(err))
		r.lyricsStats.Missing++
		return
	}
	if result.Synced != "" {
		r.lyricsStats.Synced++
	} else {
		r.lyricsStats.Plain++
	}
	r.sidecars = append(r.sidecars, sidecar)
}

func (r *jobRun) bundleHint() string {
	if hint := strings.TrimSpace(r.job.Request.TitleHint); hint != "" {
		return hint
	}
	return r.listTitle
}

func displayTitle(out itemOutput) string {
	if out.track.Artist != "" && out.track.Title != "" {
		return out.track.Artist + " - " + out.track.Title
	}
	if out.track.Title != "" {
		return out.track.Title
	}
	return out.sourceTitle
}
