package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"tonearm/internal/fileutil"
	"tonearm/internal/services"
)

// ProgressFunc receives download progress percentages in the 0-100 range.
type ProgressFunc func(percent int)

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec services.Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps yt-dlp CLI interactions.
type Client struct {
	binary string
	exec   services.Executor
}

// New constructs a yt-dlp client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	client := &Client{
		binary: binary,
		exec:   services.CommandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// DownloadRequest describes a single-item fetch.
type DownloadRequest struct {
	// URL is the canonical item URL.
	URL string
	// DestDir receives the downloaded file.
	DestDir string
	// Ordinal, when positive, prefixes the filename with a zero-padded
	// sequence number so source order survives concurrent completion.
	Ordinal int
	// AudioOnly selects the best audio-only stream instead of full video.
	AudioOnly bool
	// WriteThumbnail saves the item's cover image alongside the media
	// file, converted to JPEG for embedding.
	WriteThumbnail bool
	// OnProgress receives percent updates parsed from tool output.
	OnProgress ProgressFunc
	// OnLine receives every raw output line for diagnostic classification.
	OnLine func(string)
	// OnProcess receives the spawned process handle for registry tracking.
	OnProcess func(*os.Process)
}

var (
	progressPattern    = regexp.MustCompile(`\[download\]\s+(\d+(?:\.\d+)?)%`)
	destinationPattern = regexp.MustCompile(`\[download\] Destination: (.+)$`)
	mergerPattern      = regexp.MustCompile(`\[Merger\] Merging formats into "(.+)"$`)
	alreadyPattern     = regexp.MustCompile(`\[download\] (.+) has already been downloaded`)
	extractAudioRe     = regexp.MustCompile(`\[ExtractAudio\] Destination: (.+)$`)
)

// Download fetches one item and returns the path of the produced file.
func (c *Client) Download(ctx context.Context, req DownloadRequest) (string, error) {
	if req.URL == "" {
		return "", errors.New("download url required")
	}
	if req.DestDir == "" {
		return "", errors.New("destination directory required")
	}
	if err := os.MkdirAll(req.DestDir, 0o755); err != nil {
		return "", fmt.Errorf("create destination: %w", err)
	}

	template := "%(title)s.%(ext)s"
	if req.Ordinal > 0 {
		template = fmt.Sprintf("%03d - %%(title)s.%%(ext)s", req.Ordinal)
	}

	args := []string{
		"--no-playlist",
		"--newline",
		"--no-warnings",
		"-o", filepath.Join(req.DestDir, template),
	}
	if req.AudioOnly {
		args = append(args, "-f", "bestaudio/best")
	} else {
		args = append(args, "-f", "bestvideo*+bestaudio/best")
	}
	if req.WriteThumbnail {
		args = append(args, "--write-thumbnail", "--convert-thumbnails", "jpg")
	}
	args = append(args, req.URL)

	var lastPath string
	observe := func(line string) {
		if req.OnLine != nil {
			req.OnLine(line)
		}
		if m := progressPattern.FindStringSubmatch(line); m != nil && req.OnProgress != nil {
			if value, err := strconv.ParseFloat(m[1], 64); err == nil {
				req.OnProgress(int(value))
			}
		}
		for _, pattern := range []*regexp.Regexp{mergerPattern, extractAudioRe, destinationPattern, alreadyPattern} {
			if m := pattern.FindStringSubmatch(line); m != nil {
				lastPath = strings.TrimSpace(m[1])
				break
			}
		}
	}

	err := c.exec.Run(ctx, c.binary, args, req.OnProcess, observe, observe)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "download", "yt-dlp", "fetch failed", err)
	}

	if lastPath != "" {
		if _, statErr := os.Stat(lastPath); statErr == nil {
			return lastPath, nil
		}
	}

	// Output path parsing can miss postprocessed renames; fall back to the
	// newest media file matching the ordinal prefix.
	found, findErr := newestDownload(req.DestDir, req.Ordinal)
	if findErr != nil {
		return "", services.Wrap(services.ErrExternalTool, "download", "yt-dlp", "no output produced", findErr)
	}
	return found, nil
}

func newestDownload(dir string, ordinal int) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	prefix := ""
	if ordinal > 0 {
		prefix = fmt.Sprintf("%03d - ", ordinal)
	}
	best := ""
	var bestMod int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		if strings.HasSuffix(name, ".part") || strings.HasSuffix(name, ".ytdl") {
			continue
		}
		if !fileutil.IsMediaFile(name) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if best == "" || info.ModTime().UnixNano() > bestMod {
			best = filepath.Join(dir, name)
			bestMod = info.ModTime().UnixNano()
		}
	}
	if best == "" {
		return "", errors.New("no downloaded file found")
	}
	return best, nil
}
