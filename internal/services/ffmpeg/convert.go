package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"tonearm/internal/services"
)

// diagnosticTail bounds how many trailing output lines a failure report
// carries.
const diagnosticTail = 12

// ConvertRequest describes one transcode invocation.
type ConvertRequest struct {
	// SourceFile is the acquired media file.
	SourceFile string
	// OutputPath is the target file, extension included.
	OutputPath string
	// Format selects the codec mapping; see SupportedFormat.
	Format string
	// Bitrate is passed through as the audio bitrate (e.g. "192k").
	// Ignored for lossless formats.
	Bitrate string
	// SampleRate is normalized into the format's legal set; zero keeps
	// the source rate.
	SampleRate int
	// TempoRatio retimes audio for frame-rate conversions; one means no
	// adjustment.
	TempoRatio float64
	// Tags are written as container metadata.
	Tags Tags
	// CoverArt, when set and supported by the format, is embedded as an
	// attached picture.
	CoverArt string
	// KeepVideo converts the full stream instead of extracting audio.
	KeepVideo bool
	// OnProgress receives percent updates in the 0-99 range; 100 is
	// reported only after a confirmed successful exit.
	OnProgress func(percent int)
	// OnLine receives raw tool output.
	OnLine func(string)
	// OnProcess receives the spawned process handle.
	OnProcess func(*os.Process)
}

var (
	durationPattern = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+(?:\.\d+)?)`)
	timePattern     = regexp.MustCompile(`time=(\d+):(\d+):(\d+(?:\.\d+)?)`)
)

// Convert transcodes one file. On failure or cancellation any partial
// output is removed before the error is returned.
func (c *Client) Convert(ctx context.Context, req ConvertRequest) (string, error) {
	spec, ok := formatTable[req.Format]
	if !ok {
		return "", services.Wrap(services.ErrValidation, "converting", "ffmpeg", fmt.Sprintf("unsupported format %q", req.Format), nil)
	}
	if req.SourceFile == "" || req.OutputPath == "" {
		return "", errors.New("source and output paths required")
	}
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	args := c.buildArgs(spec, req)

	var durationSeconds float64
	var tail []string
	lastPercent := -1

	observe := func(line string) {
		if req.OnLine != nil {
			req.OnLine(line)
		}
		tail = append(tail, line)
		if len(tail) > diagnosticTail {
			tail = tail[1:]
		}
		if durationSeconds == 0 {
			if m := durationPattern.FindStringSubmatch(line); m != nil {
				durationSeconds = clockToSeconds(m[1], m[2], m[3])
			}
		}
		if m := timePattern.FindStringSubmatch(line); m != nil && durationSeconds > 0 && req.OnProgress != nil {
			current := clockToSeconds(m[1], m[2], m[3])
			percent := int(current / durationSeconds * 100)
			if percent > 99 {
				percent = 99
			}
			if percent > lastPercent {
				lastPercent = percent
				req.OnProgress(percent)
			}
		}
	}

	err := c.exec.Run(ctx, c.ffmpegBin, args, req.OnProcess, observe, observe)
	if err != nil {
		_ = os.Remove(req.OutputPath)
		if services.IsCanceled(err) || ctx.Err() != nil {
			return "", services.Wrap(services.ErrCanceled, "converting", "ffmpeg", "conversion canceled", err)
		}
		detail := strings.Join(tail, "\n")
		return "", services.Wrap(services.ErrExternalTool, "converting", "ffmpeg", "conversion failed: "+detail, err)
	}

	if _, statErr := os.Stat(req.OutputPath); statErr != nil {
		return "", services.Wrap(services.ErrExternalTool, "converting", "ffmpeg", "no output produced", statErr)
	}
	if req.OnProgress != nil {
		req.OnProgress(100)
	}
	return req.OutputPath, nil
}

func (c *Client) buildArgs(spec formatSpec, req ConvertRequest) []string {
	args := []string{"-y", "-i", req.SourceFile}

	embedArt := req.CoverArt != "" && spec.supportsArt && !req.KeepVideo
	if embedArt {
		args = append(args, "-i", req.CoverArt)
	}

	if req.KeepVideo && spec.videoCodec != "" {
		args = append(args, "-map", "0", "-c:v", spec.videoCodec)
	} else {
		args = append(args, "-map", "0:a")
		args = append(args, "-vn")
	}

	args = append(args, "-c:a", spec.audioCodec)
	if req.Bitrate != "" && spec.audioCodec != "flac" && spec.audioCodec != "pcm_s16le" {
		args = append(args, "-b:a", req.Bitrate)
	}
	if rate := normalizeSampleRate(spec, req.SampleRate); rate > 0 {
		args = append(args, "-ar", strconv.Itoa(rate))
	}
	if filter := tempoFilter(req.TempoRatio); filter != "" {
		args = append(args, "-af", filter)
	}

	if embedArt {
		args = append(args,
			"-map", "1:0",
			"-c:v", "mjpeg",
			"-disposition:v", "attached_pic",
			"-metadata:s:v", "title=Album cover",
		)
		if spec.extension == "mp3" {
			args = append(args, "-id3v2_version", "3")
		}
	}

	args = append(args, metadataArgs(req.Tags)...)
	if spec.container != "" {
		args = append(args, "-f", spec.container)
	}
	args = append(args, req.OutputPath)
	return args
}

func clockToSeconds(hours, minutes, seconds string) float64 {
	h, _ := strconv.ParseFloat(hours, 64)
	m, _ := strconv.ParseFloat(minutes, 64)
	s, _ := strconv.ParseFloat(seconds, 64)
	return h*3600 + m*60 + s
}
