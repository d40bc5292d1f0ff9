package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"tonearm/internal/services"
)

// ProbeResult summarizes a media file.
type ProbeResult struct {
	DurationSeconds float64
	HasVideo        bool
	SampleRate      int
	FrameRate       string
}

// Probe inspects a media file with ffprobe.
func (c *Client) Probe(ctx context.Context, path string) (ProbeResult, error) {
	if path == "" {
		return ProbeResult{}, errors.New("probe path required")
	}

	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	var out strings.Builder
	err := c.exec.Run(ctx, c.ffprobeBin, args, nil, func(line string) {
		out.WriteString(line)
	}, nil)
	if err != nil {
		return ProbeResult{}, services.Wrap(services.ErrExternalTool, "converting", "ffprobe", "probe failed", err)
	}

	var raw struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
		Streams []struct {
			CodecType    string `json:"codec_type"`
			SampleRate   string `json:"sample_rate"`
			AvgFrameRate string `json:"avg_frame_rate"`
		} `json:"streams"`
	}
	if err := json.Unmarshal([]byte(out.String()), &raw); err != nil {
		return ProbeResult{}, services.Wrap(services.ErrExternalTool, "converting", "ffprobe", "malformed probe output", err)
	}

	result := ProbeResult{}
	if raw.Format.Duration != "" {
		if duration, err := strconv.ParseFloat(raw.Format.Duration, 64); err == nil {
			result.DurationSeconds = duration
		}
	}
	for _, stream := range raw.Streams {
		switch stream.CodecType {
		case "video":
			result.HasVideo = true
			if result.FrameRate == "" {
				result.FrameRate = canonicalFrameRate(stream.AvgFrameRate)
			}
		case "audio":
			if rate, err := strconv.Atoi(stream.SampleRate); err == nil && result.SampleRate == 0 {
				result.SampleRate = rate
			}
		}
	}
	return result, nil
}

// canonicalFrameRate reduces an avg_frame_rate fraction like "24000/1001"
// to the conventional label used by the tempo table.
func canonicalFrameRate(fraction string) string {
	parts := strings.SplitN(fraction, "/", 2)
	if len(parts) != 2 {
		return fraction
	}
	num, errN := strconv.ParseFloat(parts[0], 64)
	den, errD := strconv.ParseFloat(parts[1], 64)
	if errN != nil || errD != nil || den == 0 {
		return fraction
	}
	fps := num / den
	for _, known := range []struct {
		label string
		value float64
	}{
		{"23.976", 24000.0 / 1001.0},
		{"24", 24},
		{"25", 25},
		{"29.97", 30000.0 / 1001.0},
		{"30", 30},
		{"50", 50},
		{"59.94", 60000.0 / 1001.0},
		{"60", 60},
	} {
		if fps > known.value-0.01 && fps < known.value+0.01 {
			return known.label
		}
	}
	return strconv.FormatFloat(fps, 'f', 3, 64)
}
