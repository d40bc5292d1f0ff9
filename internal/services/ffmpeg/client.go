package ffmpeg

import (
	"errors"
	"strings"

	"tonearm/internal/services"
)

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

// Client wraps ffmpeg and ffprobe CLI interactions.
type Client struct {
	ffmpegBin  string
	ffprobeBin string
	exec       services.Executor
}

// New constructs an ffmpeg client.
func New(ffmpegBin, ffprobeBin string, opts ...Option) (*Client, error) {
	ffmpegBin = strings.TrimSpace(ffmpegBin)
	ffprobeBin = strings.TrimSpace(ffprobeBin)
	if ffmpegBin == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	if ffprobeBin == "" {
		return nil, errors.New("ffprobe binary required")
	}
	client := &Client{
		ffmpegBin:  ffmpegBin,
		ffprobeBin: ffprobeBin,
		exec:       services.CommandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}
