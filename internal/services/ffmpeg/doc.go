// Package ffmpeg wraps the ffmpeg and ffprobe command line tools.
//
// Convert maps job-level options (format, bitrate, sample rate, tempo
// retiming, tags, cover art) onto encoder arguments via fixed parameter
// tables, and turns the engine's time= progress stream into a 0-100
// percentage that only reaches 100 on confirmed success. Partial outputs
// are removed on failure or cancellation.
package ffmpeg
