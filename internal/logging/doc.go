// Package logging configures slog handlers for the daemon.
//
// Two output formats are supported: a console handler that renders
// compact single-line records for interactive use, and a JSON handler
// for log aggregation. The "auto" format picks between them based on
// whether stdout is a terminal. Records are written to stdout plus a
// rolling file under the configured log directory.
package logging
