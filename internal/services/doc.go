// Package services defines shared utilities consumed by the job pipeline
// and the external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs and phase names for logging.
//   - Structured error markers plus the Wrap helper that translate
//     failures into the job-level taxonomy (skip vs error vs canceled).
//   - The Executor abstraction that makes subprocess invocation and
//     output streaming from external tools testable.
//
// Use these helpers when wiring new pipeline logic so operational
// behaviour stays uniform across phases.
package services
