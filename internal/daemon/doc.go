// Package daemon hosts the long-running tonearm process: single-instance
// locking, the HTTP API surface, and the lifecycle of every job pipeline
// collaborator.
package daemon
