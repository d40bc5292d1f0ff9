// Package preflight runs startup health checks for directories, external
// binaries, and remote services before the daemon begins accepting jobs.
package preflight
