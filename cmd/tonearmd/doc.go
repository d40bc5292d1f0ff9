// Package main hosts the tonearmd entrypoint and command graph.
//
// The Cobra-based command tree covers running the daemon itself (serve),
// configuration scaffolding and inspection, archived job listing, preflight
// checks, and notification testing. Subcommands stay thin: they resolve
// configuration and delegate to the internal packages, which own the job
// pipeline, storage, and external tool clients.
package main
