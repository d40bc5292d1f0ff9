// Package jobs holds the live job model and its in-memory registry.
//
// A Job is owned by the single goroutine orchestrating it; all other
// readers go through Snapshot, and the one permitted cross-goroutine write
// is the cancellation flag. The Store keeps jobs addressable for the API
// and sweeps terminal jobs once their retention window passes. Job state
// does not survive a daemon restart; the history package archives terminal
// summaries separately.
package jobs
