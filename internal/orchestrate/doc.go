// Package orchestrate drives a job through its full pipeline: selection
// mapping, concurrent acquisition, metadata enrichment, sequential
// conversion, and finalization. One goroutine owns each job; cancellation
// is polled cooperatively at phase and item boundaries.
package orchestrate
