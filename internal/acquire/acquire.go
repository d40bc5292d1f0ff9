// Package acquire runs the bounded-concurrency fetch pool for one job.
//
// Items are pulled from a pending queue by at most C workers; a single
// item's failure never aborts the run. Cancellation is polled before each
// dequeue and after each completion, clearing the pending queue while
// in-flight subprocesses are terminated externally through the process
// registry.
package acquire

import (
	"context"
	"errors"
	"sort"
	"sync"

	"tonearm/internal/jobs"
)

// ErrCanceledItem marks an item abandoned because the run was canceled.
var ErrCanceledItem = errors.New("item canceled")

// FetchFunc retrieves one item, returning the downloaded file path.
type FetchFunc func(ctx context.Context, entry jobs.PlaylistEntry) (string, error)

// Result is the outcome for one enqueued item.
type Result struct {
	Index int
	Entry jobs.PlaylistEntry
	Path  string
	Err   error
}

// Option configures the queue.
type Option func(*Queue)

// WithCancelCheck installs the cooperative cancellation predicate.
func WithCancelCheck(shouldCancel func() bool) Option {
	return func(q *Queue) {
		if shouldCancel != nil {
			q.shouldCancel = shouldCancel
		}
	}
}

// Queue is a pull-based worker pool bounded to a fixed concurrency.
type Queue struct {
	ctx          context.Context
	concurrency  int
	fetch        FetchFunc
	shouldCancel func() bool

	mu      sync.Mutex
	cond    *sync.Cond
	pending []jobs.PlaylistEntry
	active  int
	ended   bool
	results []Result
}

// New creates a queue running at most concurrency fetches in parallel.
func New(ctx context.Context, concurrency int, fetch FetchFunc, opts ...Option) *Queue {
	if concurrency < 1 {
		concurrency = 1
	}
	q := &Queue{
		ctx:          ctx,
		concurrency:  concurrency,
		fetch:        fetch,
		shouldCancel: func() bool { return false },
	}
	q.cond = sync.NewCond(&q.mu)
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue adds an item. No-op after End or once canceled.
func (q *Queue) Enqueue(entry jobs.PlaylistEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ended || q.shouldCancel() {
		return
	}
	q.pending = append(q.pending, entry)
	q.spawnLocked()
}

// End declares that no further items will be enqueued.
func (q *Queue) End() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ended = true
	q.cond.Broadcast()
}

// Wait blocks until every enqueued item has finished (or been dropped by
// cancellation) and End has been called, then returns results in item
// index order.
func (q *Queue) Wait() []Result {
	q.mu.Lock()
	for !(q.ended && q.active == 0 && len(q.pending) == 0) {
		q.cond.Wait()
	}
	out := make([]Result, len(q.results))
	copy(out, q.results)
	q.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// spawnLocked starts workers while capacity and pending items remain.
// Callers hold q.mu.
func (q *Queue) spawnLocked() {
	if q.shouldCancel() {
		q.dropPendingLocked()
		return
	}
	for q.active < q.concurrency && len(q.pending) > 0 {
		entry := q.pending[0]
		q.pending = q.pending[1:]
		q.active++
		go q.run(entry)
	}
}

func (q *Queue) run(entry jobs.PlaylistEntry) {
	var result Result
	if q.shouldCancel() || q.ctx.Err() != nil {
		result = Result{Index: entry.Index, Entry: entry, Err: ErrCanceledItem}
	} else {
		path, err := q.fetch(q.ctx, entry)
		result = Result{Index: entry.Index, Entry: entry, Path: path, Err: err}
	}

	q.mu.Lock()
	q.results = append(q.results, result)
	q.active--
	if q.shouldCancel() {
		q.dropPendingLocked()
	} else {
		q.spawnLocked()
	}
	q.cond.Broadcast()
	q.mu.Unlock()
}

// dropPendingLocked abandons queued items, recording a canceled result for
// each so Wait still accounts for every enqueued item. Callers hold q.mu.
func (q *Queue) dropPendingLocked() {
	for _, entry := range q.pending {
		q.results = append(q.results, Result{Index: entry.Index, Entry: entry, Err: ErrCanceledItem})
	}
	q.pending = nil
}
