package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tonearm/internal/logging"
)

// Store is the authoritative in-memory registry of live jobs. It hands out
// job references and evicts old terminal jobs; it is not a synchronization
// point for job mutation.
type Store struct {
	mu        sync.Mutex
	jobs      map[string]*Job
	retention time.Duration
	onEvict   func(jobID string)
	logger    *slog.Logger
}

// StoreOption customizes Store construction.
type StoreOption func(*Store)

// WithEvictHook registers a callback invoked with each evicted job id.
// Used to drop process-registry entries alongside the job.
func WithEvictHook(hook func(jobID string)) StoreOption {
	return func(s *Store) { s.onEvict = hook }
}

// WithStoreLogger attaches a logger for sweep reporting.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a Store that retains terminal jobs for the given window.
func NewStore(retention time.Duration, opts ...StoreOption) *Store {
	store := &Store{
		jobs:      make(map[string]*Job),
		retention: retention,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Create registers a new queued job built from the request.
func (s *Store) Create(req Request) *Job {
	job := New(req)
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
	return job
}

// Get returns the job with the given id, or nil when absent.
func (s *Store) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// List returns all live jobs in unspecified order.
func (s *Store) List() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		all = append(all, job)
	}
	return all
}

// ActiveCount returns the number of non-terminal jobs.
func (s *Store) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, job := range s.jobs {
		if !job.Status().IsTerminal() {
			count++
		}
	}
	return count
}

// Sweep evicts terminal jobs older than the retention window and returns
// the number removed.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	var evicted []string
	for id, job := range s.jobs {
		finished := job.FinishedAt()
		if finished.IsZero() {
			continue
		}
		if now.Sub(finished) > s.retention {
			delete(s.jobs, id)
			evicted = append(evicted, id)
		}
	}
	s.mu.Unlock()

	for _, id := range evicted {
		if s.onEvict != nil {
			s.onEvict(id)
		}
	}
	if len(evicted) > 0 {
		s.logger.Info("swept expired jobs", logging.Int("count", len(evicted)))
	}
	return len(evicted)
}

// RunSweeper sweeps on the given interval until the context is done.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Sweep(now)
		}
	}
}
