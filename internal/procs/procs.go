// Package procs tracks live external processes per job so cancellation can
// terminate every in-flight subprocess belonging to that job.
package procs

import (
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// Registry maps job ids to the set of live subprocess handles spawned on
// their behalf. Handles are registered on spawn and removed on exit; Kill
// signals whatever is still present.
type Registry struct {
	mu   sync.Mutex
	byID map[string]map[*os.Process]struct{}
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]map[*os.Process]struct{})}
}

// Register adds a process handle under the job id.
func (r *Registry) Register(jobID string, proc *os.Process) {
	if proc == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.byID[jobID]
	if !ok {
		set = make(map[*os.Process]struct{})
		r.byID[jobID] = set
	}
	set[proc] = struct{}{}
}

// Unregister removes a process handle after it exits. The job's entry is
// dropped once its last handle is gone.
func (r *Registry) Unregister(jobID string, proc *os.Process) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.byID[jobID]
	if !ok {
		return
	}
	delete(set, proc)
	if len(set) == 0 {
		delete(r.byID, jobID)
	}
}

// Kill terminates every live process registered under the job id and
// returns the number of processes signalled. Subprocesses run in their own
// process group, so the signal goes to the negative pid to reach any
// children they spawned.
func (r *Registry) Kill(jobID string) int {
	r.mu.Lock()
	handles := make([]*os.Process, 0, len(r.byID[jobID]))
	for proc := range r.byID[jobID] {
		handles = append(handles, proc)
	}
	r.mu.Unlock()

	killed := 0
	for _, proc := range handles {
		if err := unix.Kill(-proc.Pid, unix.SIGTERM); err != nil {
			// Group signal can fail when the leader already exited.
			if err := proc.Kill(); err != nil {
				continue
			}
		}
		killed++
	}
	return killed
}

// Drop removes all bookkeeping for a job without signalling anything.
// Called when the job is evicted.
func (r *Registry) Drop(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, jobID)
}

// Count returns the number of live handles registered under the job id.
func (r *Registry) Count(jobID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID[jobID])
}
