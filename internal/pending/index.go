// Package pending keeps a fast in-memory mirror of every non-terminal job so
// the controller's timer loops can decide what to do without a storage round
// trip on each tick. It is rebuilt from durable storage on startup and updated
// after every durable mutation, so a reader never observes a state ahead of
// what has been persisted.
package pending

import (
	"sync"
	"time"

	"hordeclient/internal/domain"
)

// Index is an insertion-ordered map from local job ID to a cached job record.
type Index struct {
	mu    sync.RWMutex
	jobs  map[string]*domain.Job
	order []string
}

func NewIndex() *Index {
	return &Index{jobs: make(map[string]*domain.Job)}
}

// Put inserts or replaces a job. New jobs go to the back of the line; terminal
// jobs are dropped instead.
func (ix *Index) Put(job domain.Job) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if job.Status.Terminal() {
		ix.removeLocked(job.LocalID)
		return
	}
	if _, ok := ix.jobs[job.LocalID]; !ok {
		ix.order = append(ix.order, job.LocalID)
	}
	copied := job
	ix.jobs[job.LocalID] = &copied
}

// Patch applies the patch to the cached record and returns a copy of the
// result. Jobs that become terminal leave the index. The second return value
// is false when the job is not present.
func (ix *Index) Patch(localID string, patch domain.JobPatch, now time.Time) (domain.Job, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	job, ok := ix.jobs[localID]
	if !ok {
		return domain.Job{}, false
	}
	job.Apply(patch, now)
	updated := *job
	if job.Status.Terminal() {
		ix.removeLocked(localID)
	}
	return updated, true
}

// Remove drops a job from the index, preserving the order of the rest.
func (ix *Index) Remove(localID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(localID)
}

func (ix *Index) removeLocked(localID string) {
	if _, ok := ix.jobs[localID]; !ok {
		return
	}
	delete(ix.jobs, localID)
	for i, id := range ix.order {
		if id == localID {
			ix.order = append(ix.order[:i], ix.order[i+1:]...)
			break
		}
	}
}

// Get returns a copy of the cached job.
func (ix *Index) Get(localID string) (domain.Job, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	job, ok := ix.jobs[localID]
	if !ok {
		return domain.Job{}, false
	}
	return *job, true
}

// ListByStatus returns copies of cached jobs in insertion order, filtered to
// the given statuses.
func (ix *Index) ListByStatus(statuses ...domain.JobStatus) []domain.Job {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []domain.Job
	for _, id := range ix.order {
		job := ix.jobs[id]
		for _, s := range statuses {
			if job.Status == s {
				out = append(out, *job)
				break
			}
		}
	}
	return out
}

// OldestWaiting returns the earliest-inserted job still in the waiting state.
func (ix *Index) OldestWaiting() (domain.Job, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	for _, id := range ix.order {
		if job := ix.jobs[id]; job.Status == domain.JobStatusWaiting {
			return *job, true
		}
	}
	return domain.Job{}, false
}

// CountInFlight counts jobs holding a slot against the concurrency ceiling.
func (ix *Index) CountInFlight() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	n := 0
	for _, job := range ix.jobs {
		if job.Status.InFlight() {
			n++
		}
	}
	return n
}

// Len reports how many jobs the index currently tracks.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.jobs)
}
