package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/tieubaoca/contract-analyzer/types"
)

// ErrNotFound is returned when a record does not exist for the given id.
var ErrNotFound = errors.New("record not found")

// JobRepo is the job registry: get-by-id, save, update-in-place. The pipeline
// depends only on these operations, never on storage technology. Reads and
// writes may happen concurrently (status polls race progress updates), but
// each job has a single writer: its own pipeline.
type JobRepo interface {
	Save(ctx context.Context, job *types.Job) error
	Get(ctx context.Context, jobID string) (*types.Job, error)
	Update(ctx context.Context, job *types.Job) error
}

// memoryJobRepo stores snapshots: Save and Update clone the record under the
// lock and Get hands back a clone, so the pipeline's private pointer never
// aliases what a status poll reads.
type memoryJobRepo struct {
	mu   sync.RWMutex
	jobs map[string]*types.Job
}

// NewMemoryJobRepo returns the in-memory registry used by default and in
// tests.
func NewMemoryJobRepo() *memoryJobRepo {
	return &memoryJobRepo{jobs: make(map[string]*types.Job)}
}

func (r *memoryJobRepo) Save(ctx context.Context, job *types.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.JobID] = job.Clone()
	return nil
}

func (r *memoryJobRepo) Get(ctx context.Context, jobID string) (*types.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	return job.Clone(), nil
}

func (r *memoryJobRepo) Update(ctx context.Context, job *types.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.JobID]; !ok {
		return ErrNotFound
	}
	r.jobs[job.JobID] = job.Clone()
	return nil
}

// Clear drops every record. For tests.
func (r *memoryJobRepo) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = make(map[string]*types.Job)
}
