// Package inmemory provides channel-backed implementations of the jobs
// interfaces, suitable for a single-instance server. State is lost on
// restart.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/transaction-unifier/internal/jobs"
)

// Store keeps job state in a map, safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*jobs.RebuildJob
}

// NewStore creates an empty in-memory job store.
func NewStore() *Store {
	return &Store{jobs: make(map[string]*jobs.RebuildJob)}
}

// SaveJob inserts or updates a job. Copies on both sides keep callers from
// mutating stored state.
func (s *Store) SaveJob(ctx context.Context, job *jobs.RebuildJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	saved := *job
	s.jobs[job.JobID] = &saved
	return nil
}

// GetJob retrieves one job by ID.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.RebuildJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	out := *job
	return &out, nil
}

// ListJobs returns jobs matching the filter, newest first.
func (s *Store) ListJobs(ctx context.Context, filter jobs.Filter) ([]*jobs.RebuildJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*jobs.RebuildJob
	for _, job := range s.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		out := *job
		result = append(result, &out)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

var _ jobs.Store = (*Store)(nil)
