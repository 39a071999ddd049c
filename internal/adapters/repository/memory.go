package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/adcraft/internal/domain/model"
	"github.com/okian/adcraft/pkg/metrics"
)

const backendMemory = "memory"

// MemoryStore keeps jobs in a map guarded by one RWMutex.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*model.CreativeJob
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*model.CreativeJob)}
}

// Name implements Store.
func (s *MemoryStore) Name() string { return backendMemory }

// Create implements Store.
func (s *MemoryStore) Create(_ context.Context, job *model.CreativeJob) error {
	if job == nil || job.ID == "" {
		return ErrInvalidJob
	}
	start := time.Now()
	defer observe(backendMemory, "create", start)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return ErrExists
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (*model.CreativeJob, error) {
	start := time.Now()
	defer observe(backendMemory, "get", start)

	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return j.Clone(), nil
}

// Update implements Store. The write lock is held while fn runs, so fn must not block.
func (s *MemoryStore) Update(_ context.Context, id string, fn UpdateFunc) (*model.CreativeJob, error) {
	start := time.Now()
	defer observe(backendMemory, "update", start)

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = id
	s.jobs[id] = next
	return next.Clone(), nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	start := time.Now()
	defer observe(backendMemory, "delete", start)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return ErrNotFound
	}
	delete(s.jobs, id)
	return nil
}

// ListByStatus implements Store.
func (s *MemoryStore) ListByStatus(_ context.Context, status model.JobStatus) ([]*model.CreativeJob, error) {
	s.mu.RLock()
	out := make([]*model.CreativeJob, 0)
	for _, j := range s.jobs {
		if j.Status == status {
			out = append(out, j.Clone())
		}
	}
	s.mu.RUnlock()
	sortOldestFirst(out)
	return out, nil
}

// CountByStatus implements Store.
func (s *MemoryStore) CountByStatus(_ context.Context) (map[model.JobStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[model.JobStatus]int, len(model.AllStatuses))
	for _, st := range model.AllStatuses {
		counts[st] = 0
	}
	for _, j := range s.jobs {
		counts[j.Status]++
	}
	return counts, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

func sortOldestFirst(jobs []*model.CreativeJob) {
	sort.SliceStable(jobs, func(i, k int) bool {
		if jobs[i].CreatedAt.Equal(jobs[k].CreatedAt) {
			return jobs[i].ID < jobs[k].ID
		}
		return jobs[i].CreatedAt.Before(jobs[k].CreatedAt)
	})
}

func observe(backend, op string, start time.Time) {
	metrics.RecordStoreOperation(backend, op, float64(time.Since(start).Microseconds())/1000)
}
