package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// InMemoryRunStore implements RunStore for testing and for runs with history
// disabled.
type InMemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string]Run
}

// NewInMemoryRunStore creates a new in-memory store.
func NewInMemoryRunStore() *InMemoryRunStore {
	return &InMemoryRunStore{
		runs: make(map[string]Run),
	}
}

// SaveRun stores a run.
func (s *InMemoryRunStore) SaveRun(ctx context.Context, run Run) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run = prepare(run)
	s.runs[run.ID] = run
	return run.ID, nil
}

// GetRun retrieves a run by ID.
func (s *InMemoryRunStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.runs[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return &run, nil
}

// ListRuns returns run summaries newest first.
func (s *InMemoryRunStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RunSummary, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r.Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteRun removes a run.
func (s *InMemoryRunStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[id]; !exists {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	delete(s.runs, id)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryRunStore) Close() error {
	return nil
}
