package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/recalc/pkg/domain"
)

// Store implements ports.ResultStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.EvaluationResult
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.EvaluationResult),
	}
}

// Save keeps a copy of the result.
func (s *Store) Save(ctx context.Context, result *domain.EvaluationResult) error {
	copied := clone(result)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[result.SessionID] = copied
	return nil
}

// Load returns a copy so callers cannot mutate the stored result.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.EvaluationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrResultNotFound
	}
	return clone(result), nil
}

// Delete removes the result.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns the stored session IDs in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func clone(r *domain.EvaluationResult) *domain.EvaluationResult {
	out := *r
	out.State = append([]domain.VariableState(nil), r.State...)
	out.Logs = append([]domain.LogLine(nil), r.Logs...)
	return &out
}
