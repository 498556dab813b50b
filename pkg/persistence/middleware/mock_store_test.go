package middleware_test

import (
	"context"
	"fmt"
	"sort"

	"github.com/aretw0/recalc/pkg/domain"
	"github.com/aretw0/recalc/pkg/ports"
)

// MockStore is a simple map-based store for testing middleware.
type MockStore struct {
	data map[string]*domain.EvaluationResult
}

func NewMockStore() *MockStore {
	return &MockStore{data: make(map[string]*domain.EvaluationResult)}
}

func (s *MockStore) Save(ctx context.Context, result *domain.EvaluationResult) error {
	s.data[result.SessionID] = result
	return nil
}

func (s *MockStore) Load(ctx context.Context, sessionID string) (*domain.EvaluationResult, error) {
	result, ok := s.data[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrResultNotFound, sessionID)
	}
	return result, nil
}

func (s *MockStore) Delete(ctx context.Context, sessionID string) error {
	delete(s.data, sessionID)
	return nil
}

func (s *MockStore) List(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

var _ ports.ResultStore = (*MockStore)(nil)
