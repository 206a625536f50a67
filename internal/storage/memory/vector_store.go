package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"policy-impact-lab/internal/domain"
	"policy-impact-lab/internal/storage"
)

// VectorStore is an in-memory implementation of storage.VectorStore.
type VectorStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ResultVector // keyed by composite key
}

// NewVectorStore creates a new in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{
		data: make(map[string]*domain.ResultVector),
	}
}

func vectorKey(dataset string, scenario domain.Scenario, variable string, aggregation domain.Aggregation) string {
	return fmt.Sprintf("%s|%s|%s|%s", dataset, scenario, variable, aggregation)
}

func validVector(v *domain.ResultVector) bool {
	return v != nil && v.Dataset != "" && v.Scenario != "" && v.Variable != "" && v.Aggregation != ""
}

// cloneVector copies v including its values.
func cloneVector(v *domain.ResultVector) *domain.ResultVector {
	c := *v
	c.Values = append([]float64(nil), v.Values...)
	return &c
}

// Insert adds a new vector. Returns ErrDuplicateKey if exists.
func (s *VectorStore) Insert(_ context.Context, v *domain.ResultVector) error {
	if !validVector(v) {
		return storage.ErrInvalidInput
	}

	key := vectorKey(v.Dataset, v.Scenario, v.Variable, v.Aggregation)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[key] = cloneVector(v)
	return nil
}

// InsertBulk adds multiple vectors atomically. Fails entire batch on any duplicate.
func (s *VectorStore) InsertBulk(_ context.Context, vectors []*domain.ResultVector) error {
	if len(vectors) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(vectors))
	for _, v := range vectors {
		if !validVector(v) {
			return storage.ErrInvalidInput
		}
		key := vectorKey(v.Dataset, v.Scenario, v.Variable, v.Aggregation)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, v := range vectors {
		s.data[vectorKey(v.Dataset, v.Scenario, v.Variable, v.Aggregation)] = cloneVector(v)
	}
	return nil
}

// Get retrieves one vector. Returns ErrNotFound if not exists.
func (s *VectorStore) Get(_ context.Context, dataset string, scenario domain.Scenario, variable string, aggregation domain.Aggregation) (*domain.ResultVector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[vectorKey(dataset, scenario, variable, aggregation)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneVector(v), nil
}

// ListVariables returns distinct variable names for a dataset and scenario, sorted ASC.
func (s *VectorStore) ListVariables(_ context.Context, dataset string, scenario domain.Scenario) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, v := range s.data {
		if v.Dataset == dataset && v.Scenario == scenario {
			seen[v.Variable] = struct{}{}
		}
	}

	result := make([]string, 0, len(seen))
	for name := range seen {
		result = append(result, name)
	}
	sort.Strings(result)
	return result, nil
}

var _ storage.VectorStore = (*VectorStore)(nil)
