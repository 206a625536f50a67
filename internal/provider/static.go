package provider

import (
	"context"
	"sync"

	"policy-impact-lab/internal/domain"
)

type staticKey struct {
	scenario    domain.Scenario
	variable    string
	aggregation domain.Aggregation
}

// Static is an in-memory provider for fixtures and tests.
// Thread-safe. Get returns copies.
type Static struct {
	mu     sync.RWMutex
	values map[staticKey][]float64
}

// NewStatic creates an empty static provider.
func NewStatic() *Static {
	return &Static{values: make(map[staticKey][]float64)}
}

// Set stores a vector, replacing any previous value.
func (s *Static) Set(scenario domain.Scenario, variable string, aggregation domain.Aggregation, values []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[staticKey{scenario, variable, aggregation}] = append([]float64(nil), values...)
}

// SetTotal stores a population total.
func (s *Static) SetTotal(scenario domain.Scenario, variable string, total float64) {
	s.Set(scenario, variable, domain.AggregationSum, []float64{total})
}

// Get implements Provider.
func (s *Static) Get(ctx context.Context, scenario domain.Scenario, variable string, aggregation domain.Aggregation) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[staticKey{scenario, variable, aggregation}]
	if !ok {
		return nil, notFound(scenario, variable, aggregation)
	}
	return append([]float64(nil), v...), nil
}
