package provider

import (
	"context"
	"errors"

	"policy-impact-lab/internal/domain"
	"policy-impact-lab/internal/storage"
)

// StoreProvider serves vectors previously persisted for one dataset.
type StoreProvider struct {
	store   storage.VectorStore
	dataset string
}

// NewStoreProvider creates a provider reading dataset from store.
func NewStoreProvider(store storage.VectorStore, dataset string) *StoreProvider {
	return &StoreProvider{store: store, dataset: dataset}
}

// Get implements Provider. storage.ErrNotFound maps to ErrVariableNotFound.
func (p *StoreProvider) Get(ctx context.Context, scenario domain.Scenario, variable string, aggregation domain.Aggregation) ([]float64, error) {
	v, err := p.store.Get(ctx, p.dataset, scenario, variable, aggregation)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, notFound(scenario, variable, aggregation)
		}
		return nil, err
	}
	return v.Values, nil
}
