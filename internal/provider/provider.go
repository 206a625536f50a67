// Package provider supplies microsimulation result vectors to the aggregator.
package provider

import (
	"context"
	"errors"
	"fmt"
	"math"

	"policy-impact-lab/internal/domain"
)

// ErrVariableNotFound is returned when the engine has no such variable for a
// scenario. It is the only error treated as an absent value.
var ErrVariableNotFound = errors.New("variable not found")

// Provider returns one engine output vector.
// For AggregationSum the result has exactly one element.
type Provider interface {
	Get(ctx context.Context, scenario domain.Scenario, variable string, aggregation domain.Aggregation) ([]float64, error)
}

// MissObserver is notified when a looked-up variable is absent.
type MissObserver func(scenario domain.Scenario, variable string)

// Lookup fetches a vector of length n. An absent variable yields n zeros and
// is reported to onMiss; any other error is returned.
func Lookup(ctx context.Context, p Provider, scenario domain.Scenario, variable string, aggregation domain.Aggregation, n int, onMiss MissObserver) ([]float64, error) {
	values, err := p.Get(ctx, scenario, variable, aggregation)
	if err != nil {
		if errors.Is(err, ErrVariableNotFound) {
			if onMiss != nil {
				onMiss(scenario, variable)
			}
			return make([]float64, n), nil
		}
		return nil, fmt.Errorf("get %s/%s: %w", scenario, variable, err)
	}
	return values, nil
}

// Total fetches a vector and sums it: the single value of an
// AggregationSum total, or the members of an AggregationHousehold amount.
// NaN and infinite elements are skipped. An absent variable yields 0 and is
// reported to onMiss.
func Total(ctx context.Context, p Provider, scenario domain.Scenario, variable string, aggregation domain.Aggregation, onMiss MissObserver) (float64, error) {
	values, err := Lookup(ctx, p, scenario, variable, aggregation, 1, onMiss)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		total += v
	}
	return total, nil
}

func notFound(scenario domain.Scenario, variable string, aggregation domain.Aggregation) error {
	return fmt.Errorf("%w: %s/%s (%s)", ErrVariableNotFound, scenario, variable, aggregation)
}
