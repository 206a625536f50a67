package provider

import (
	"context"
	"time"

	"policy-impact-lab/internal/domain"
)

// CallRecorder receives one observation per provider call.
type CallRecorder interface {
	ObserveProviderCall(scenario string, d time.Duration, err error)
}

// Instrumented wraps a Provider and records the latency of every call.
type Instrumented struct {
	next     Provider
	recorder CallRecorder
}

// NewInstrumented wraps next. A nil recorder returns next unchanged.
func NewInstrumented(next Provider, recorder CallRecorder) Provider {
	if recorder == nil {
		return next
	}
	return &Instrumented{next: next, recorder: recorder}
}

// Get implements Provider.
func (p *Instrumented) Get(ctx context.Context, scenario domain.Scenario, variable string, aggregation domain.Aggregation) ([]float64, error) {
	start := time.Now()
	values, err := p.next.Get(ctx, scenario, variable, aggregation)
	p.recorder.ObserveProviderCall(string(scenario), time.Since(start), err)
	return values, err
}
