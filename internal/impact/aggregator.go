package impact

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"policy-impact-lab/internal/domain"
	"policy-impact-lab/internal/logging"
	"policy-impact-lab/internal/provider"
)

// ErrLengthMismatch is returned when vectors that describe the same entities
// have different lengths.
var ErrLengthMismatch = errors.New("vector length mismatch")

// Aggregator pulls result vectors from a provider and computes impact tables.
type Aggregator struct {
	provider provider.Provider
	logger   *logging.Logger
	bands    []Band

	mu sync.Mutex
	// missing counts lookups of absent variables.
	// Key: "scenario/variable".
	missing map[string]int
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(a *Aggregator) {
		a.logger = l
	}
}

// WithBands replaces the default gain/loss bands.
func WithBands(bands []Band) Option {
	return func(a *Aggregator) {
		a.bands = bands
	}
}

// NewAggregator creates an aggregator reading from p.
func NewAggregator(p provider.Provider, opts ...Option) *Aggregator {
	a := &Aggregator{
		provider: p,
		logger:   logging.Nop(),
		bands:    DefaultBands(),
		missing:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// MissingVariableWarnings returns one sorted line per absent variable.
func (a *Aggregator) MissingVariableWarnings() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]string, 0, len(a.missing))
	for key, n := range a.missing {
		if n == 1 {
			out = append(out, fmt.Sprintf("%s: not provided, treated as 0", key))
		} else {
			out = append(out, fmt.Sprintf("%s: not provided (%d lookups), treated as 0", key, n))
		}
	}
	sort.Strings(out)
	return out
}

func (a *Aggregator) recordMiss(scenario domain.Scenario, variable string) {
	a.mu.Lock()
	a.missing[string(scenario)+"/"+variable]++
	a.mu.Unlock()
	a.logger.Warn("variable not provided", "scenario", scenario, "variable", variable)
}

// optional fetches a vector whose absence is tolerated. found is false when
// the provider has no such variable; the miss is recorded.
func (a *Aggregator) optional(ctx context.Context, scenario domain.Scenario, variable string, aggregation domain.Aggregation) ([]float64, bool, error) {
	values, err := a.provider.Get(ctx, scenario, variable, aggregation)
	if err != nil {
		if errors.Is(err, provider.ErrVariableNotFound) {
			a.recordMiss(scenario, variable)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get %s/%s: %w", scenario, variable, err)
	}
	return values, true, nil
}

// required fetches a vector that must exist.
func (a *Aggregator) required(ctx context.Context, scenario domain.Scenario, variable string, aggregation domain.Aggregation) ([]float64, error) {
	values, err := a.provider.Get(ctx, scenario, variable, aggregation)
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", scenario, variable, err)
	}
	return values, nil
}

func checkLength(variable string, values []float64, n int) error {
	if len(values) != n {
		return fmt.Errorf("%w: %s has %d values, want %d", ErrLengthMismatch, variable, len(values), n)
	}
	return nil
}

// budget loads every catalogue component and the net income total.
// Absent components count as 0.
func (a *Aggregator) budget(ctx context.Context, scenario domain.Scenario, aggregation domain.Aggregation) (Budget, error) {
	b := Budget{Amounts: make(map[string]float64, len(Catalogue))}
	for _, c := range Catalogue {
		v, err := provider.Total(ctx, a.provider, scenario, c.Key, aggregation, a.recordMiss)
		if err != nil {
			return Budget{}, err
		}
		b.Amounts[c.Key] = v
	}
	total, err := provider.Total(ctx, a.provider, scenario, TotalKey, aggregation, a.recordMiss)
	if err != nil {
		return Budget{}, err
	}
	b.Total = total
	return b, nil
}

// populationVectors is everything loaded for one scenario.
type populationVectors struct {
	income      []float64
	equivIncome []float64
	weights     []float64 // nil when unweighted
	isChild     []float64
	isSenior    []float64
	inPoverty   []float64
	budget      Budget
}

func (a *Aggregator) loadPopulation(ctx context.Context, scenario domain.Scenario) (*populationVectors, error) {
	income, err := a.required(ctx, scenario, domain.VarHouseholdNetIncome, domain.AggregationPerson)
	if err != nil {
		return nil, err
	}
	n := len(income)
	v := &populationVectors{income: income}

	equiv, found, err := a.optional(ctx, scenario, domain.VarEquivHouseholdNetIncome, domain.AggregationPerson)
	if err != nil {
		return nil, err
	}
	if !found {
		equiv = income
	}
	if err := checkLength(domain.VarEquivHouseholdNetIncome, equiv, n); err != nil {
		return nil, err
	}
	v.equivIncome = equiv

	weights, found, err := a.optional(ctx, scenario, domain.VarPersonWeight, domain.AggregationPerson)
	if err != nil {
		return nil, err
	}
	if found {
		if err := checkLength(domain.VarPersonWeight, weights, n); err != nil {
			return nil, err
		}
		v.weights = weights
	}

	flags := []struct {
		variable string
		dst      *[]float64
	}{
		{domain.VarIsChild, &v.isChild},
		{domain.VarIsStatePensionAge, &v.isSenior},
		{domain.VarInPoverty, &v.inPoverty},
	}
	for _, f := range flags {
		values, err := provider.Lookup(ctx, a.provider, scenario, f.variable, domain.AggregationPerson, n, a.recordMiss)
		if err != nil {
			return nil, err
		}
		if err := checkLength(f.variable, values, n); err != nil {
			return nil, err
		}
		*f.dst = values
	}

	v.budget, err = a.budget(ctx, scenario, domain.AggregationSum)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// loadBoth runs load for baseline and reform concurrently.
func loadBoth[T any](ctx context.Context, load func(context.Context, domain.Scenario) (T, error)) (T, T, error) {
	var baseline, reform T
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		baseline, err = load(gctx, domain.ScenarioBaseline)
		return err
	})
	g.Go(func() error {
		var err error
		reform, err = load(gctx, domain.ScenarioReform)
		return err
	})
	err := g.Wait()
	return baseline, reform, err
}

// ComputePopulationImpact computes decile, poverty, banded and waterfall
// tables for the whole population.
//
// Deciles, groups and weights come from the baseline. Reform vectors must
// describe the same people in the same order.
func (a *Aggregator) ComputePopulationImpact(ctx context.Context) (*domain.PopulationImpact, error) {
	base, reform, err := loadBoth(ctx, a.loadPopulation)
	if err != nil {
		return nil, fmt.Errorf("load population: %w", err)
	}

	n := len(base.income)
	if err := checkLength("reform "+domain.VarHouseholdNetIncome, reform.income, n); err != nil {
		return nil, err
	}
	a.logger.Info("population loaded", "people", n, "weighted", base.weights != nil)

	deciles := DecileRanks(base.equivIncome, base.weights)
	groups := AssignGroups(base.isChild, base.isSenior)

	baseRates := make(map[domain.Group]float64, len(domain.GroupOrder))
	reformRates := make(map[domain.Group]float64, len(domain.GroupOrder))
	for _, g := range domain.GroupOrder {
		baseRates[g] = PovertyRate(groups, base.inPoverty, base.weights, g)
		reformRates[g] = PovertyRate(groups, reform.inPoverty, base.weights, g)
	}

	relative, valid, excluded := RelativeChanges(base.income, reform.income)
	nonFinite := NonFinite(base.income, reform.income)
	if nonFinite > 0 {
		a.logger.Warn("non-finite incomes left out of totals", "people", nonFinite)
	}

	out := &domain.PopulationImpact{
		People:             n,
		BaselineNetIncome:  base.budget.Total,
		ReformNetIncome:    reform.budget.Total,
		BudgetImpact:       BudgetImpact(base.budget.Total, reform.budget.Total),
		DecileChanges:      DecileChanges(deciles, base.income, reform.income, base.weights),
		IncomeChanges:      GroupChanges(groups, base.income, reform.income, base.weights),
		PovertyChanges:     PovertyChanges(baseRates, reformRates),
		BandFractions:      IntraDecileDistribution(deciles, relative, valid, a.bands),
		ExcludedFromBands:  excluded,
		ExcludedFromTotals: nonFinite,
		Waterfall:          CompareWaterfalls(base.budget, reform.budget),
	}

	a.logger.Info("population impact computed",
		"budget_impact", out.BudgetImpact,
		"excluded_from_bands", excluded,
		"components", len(out.Waterfall.Components))
	return out, nil
}

// sweepVectors is one scenario's household sweep.
type sweepVectors struct {
	earnings []float64
	net      []float64
	budget   Budget
}

func (a *Aggregator) loadSweep(ctx context.Context, scenario domain.Scenario) (*sweepVectors, error) {
	earnings, err := a.required(ctx, scenario, domain.VarEmploymentIncome, domain.AggregationSweep)
	if err != nil {
		return nil, err
	}
	net, err := a.required(ctx, scenario, domain.VarNetIncome, domain.AggregationSweep)
	if err != nil {
		return nil, err
	}
	if err := checkLength(domain.VarNetIncome, net, len(earnings)); err != nil {
		return nil, err
	}
	b, err := a.budget(ctx, scenario, domain.AggregationHousehold)
	if err != nil {
		return nil, err
	}
	return &sweepVectors{earnings: earnings, net: net, budget: b}, nil
}

// ComputeHouseholdImpact computes the budget and marginal tax rate curves of
// a single household swept across earnings, plus its budget waterfalls.
// Both scenarios must share the baseline earnings axis.
func (a *Aggregator) ComputeHouseholdImpact(ctx context.Context) (*domain.HouseholdImpact, error) {
	base, reform, err := loadBoth(ctx, a.loadSweep)
	if err != nil {
		return nil, fmt.Errorf("load household sweep: %w", err)
	}
	if err := checkLength("reform "+domain.VarNetIncome, reform.net, len(base.earnings)); err != nil {
		return nil, err
	}

	out := &domain.HouseholdImpact{
		SweepPoints: len(base.earnings),
		Budget:      BudgetCurve(base.earnings, base.net, reform.net),
		MTR:         MTRCurve(base.earnings, base.net, reform.net),
		Waterfall:   CompareWaterfalls(base.budget, reform.budget),
	}
	a.logger.Info("household impact computed", "sweep_points", out.SweepPoints)
	return out, nil
}
