package impact

import (
	"math"
	"sort"

	"policy-impact-lab/internal/domain"
)

// ComponentSpec describes one budget component in the catalogue.
type ComponentSpec struct {
	Key      string
	Label    string
	Polarity domain.Polarity
}

// Catalogue is the fixed component order of every budget waterfall.
// Taxes are reported by the engine as positive amounts and subtract.
var Catalogue = []ComponentSpec{
	{Key: "employment_income", Label: "Employment income", Polarity: domain.PolarityGain},
	{Key: "self_employment_income", Label: "Self-employment income", Polarity: domain.PolarityGain},
	{Key: "pension_income", Label: "Pension income", Polarity: domain.PolarityGain},
	{Key: "savings_interest_income", Label: "Savings income", Polarity: domain.PolarityGain},
	{Key: "dividend_income", Label: "Dividend income", Polarity: domain.PolarityGain},
	{Key: "income_tax", Label: "Income Tax", Polarity: domain.PolarityLoss},
	{Key: "national_insurance", Label: "NI", Polarity: domain.PolarityLoss},
	{Key: "universal_credit", Label: "Universal Credit", Polarity: domain.PolarityGain},
	{Key: "child_benefit", Label: "Child Benefit", Polarity: domain.PolarityGain},
	{Key: "UBI", Label: "UBI", Polarity: domain.PolarityGain},
}

// TotalKey is the variable rendered as the final waterfall bar.
const TotalKey = domain.VarNetIncome

// TotalLabel is the display name of the final bar.
const TotalLabel = "Net income"

// CatalogueKeys returns the component keys in catalogue order.
func CatalogueKeys() []string {
	keys := make([]string, len(Catalogue))
	for i, c := range Catalogue {
		keys[i] = c.Key
	}
	return keys
}

func lookupSpec(key string) (ComponentSpec, bool) {
	for _, c := range Catalogue {
		if c.Key == key {
			return c, true
		}
	}
	return ComponentSpec{}, false
}

// ComponentLabel returns the display name of a component.
// Keys outside the catalogue are shown as-is.
func ComponentLabel(key string) string {
	if key == TotalKey {
		return TotalLabel
	}
	if spec, ok := lookupSpec(key); ok {
		return spec.Label
	}
	return key
}

// Budget is one scenario's component amounts and final total.
type Budget struct {
	Amounts map[string]float64 // engine-reported amounts by component key
	Total   float64
}

// ComponentAxis returns the union of components that are non-zero in either
// budget. Catalogue components come first in catalogue order; any other keys
// follow sorted by name.
func ComponentAxis(budgets ...Budget) []string {
	present := make(map[string]bool)
	for _, b := range budgets {
		for k, v := range b.Amounts {
			if k == TotalKey || v == 0 {
				continue
			}
			present[k] = true
		}
	}

	axis := make([]string, 0, len(present))
	for _, c := range Catalogue {
		if present[c.Key] {
			axis = append(axis, c.Key)
			delete(present, c.Key)
		}
	}
	extra := make([]string, 0, len(present))
	for k := range present {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	return append(axis, extra...)
}

// Contributions lays a budget onto an axis. Components absent from the
// budget are backfilled with zero.
func Contributions(b Budget, axis []string) []domain.ComponentContribution {
	out := make([]domain.ComponentContribution, len(axis))
	for i, key := range axis {
		polarity := domain.PolarityGain
		if spec, ok := lookupSpec(key); ok {
			polarity = spec.Polarity
		}
		out[i] = domain.ComponentContribution{
			Name:     key,
			Amount:   b.Amounts[key],
			Polarity: polarity,
		}
	}
	return out
}

// BuildWaterfall positions one bar per component followed by the total.
//
// Raw cumulative sums are c[0] = 0 and c[i+1] = c[i] + signed(i). A single
// left-to-right pass then lowers the floor of bar i to c[i+1] when the running
// sum fell, so every bar spans from min(c[i], c[i+1]) to max(c[i], c[i+1]).
// Floors fixed earlier in the pass are never revisited. Floors are
// non-decreasing only while no component lowers the running sum.
//
// A bar's category follows the sign of its signed amount, so a negative gain
// is drawn as a loss.
//
// The final bar is the total, drawn from zero.
func BuildWaterfall(components []domain.ComponentContribution, total float64) []domain.WaterfallBar {
	base := make([]float64, len(components)+1)
	for i, c := range components {
		base[i+1] = base[i] + c.Signed()
	}
	for i := 1; i < len(base); i++ {
		if base[i] < base[i-1] {
			base[i-1] = base[i]
		}
	}

	bars := make([]domain.WaterfallBar, 0, len(components)+1)
	for i, c := range components {
		signed := c.Signed()
		category := domain.BarGain
		if signed < 0 {
			category = domain.BarLoss
		}
		bars = append(bars, domain.WaterfallBar{
			Name:     c.Name,
			Label:    ComponentLabel(c.Name),
			Floor:    base[i],
			Height:   math.Abs(signed),
			Category: category,
		})
	}

	bars = append(bars, domain.WaterfallBar{
		Name:     TotalKey,
		Label:    TotalLabel,
		Floor:    math.Min(0, total),
		Height:   math.Abs(total),
		Category: domain.BarFinal,
	})
	return bars
}

// WaterfallExtent returns the value range covering every bar and zero.
func WaterfallExtent(waterfalls ...[]domain.WaterfallBar) (float64, float64) {
	lo, hi := 0.0, 0.0
	for _, bars := range waterfalls {
		for _, b := range bars {
			lo = math.Min(lo, b.Floor)
			hi = math.Max(hi, b.Top())
		}
	}
	return lo, hi
}

// CompareWaterfalls builds baseline and reform waterfalls on a shared axis.
func CompareWaterfalls(baseline, reform Budget) domain.WaterfallComparison {
	axis := ComponentAxis(baseline, reform)
	cmp := domain.WaterfallComparison{
		Components: axis,
		Baseline:   BuildWaterfall(Contributions(baseline, axis), baseline.Total),
		Reform:     BuildWaterfall(Contributions(reform, axis), reform.Total),
	}
	cmp.Min, cmp.Max = WaterfallExtent(cmp.Baseline, cmp.Reform)
	return cmp
}
