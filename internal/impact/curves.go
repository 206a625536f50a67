package impact

import (
	"github.com/shopspring/decimal"

	"policy-impact-lab/internal/domain"
)

// roundWhole rounds half away from zero to a whole currency unit.
// Non-finite values become 0.
func roundWhole(v float64) float64 {
	if !finite(v) {
		return 0
	}
	f, _ := decimal.NewFromFloat(v).Round(0).Float64()
	return f
}

// BudgetCurve pairs baseline and reform net income at each sweep point.
// Amounts are rounded to whole currency units.
func BudgetCurve(earnings, baselineNet, reformNet []float64) []domain.CurvePoint {
	points := make([]domain.CurvePoint, len(earnings))
	for i, x := range earnings {
		points[i] = domain.CurvePoint{
			X:        x,
			Baseline: roundWhole(baselineNet[i]),
			Reform:   roundWhole(reformNet[i]),
		}
	}
	return points
}

// MarginalTaxRates returns 1 - Δnet/Δearnings between consecutive sweep
// points, reported at the lower point. The result has len(earnings)-1
// entries; steps with no change in earnings or a non-finite value report 0.
func MarginalTaxRates(earnings, net []float64) []float64 {
	if len(earnings) < 2 {
		return []float64{}
	}
	rates := make([]float64, len(earnings)-1)
	for i := range rates {
		dx := earnings[i+1] - earnings[i]
		if dx == 0 || !finite(dx) || !finite(net[i]) || !finite(net[i+1]) {
			continue
		}
		rates[i] = 1 - safeRatio(net[i+1]-net[i], dx)
	}
	return rates
}

// MTRCurve returns baseline and reform marginal tax rates on one earnings axis.
func MTRCurve(earnings, baselineNet, reformNet []float64) []domain.CurvePoint {
	baseline := MarginalTaxRates(earnings, baselineNet)
	reform := MarginalTaxRates(earnings, reformNet)
	points := make([]domain.CurvePoint, len(baseline))
	for i := range points {
		points[i] = domain.CurvePoint{
			X:        earnings[i],
			Baseline: baseline[i],
			Reform:   reform[i],
		}
	}
	return points
}

// BudgetImpact returns the net cost of the reform: reform minus baseline
// total net income.
func BudgetImpact(baselineTotal, reformTotal float64) float64 {
	return reformTotal - baselineTotal
}
