package impact

import (
	"math"
	"testing"
)

func TestBudgetCurve_Rounding(t *testing.T) {
	points := BudgetCurve(
		[]float64{0, 1000},
		[]float64{100.5, -20.5},
		[]float64{100.49, 1999.999},
	)

	if points[0].Baseline != 101 || points[0].Reform != 100 {
		t.Errorf("point 0: got %+v", points[0])
	}
	if points[1].Baseline != -21 || points[1].Reform != 2000 {
		t.Errorf("point 1: got %+v", points[1])
	}
	if points[1].X != 1000 {
		t.Errorf("x should be unchanged, got %v", points[1].X)
	}
}

func TestMarginalTaxRates(t *testing.T) {
	earnings := []float64{0, 1000, 2000, 2000, 3000}
	net := []float64{500, 1300, 1900, 1900, 2600}

	rates := MarginalTaxRates(earnings, net)

	want := []float64{0.2, 0.4, 0, 0.3}
	if len(rates) != len(want) {
		t.Fatalf("expected %d rates, got %d", len(want), len(rates))
	}
	for i := range want {
		if !approxEqual(rates[i], want[i]) {
			t.Errorf("rate %d: expected %v, got %v", i, want[i], rates[i])
		}
	}
}

func TestMarginalTaxRates_ShortSweep(t *testing.T) {
	if got := MarginalTaxRates([]float64{100}, []float64{90}); len(got) != 0 {
		t.Errorf("expected no rates, got %v", got)
	}
}

func TestMTRCurve(t *testing.T) {
	earnings := []float64{0, 100, 200}
	points := MTRCurve(earnings, []float64{0, 80, 160}, []float64{0, 100, 150})

	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[1].X != 100 {
		t.Errorf("rates are reported at the lower point, got x=%v", points[1].X)
	}
	if !approxEqual(points[0].Baseline, 0.2) || !approxEqual(points[0].Reform, 0) {
		t.Errorf("point 0: got %+v", points[0])
	}
	if !approxEqual(points[1].Reform, 0.5) {
		t.Errorf("point 1 reform: expected 0.5, got %v", points[1].Reform)
	}
}

func TestBudgetImpact(t *testing.T) {
	if got := BudgetImpact(1000, 1250); got != 250 {
		t.Errorf("expected 250, got %v", got)
	}
}

func TestBudgetCurve_NonFiniteBecomesZero(t *testing.T) {
	points := BudgetCurve(
		[]float64{0, 1000},
		[]float64{math.NaN(), 900},
		[]float64{100, math.Inf(1)},
	)

	if points[0].Baseline != 0 || points[0].Reform != 100 {
		t.Errorf("point 0: got %+v", points[0])
	}
	if points[1].Baseline != 900 || points[1].Reform != 0 {
		t.Errorf("point 1: got %+v", points[1])
	}
}

func TestMarginalTaxRates_NonFiniteSteps(t *testing.T) {
	earnings := []float64{0, 1000, 2000, 3000}
	net := []float64{500, math.NaN(), 1900, 2600}

	rates := MarginalTaxRates(earnings, net)

	want := []float64{0, 0, 0.3}
	for i := range want {
		if !approxEqual(rates[i], want[i]) {
			t.Errorf("rate %d: expected %v, got %v", i, want[i], rates[i])
		}
	}
}
