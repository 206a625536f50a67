package reporting

import (
	"math"
	"strings"
	"testing"
	"time"

	"policy-impact-lab/internal/domain"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func samplePopulation() *domain.PopulationImpact {
	deciles := make([]domain.DecileChange, 10)
	for i := range deciles {
		deciles[i] = domain.DecileChange{
			Decile:        i + 1,
			BaselineTotal: 1000,
			ReformTotal:   1010,
			Change:        0.01,
		}
	}
	deciles[9].ReformTotal = 900
	deciles[9].Change = -0.1

	return &domain.PopulationImpact{
		People:            40,
		BaselineNetIncome: 10000,
		ReformNetIncome:   9990,
		BudgetImpact:      -10,
		DecileChanges:     deciles,
		IncomeChanges: []domain.GroupChange{
			{Group: domain.GroupChild, Baseline: 2000, Reform: 2040, Change: 0.02},
			{Group: domain.GroupWorkingAge, Baseline: 6000, Reform: 5950, Change: -50.0 / 6000},
			{Group: domain.GroupSenior, Baseline: 2000, Reform: 2000, Change: 0},
			{Group: domain.GroupAll, Baseline: 10000, Reform: 9990, Change: -0.001},
		},
		PovertyChanges: []domain.GroupChange{
			{Group: domain.GroupChild, Baseline: 0.2, Reform: 0.1, Change: -0.5},
			{Group: domain.GroupWorkingAge, Baseline: 0.1, Reform: 0.1, Change: 0},
			{Group: domain.GroupSenior, Baseline: 0.1, Reform: 0.11, Change: 0.1},
			{Group: domain.GroupAll, Baseline: 0.4 / 3, Reform: 0.1, Change: -0.25},
		},
		BandFractions: []domain.BandFraction{
			{Decile: "1", Band: "Gain more than 5%", Count: 1, Fraction: 0.25},
			{Decile: domain.DecileAll, Band: "Gain more than 5%", Count: 1, Fraction: 0.025},
		},
		ExcludedFromBands: 2,
		Waterfall: domain.WaterfallComparison{
			Components: []string{"employment_income", "income_tax"},
			Baseline: []domain.WaterfallBar{
				{Name: "employment_income", Label: "Employment income", Floor: 0, Height: 100, Category: domain.BarGain},
				{Name: "income_tax", Label: "Income Tax", Floor: 80, Height: 20, Category: domain.BarLoss},
				{Name: "net_income", Label: "Net income", Floor: 0, Height: 80, Category: domain.BarFinal},
			},
			Reform: []domain.WaterfallBar{
				{Name: "employment_income", Label: "Employment income", Floor: 0, Height: 100, Category: domain.BarGain},
				{Name: "income_tax", Label: "Income Tax", Floor: 70, Height: 30, Category: domain.BarLoss},
				{Name: "net_income", Label: "Net income", Floor: 0, Height: 70, Category: domain.BarFinal},
			},
			Max: 100,
		},
	}
}

func sampleHousehold() *domain.HouseholdImpact {
	return &domain.HouseholdImpact{
		SweepPoints: 3,
		Budget: []domain.CurvePoint{
			{X: 0, Baseline: 100, Reform: 100},
			{X: 1000, Baseline: 900, Reform: 850},
			{X: 2000, Baseline: 1700, Reform: 1600},
		},
		MTR: []domain.CurvePoint{
			{X: 0, Baseline: 0.2, Reform: 0.25},
			{X: 1000, Baseline: 0.2, Reform: 0.25},
		},
	}
}

func TestGenerate_Metadata(t *testing.T) {
	g := NewGenerator("demo", "static").WithClock(func() time.Time { return fixedTime })
	r := g.Generate(samplePopulation(), sampleHousehold(), nil)

	if !r.GeneratedAt.Equal(fixedTime) {
		t.Errorf("GeneratedAt = %v, want %v", r.GeneratedAt, fixedTime)
	}
	if r.Dataset != "demo" || r.Provider != "static" {
		t.Errorf("Dataset/Provider = %s/%s", r.Dataset, r.Provider)
	}
	if r.ReportID == "" {
		t.Error("ReportID is empty")
	}
	if again := g.Generate(samplePopulation(), sampleHousehold(), nil); again.ReportID != r.ReportID {
		t.Errorf("ReportID not deterministic: %s vs %s", r.ReportID, again.ReportID)
	}
	if !r.DataQuality.AllChecksPassed {
		t.Error("expected all checks passed with no missing variables")
	}
	if r.DataQuality.ExcludedFromBands != 2 {
		t.Errorf("ExcludedFromBands = %d, want 2", r.DataQuality.ExcludedFromBands)
	}
	if r.Summary.SweepPoints != 3 || len(r.BudgetCurve) != 3 || len(r.MTRCurve) != 2 {
		t.Errorf("household section not copied: %+v", r.Summary)
	}
}

func TestGenerate_ReportIDIndependentOfClock(t *testing.T) {
	a := NewGenerator("demo", "static").WithClock(func() time.Time { return fixedTime }).
		Generate(samplePopulation(), nil, nil)
	b := NewGenerator("demo", "static").WithClock(func() time.Time { return fixedTime.Add(time.Hour) }).
		Generate(samplePopulation(), nil, nil)
	if a.ReportID != b.ReportID {
		t.Errorf("report id changed with clock: %s vs %s", a.ReportID, b.ReportID)
	}
}

func TestGenerate_Labels(t *testing.T) {
	r := NewGenerator("demo", "static").Generate(samplePopulation(), nil, nil)

	if len(r.Deciles) != 10 {
		t.Fatalf("expected 10 decile rows, got %d", len(r.Deciles))
	}
	if r.Deciles[0].Label != "Decile 1: +1.0%" {
		t.Errorf("decile 1 label = %q", r.Deciles[0].Label)
	}
	if r.Deciles[9].Label != "Decile 10: -10.0%" {
		t.Errorf("decile 10 label = %q", r.Deciles[9].Label)
	}

	wantPoverty := []string{
		"Child poverty falls 50.0%",
		"Working-age poverty does not change",
		"Senior poverty rises 10.0%",
		"Total poverty falls 25.0%",
	}
	for i, want := range wantPoverty {
		if r.Poverty[i].Label != want {
			t.Errorf("poverty[%d] label = %q, want %q", i, r.Poverty[i].Label, want)
		}
	}

	if r.IntraDecile[0].Hover != "25% of decile 1 gain more than 5%" {
		t.Errorf("hover = %q", r.IntraDecile[0].Hover)
	}
	if r.IntraDecile[1].Hover != "3% of all people gain more than 5%" {
		t.Errorf("hover = %q", r.IntraDecile[1].Hover)
	}
}

func TestGenerate_MissingVariables(t *testing.T) {
	missing := []string{"reform/UBI: not provided, treated as 0"}
	r := NewGenerator("demo", "static").Generate(samplePopulation(), nil, missing)

	if r.DataQuality.AllChecksPassed {
		t.Error("expected checks to fail with missing variables")
	}
	missing[0] = "mutated"
	if r.DataQuality.MissingVariables[0] == "mutated" {
		t.Error("report must not alias the caller's slice")
	}

	md := RenderMarkdown(r)
	if !strings.Contains(md, "### Missing Variables") {
		t.Error("markdown missing the missing-variables section")
	}
	if !strings.Contains(md, "- reform/UBI: not provided, treated as 0") {
		t.Error("markdown missing the warning line")
	}
}

func TestRenderMarkdown_Sections(t *testing.T) {
	r := NewGenerator("demo", "static").WithClock(func() time.Time { return fixedTime }).
		Generate(samplePopulation(), sampleHousehold(), nil)
	md := RenderMarkdown(r)

	for _, want := range []string{
		"# Policy Impact Report",
		"Generated: 2026-03-01T12:00:00Z",
		"## Summary",
		"| Budget impact | -10 |",
		"**All variables provided.**",
		"## Income Change by Decile",
		"| 10 | 1000 | 900 | -10.0% |",
		"## Income Change by Age Group",
		"| Child | 2000 | 2040 | +2.0% |",
		"| All | 10000 | 9990 | -0.1% |",
		"| Child | 20.0% | 10.0% | -50.0% | Child poverty falls 50.0% |",
		"## Winners and Losers",
		"| Decile | Gain more than 5% |",
		"| 1 | 25% |",
		"## Budget Breakdown (population)",
		"| Income Tax | -20 | -30 |",
		"| Net income | 80 | 70 |",
		"## Household Net Income",
		"| 1000 | 900 | 850 |",
		"## Marginal Tax Rate",
		"| 0 | 20.0% | 25.0% |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderMarkdown_NoHousehold(t *testing.T) {
	r := NewGenerator("demo", "static").Generate(samplePopulation(), nil, nil)
	md := RenderMarkdown(r)
	if strings.Contains(md, "## Household Net Income") {
		t.Error("household sections rendered without a sweep")
	}
}

func TestRenderCSV(t *testing.T) {
	r := NewGenerator("demo", "static").Generate(samplePopulation(), sampleHousehold(), nil)

	decile := RenderDecileCSV(r)
	lines := strings.Split(strings.TrimSpace(decile), "\n")
	if len(lines) != 1+10+4+4 {
		t.Fatalf("decile csv has %d lines, want 19", len(lines))
	}
	if lines[0] != "table,category,baseline,reform,change,label" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "decile,1,1000.000000,1010.000000,0.010000,Decile 1: +1.0%" {
		t.Errorf("first row = %q", lines[1])
	}
	if lines[11] != "group,child,2000.000000,2040.000000,0.020000,Child income: +2.0%" {
		t.Errorf("group row = %q", lines[11])
	}
	if lines[14] != "group,all,10000.000000,9990.000000,-0.001000,Total income: -0.1%" {
		t.Errorf("total group row = %q", lines[14])
	}
	if lines[15] != "poverty,child,0.200000,0.100000,-0.500000,Child poverty falls 50.0%" {
		t.Errorf("poverty row = %q", lines[15])
	}

	band := RenderBandCSV(r.IntraDecile)
	if !strings.Contains(band, "1,Gain more than 5%,1,0.250000,25% of decile 1 gain more than 5%\n") {
		t.Errorf("band csv = %q", band)
	}

	wf := strings.Split(strings.TrimSpace(RenderWaterfallCSV(r)), "\n")
	// header + 3 bars x 2 scenarios for population; household waterfall is empty
	if len(wf) != 7 {
		t.Fatalf("waterfall csv has %d lines, want 7", len(wf))
	}
	if wf[2] != "population,baseline,1,income_tax,Income Tax,80.000000,20.000000,Loss" {
		t.Errorf("waterfall row = %q", wf[2])
	}

	curve := strings.Split(strings.TrimSpace(RenderCurveCSV(r.BudgetCurve, r.MTRCurve)), "\n")
	if len(curve) != 4 {
		t.Fatalf("curve csv has %d lines, want 4", len(curve))
	}
	if curve[1] != "0.00,100.00,100.00,0.200000,0.250000" {
		t.Errorf("curve row = %q", curve[1])
	}
	if curve[3] != "2000.00,1700.00,1600.00,," {
		t.Errorf("last curve row = %q", curve[3])
	}
}

func TestGenerate_ReportIDFollowsContent(t *testing.T) {
	g := NewGenerator("demo", "static")

	// same headline totals, income moved between deciles
	a := samplePopulation()
	b := samplePopulation()
	b.DecileChanges[0].ReformTotal, b.DecileChanges[0].Change = 1000, 0
	b.DecileChanges[1].ReformTotal, b.DecileChanges[1].Change = 1020, 0.02

	ra := g.Generate(a, nil, nil)
	rb := g.Generate(b, nil, nil)
	if ra.Summary.ReformNetIncome != rb.Summary.ReformNetIncome {
		t.Fatal("fixtures must share totals")
	}
	if ra.ReportID == rb.ReportID {
		t.Error("reports with different decile tables share an id")
	}
}

func TestRenderMarkdown_NonFiniteValues(t *testing.T) {
	p := samplePopulation()
	p.ExcludedFromTotals = 1
	p.DecileChanges[2].BaselineTotal = math.NaN()
	p.Waterfall.Baseline[0].Height = math.Inf(1)

	h := sampleHousehold()
	h.Budget[1].Reform = math.NaN()

	r := NewGenerator("demo", "static").Generate(p, h, nil)
	if r.DataQuality.AllChecksPassed {
		t.Error("checks must fail when incomes were left out of totals")
	}

	md := RenderMarkdown(r)
	for _, want := range []string{
		"| 3 | n/a | 1010 | +1.0% |",
		"| 1000 | 900 | n/a |",
		"People left out of totals (NaN or infinite income): 1",
		"**All variables provided.**",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}

	for _, row := range ChartRows(r) {
		if math.IsNaN(row.Value) || math.IsInf(row.Value, 0) {
			t.Fatalf("non-finite chart value in %s/%s/%d", row.Chart, row.Series, row.Seq)
		}
	}
	if _, err := RenderChartJSON(r.ReportID, ChartRows(r)); err != nil {
		t.Errorf("RenderChartJSON: %v", err)
	}
}
