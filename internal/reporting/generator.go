package reporting

import (
	"fmt"
	"time"

	"policy-impact-lab/internal/domain"
	"policy-impact-lab/internal/idhash"
)

// Generator turns computed impact tables into reports.
type Generator struct {
	dataset  string
	provider string
	now      func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a report generator for one dataset and provider kind.
func NewGenerator(dataset, provider string) *Generator {
	return &Generator{
		dataset:  dataset,
		provider: provider,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate assembles a report. household may be nil when no sweep was run.
// missing lists absent provider variables for the data quality section.
func (g *Generator) Generate(population *domain.PopulationImpact, household *domain.HouseholdImpact, missing []string) *Report {
	r := &Report{
		GeneratedAt: g.now(),
		Dataset:     g.dataset,
		Provider:    g.provider,
		Summary: Summary{
			People:            population.People,
			BaselineNetIncome: population.BaselineNetIncome,
			ReformNetIncome:   population.ReformNetIncome,
			BudgetImpact:      population.BudgetImpact,
		},
		DataQuality: DataQualitySection{
			MissingVariables:   append([]string(nil), missing...),
			ExcludedFromBands:  population.ExcludedFromBands,
			ExcludedFromTotals: population.ExcludedFromTotals,
			AllChecksPassed:    len(missing) == 0 && population.ExcludedFromTotals == 0,
		},
		Deciles:     generateDeciles(population.DecileChanges),
		AgeGroups:   generateGroups(population.IncomeChanges),
		Poverty:     generatePoverty(population.PovertyChanges),
		IntraDecile: generateBands(population.BandFractions),
		Waterfall:   population.Waterfall,
	}

	if household != nil {
		r.Summary.SweepPoints = household.SweepPoints
		r.BudgetCurve = household.Budget
		r.MTRCurve = household.MTR
		r.HouseholdWaterfall = household.Waterfall
	}

	r.ReportID = contentID(g.dataset, g.provider, r)
	return r
}

// contentID derives the report id from the chart rows the report exports,
// so reports with different tables never share an id.
func contentID(dataset, provider string, r *Report) string {
	rows := ChartRows(r)
	keys := make([]string, len(rows))
	values := make([]float64, len(rows))
	for i, row := range rows {
		keys[i] = fmt.Sprintf("%s|%s|%d|%s|%s|%s", row.Chart, row.Series, row.Seq, row.Category, row.Type, row.Hover)
		values[i] = row.Value
	}
	content := idhash.ComputeRowsChecksum(keys, values)
	return idhash.ComputeReportID(dataset, provider, content)
}

func generateDeciles(changes []domain.DecileChange) []DecileRow {
	rows := make([]DecileRow, len(changes))
	for i, c := range changes {
		rows[i] = DecileRow{
			Decile:        c.Decile,
			BaselineTotal: c.BaselineTotal,
			ReformTotal:   c.ReformTotal,
			Change:        c.Change,
			Label:         DecileLabel(c.Decile, c.Change),
		}
	}
	return rows
}

func generateGroups(changes []domain.GroupChange) []GroupRow {
	rows := make([]GroupRow, len(changes))
	for i, c := range changes {
		rows[i] = GroupRow{
			Group:         c.Group,
			BaselineTotal: c.Baseline,
			ReformTotal:   c.Reform,
			Change:        c.Change,
			Label:         GroupIncomeLabel(c.Group, c.Change),
		}
	}
	return rows
}

func generatePoverty(changes []domain.GroupChange) []PovertyRow {
	rows := make([]PovertyRow, len(changes))
	for i, c := range changes {
		rows[i] = PovertyRow{
			Group:        c.Group,
			BaselineRate: c.Baseline,
			ReformRate:   c.Reform,
			Change:       c.Change,
			Label:        PovertyLabel(c.Group, c.Change),
		}
	}
	return rows
}

func generateBands(fractions []domain.BandFraction) []BandRow {
	rows := make([]BandRow, len(fractions))
	for i, f := range fractions {
		rows[i] = BandRow{
			Decile:   f.Decile,
			Band:     f.Band,
			Count:    f.Count,
			Fraction: f.Fraction,
			Hover:    BandHover(f.Decile, f.Band, f.Fraction),
		}
	}
	return rows
}
