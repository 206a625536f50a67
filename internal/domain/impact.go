package domain

// DecileChange is the relative change in net income for one decile.
type DecileChange struct {
	Decile        int
	BaselineTotal float64 // weighted baseline income
	ReformTotal   float64 // weighted reform income
	Change        float64 // (reform - baseline) / baseline, 0 when undefined
}

// GroupChange is a relative change for one reporting group.
type GroupChange struct {
	Group    Group
	Baseline float64
	Reform   float64
	Change   float64 // 0 when undefined
}

// BandFraction is the share of a decile falling into one band.
type BandFraction struct {
	Decile   string // "1".."10" or "All"
	Band     string
	Count    int
	Fraction float64
}

// DecileAll labels the whole-population row of a banded distribution.
const DecileAll = "All"

// PopulationImpact holds every population-level table for one comparison.
type PopulationImpact struct {
	People            int
	BaselineNetIncome float64
	ReformNetIncome   float64
	BudgetImpact      float64 // reform minus baseline total net income

	DecileChanges      []DecileChange
	IncomeChanges      []GroupChange // net income change per age group
	PovertyChanges     []GroupChange
	BandFractions      []BandFraction
	ExcludedFromBands  int // entities with undefined relative change
	ExcludedFromTotals int // entities with a NaN or infinite income

	Waterfall WaterfallComparison
}

// HouseholdImpact holds the single-household sweep tables.
type HouseholdImpact struct {
	SweepPoints int
	Budget      []CurvePoint
	MTR         []CurvePoint
	Waterfall   WaterfallComparison
}
