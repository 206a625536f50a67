package reporting

import (
	"time"

	"policy-impact-lab/internal/domain"
)

// Report is the complete impact report for one baseline/reform comparison.
type Report struct {
	// Metadata
	ReportID    string
	GeneratedAt time.Time
	Dataset     string
	Provider    string

	Summary     Summary
	DataQuality DataQualitySection

	// Population tables
	Deciles     []DecileRow
	AgeGroups   []GroupRow
	Poverty     []PovertyRow
	IntraDecile []BandRow
	Waterfall   domain.WaterfallComparison

	// Household tables (empty when no sweep was computed)
	BudgetCurve        []domain.CurvePoint
	MTRCurve           []domain.CurvePoint
	HouseholdWaterfall domain.WaterfallComparison
}

// Summary contains headline figures.
type Summary struct {
	People            int
	SweepPoints       int
	BaselineNetIncome float64
	ReformNetIncome   float64
	BudgetImpact      float64 // reform minus baseline; positive means the reform costs money
}

// DataQualitySection lists inputs that were absent or unusable.
type DataQualitySection struct {
	MissingVariables   []string
	ExcludedFromBands  int // people with zero or missing baseline income
	ExcludedFromTotals int // people with a NaN or infinite income
	AllChecksPassed    bool
}

// DecileRow is one bar of the decile chart.
type DecileRow struct {
	Decile        int
	BaselineTotal float64
	ReformTotal   float64
	Change        float64
	Label         string
}

// GroupRow is the net income change of one age group.
type GroupRow struct {
	Group         domain.Group
	BaselineTotal float64
	ReformTotal   float64
	Change        float64
	Label         string
}

// PovertyRow is one bar of the poverty chart.
type PovertyRow struct {
	Group        domain.Group
	BaselineRate float64
	ReformRate   float64
	Change       float64
	Label        string
}

// BandRow is one segment of the intra-decile chart.
type BandRow struct {
	Decile   string
	Band     string
	Count    int
	Fraction float64
	Hover    string
}
