package domain

// ResultVector is one engine output vector persisted for later aggregation.
// Key: (Dataset, Scenario, Variable, Aggregation).
type ResultVector struct {
	Dataset     string
	Scenario    Scenario
	Variable    string
	Aggregation Aggregation
	Values      []float64
	CreatedAt   int64 // unix ms
}

// ChartRow is one flat category/value tuple handed to a rendering layer.
// Key: (ReportID, Chart, Series, Seq).
type ChartRow struct {
	ReportID string
	Chart    string // decile, poverty, intra_decile, waterfall_baseline, ...
	Series   string // baseline, reform, change, floor, height, or a band name
	Seq      int    // position on the category axis
	Category string
	Value    float64
	Type     string // bar category or band, empty when not applicable
	Hover    string
}
