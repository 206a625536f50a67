package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"policy-impact-lab/internal/domain"
	"policy-impact-lab/internal/impact"
	"policy-impact-lab/internal/logging"
	"policy-impact-lab/internal/observability"
	"policy-impact-lab/internal/provider"
	"policy-impact-lab/internal/reporting"
	"policy-impact-lab/internal/storage"
)

// Output file names
const (
	ReportFile          = "IMPACT_REPORT.md"
	DecileCSVFile       = "decile_impact.csv"
	IntraDecileCSVFile  = "intra_decile.csv"
	WaterfallCSVFile    = "waterfall.csv"
	HouseholdCurvesFile = "household_curves.csv"
	ChartRowsFile       = "chart_rows.json"
)

type outputFile struct {
	name    string
	content []byte
}

// ImpactPipeline computes impact tables, renders the report files and
// persists chart rows.
type ImpactPipeline struct {
	aggregator *impact.Aggregator
	reportGen  *reporting.Generator
	chartStore storage.ChartRowStore  // optional
	metrics    *observability.Metrics // optional
	logger     *logging.Logger
	outputDir  string
	clock      func() time.Time
	household  bool
}

// NewImpactPipeline creates a pipeline writing into outputDir.
func NewImpactPipeline(agg *impact.Aggregator, gen *reporting.Generator, outputDir string) *ImpactPipeline {
	return &ImpactPipeline{
		aggregator: agg,
		reportGen:  gen,
		logger:     logging.Nop(),
		outputDir:  outputDir,
		clock:      func() time.Time { return time.Now().UTC() },
		household:  true,
	}
}

// WithChartStore persists chart rows in store.
func (p *ImpactPipeline) WithChartStore(store storage.ChartRowStore) *ImpactPipeline {
	p.chartStore = store
	return p
}

// WithMetrics records run metrics.
func (p *ImpactPipeline) WithMetrics(m *observability.Metrics) *ImpactPipeline {
	p.metrics = m
	return p
}

// WithLogger sets the logger.
func (p *ImpactPipeline) WithLogger(l *logging.Logger) *ImpactPipeline {
	p.logger = l
	return p
}

// WithClock sets a custom clock function for deterministic output.
func (p *ImpactPipeline) WithClock(clock func() time.Time) *ImpactPipeline {
	p.clock = clock
	p.reportGen = p.reportGen.WithClock(clock)
	return p
}

// WithoutHousehold skips the household sweep.
func (p *ImpactPipeline) WithoutHousehold() *ImpactPipeline {
	p.household = false
	return p
}

// Compute fetches the vectors and builds the report and its chart rows
// without writing or storing anything.
func (p *ImpactPipeline) Compute(ctx context.Context) (*reporting.Report, []*domain.ChartRow, error) {
	// 1. Population tables
	population, err := p.aggregator.ComputePopulationImpact(ctx)
	p.recordComputation("population", err)
	if err != nil {
		return nil, nil, fmt.Errorf("population impact: %w", err)
	}

	// 2. Household sweep; an engine without sweep output only skips the curves
	var household *domain.HouseholdImpact
	if p.household {
		household, err = p.aggregator.ComputeHouseholdImpact(ctx)
		p.recordComputation("household", err)
		if err != nil {
			if !errors.Is(err, provider.ErrVariableNotFound) {
				return nil, nil, fmt.Errorf("household impact: %w", err)
			}
			p.logger.Warn("household sweep not provided, skipping curves", "error", err)
			household = nil
		}
	}

	// 3. Report
	missing := p.aggregator.MissingVariableWarnings()
	if p.metrics != nil {
		p.metrics.RecordMissingVariables(len(missing))
	}
	report := p.reportGen.Generate(population, household, missing)
	p.logger.Info("report generated",
		"report_id", report.ReportID,
		"people", report.Summary.People,
		"missing_variables", len(missing))

	return report, reporting.ChartRows(report), nil
}

// Run executes the full pipeline and writes output files:
// - IMPACT_REPORT.md
// - decile_impact.csv
// - intra_decile.csv
// - waterfall.csv
// - household_curves.csv (only when a sweep was computed)
// - chart_rows.json
func (p *ImpactPipeline) Run(ctx context.Context) (*reporting.Report, error) {
	start := p.clock()

	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	report, rows, err := p.Compute(ctx)
	if err != nil {
		return nil, err
	}

	// 4. Chart rows
	if err := p.storeChartRows(ctx, rows); err != nil {
		return nil, err
	}
	chartJSON, err := reporting.RenderChartJSON(report.ReportID, rows)
	if err != nil {
		return nil, err
	}

	// 5. Files
	files := []outputFile{
		{ReportFile, []byte(reporting.RenderMarkdown(report))},
		{DecileCSVFile, []byte(reporting.RenderDecileCSV(report))},
		{IntraDecileCSVFile, []byte(reporting.RenderBandCSV(report.IntraDecile))},
		{WaterfallCSVFile, []byte(reporting.RenderWaterfallCSV(report))},
		{ChartRowsFile, chartJSON},
	}
	if report.Summary.SweepPoints > 0 {
		files = append(files, outputFile{HouseholdCurvesFile, []byte(reporting.RenderCurveCSV(report.BudgetCurve, report.MTRCurve))})
	}
	for _, f := range files {
		path := filepath.Join(p.outputDir, f.name)
		if err := os.WriteFile(path, f.content, 0644); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.name, err)
		}
	}

	if p.metrics != nil {
		p.metrics.RecordReport(p.clock().Sub(start))
	}
	p.logger.Info("report written", "dir", p.outputDir, "files", len(files))
	return report, nil
}

// storeChartRows persists rows. Rows of an already stored report are left
// untouched; the report id is a hash of the rows themselves, so a stored id
// means the same content is already there.
func (p *ImpactPipeline) storeChartRows(ctx context.Context, rows []*domain.ChartRow) error {
	if p.chartStore == nil || len(rows) == 0 {
		return nil
	}
	err := p.chartStore.InsertBulk(ctx, rows)
	switch {
	case errors.Is(err, storage.ErrDuplicateKey):
		p.logger.Info("chart rows already stored", "report_id", rows[0].ReportID)
		return nil
	case err != nil:
		return fmt.Errorf("store chart rows: %w", err)
	}
	if p.metrics != nil {
		p.metrics.RecordRowsStored("chart_rows", len(rows))
	}
	p.logger.Info("chart rows stored", "report_id", rows[0].ReportID, "rows", len(rows))
	return nil
}

func (p *ImpactPipeline) recordComputation(kind string, err error) {
	if p.metrics != nil {
		p.metrics.RecordComputation(kind, err)
	}
}
