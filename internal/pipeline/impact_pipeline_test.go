package pipeline

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policy-impact-lab/internal/domain"
	"policy-impact-lab/internal/impact"
	"policy-impact-lab/internal/observability"
	"policy-impact-lab/internal/provider"
	"policy-impact-lab/internal/reporting"
	"policy-impact-lab/internal/storage/memory"
	"policy-impact-lab/internal/verification"
)

var testClock = func() time.Time { return time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC) }

func staticDemo() *provider.Static {
	p := provider.NewStatic()
	LoadStatic(p)
	return p
}

func newTestPipeline(p provider.Provider, dir string) *ImpactPipeline {
	agg := impact.NewAggregator(p)
	gen := reporting.NewGenerator(DemoDataset, "static")
	return NewImpactPipeline(agg, gen, dir).WithClock(testClock)
}

func TestImpactPipeline_Run(t *testing.T) {
	dir := t.TempDir()
	chartStore := memory.NewChartRowStore()
	m := observability.NewMetrics("test")

	report, err := newTestPipeline(staticDemo(), dir).
		WithChartStore(chartStore).
		WithMetrics(m).
		Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, DemoPeople, report.Summary.People)
	assert.Equal(t, DemoSweepPoints, report.Summary.SweepPoints)
	assert.Len(t, report.Deciles, impact.NumDeciles)
	assert.Len(t, report.Poverty, len(domain.GroupOrder))
	assert.Len(t, report.BudgetCurve, DemoSweepPoints)
	assert.Len(t, report.MTRCurve, DemoSweepPoints-1)
	assert.Equal(t, []string{"baseline/UBI: not provided (2 lookups), treated as 0"}, report.DataQuality.MissingVariables)
	assert.False(t, report.DataQuality.AllChecksPassed)

	// the reform pays a UBI, so UBI is on the shared waterfall axis
	assert.Contains(t, report.Waterfall.Components, "UBI")
	require.Equal(t, len(report.Waterfall.Baseline), len(report.Waterfall.Reform))
	for i := range report.Waterfall.Baseline {
		assert.Equal(t, report.Waterfall.Baseline[i].Name, report.Waterfall.Reform[i].Name)
	}

	for _, name := range []string{
		ReportFile, DecileCSVFile, IntraDecileCSVFile, WaterfallCSVFile, HouseholdCurvesFile, ChartRowsFile,
	} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(0), name)
	}

	md, err := os.ReadFile(filepath.Join(dir, ReportFile))
	require.NoError(t, err)
	assert.Contains(t, string(md), report.ReportID)
	assert.Contains(t, string(md), "Generated: 2026-01-15T09:00:00Z")

	stored, err := chartStore.GetByReport(context.Background(), report.ReportID)
	require.NoError(t, err)
	assert.Len(t, stored, len(reporting.ChartRows(report)))

	var chartFile struct {
		ReportID string            `json:"report_id"`
		Rows     []json.RawMessage `json:"rows"`
	}
	data, err := os.ReadFile(filepath.Join(dir, ChartRowsFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &chartFile))
	assert.Equal(t, report.ReportID, chartFile.ReportID)
	assert.Len(t, chartFile.Rows, len(stored))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ComputationsTotal.WithLabelValues("population", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ComputationsTotal.WithLabelValues("household", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportsGenerated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MissingVariables))
	assert.Equal(t, float64(len(stored)), testutil.ToFloat64(m.RowsStored.WithLabelValues("chart_rows")))
}

func TestImpactPipeline_RerunIsIdempotent(t *testing.T) {
	chartStore := memory.NewChartRowStore()
	ctx := context.Background()

	first, err := newTestPipeline(staticDemo(), t.TempDir()).WithChartStore(chartStore).Run(ctx)
	require.NoError(t, err)
	second, err := newTestPipeline(staticDemo(), t.TempDir()).WithChartStore(chartStore).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.ReportID, second.ReportID)

	ids, err := chartStore.ListReports(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{first.ReportID}, ids)
}

func TestImpactPipeline_StoreProviderMatchesStatic(t *testing.T) {
	ctx := context.Background()
	store := memory.NewVectorStore()
	_, err := LoadFixtures(ctx, store, DemoDataset)
	require.NoError(t, err)

	fromStatic, err := newTestPipeline(staticDemo(), t.TempDir()).Run(ctx)
	require.NoError(t, err)
	fromStore, err := newTestPipeline(provider.NewStoreProvider(store, DemoDataset), t.TempDir()).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, fromStatic.ReportID, fromStore.ReportID)
	assert.Equal(t, fromStatic.Deciles, fromStore.Deciles)
	assert.Equal(t, fromStatic.IntraDecile, fromStore.IntraDecile)
}

func TestImpactPipeline_NoSweep(t *testing.T) {
	p := provider.NewStatic()
	for _, v := range DemoVectors(DemoDataset) {
		if v.Aggregation == domain.AggregationSweep {
			continue
		}
		p.Set(v.Scenario, v.Variable, v.Aggregation, v.Values)
	}
	dir := t.TempDir()

	report, err := newTestPipeline(p, dir).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Summary.SweepPoints)
	assert.Empty(t, report.BudgetCurve)
	_, err = os.Stat(filepath.Join(dir, HouseholdCurvesFile))
	assert.True(t, os.IsNotExist(err))
}

func TestImpactPipeline_WithoutHousehold(t *testing.T) {
	dir := t.TempDir()
	report, err := newTestPipeline(staticDemo(), dir).WithoutHousehold().Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Summary.SweepPoints)
	// the household budget is never loaded, so the UBI miss is counted once
	assert.Equal(t, []string{"baseline/UBI: not provided, treated as 0"}, report.DataQuality.MissingVariables)
}

func TestImpactPipeline_MissingIncomeFails(t *testing.T) {
	p := provider.NewStatic()
	m := observability.NewMetrics("test")

	_, err := newTestPipeline(p, t.TempDir()).WithMetrics(m).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrVariableNotFound)
	assert.True(t, strings.Contains(err.Error(), "population impact"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ComputationsTotal.WithLabelValues("population", "error")))
}

func TestImpactPipeline_ComputeVerifiesAgainstStoredRows(t *testing.T) {
	chartStore := memory.NewChartRowStore()
	report, err := newTestPipeline(staticDemo(), t.TempDir()).
		WithChartStore(chartStore).
		Run(context.Background())
	require.NoError(t, err)

	// Compute writes nothing and yields the same report id
	again, rows, err := newTestPipeline(staticDemo(), filepath.Join(t.TempDir(), "unused")).Compute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report.ReportID, again.ReportID)

	result, err := verification.NewVerifier(chartStore).VerifyReport(context.Background(), again.ReportID, rows)
	require.NoError(t, err)
	assert.True(t, result.Match(), "divergences: %+v", result.Divergences)
	assert.Equal(t, result.StoredRows, result.MatchedRows)
}

// revenueNeutral returns four people whose reform moves income without
// changing the total.
func revenueNeutral(reform ...float64) *provider.Static {
	p := provider.NewStatic()
	for _, s := range domain.Scenarios {
		p.Set(s, domain.VarEquivHouseholdNetIncome, domain.AggregationPerson, []float64{100, 200, 300, 400})
		p.Set(s, domain.VarIsChild, domain.AggregationPerson, []float64{1, 0, 0, 0})
		p.Set(s, domain.VarIsStatePensionAge, domain.AggregationPerson, []float64{0, 0, 0, 1})
		p.Set(s, domain.VarInPoverty, domain.AggregationPerson, []float64{1, 0, 0, 0})
		p.SetTotal(s, domain.VarNetIncome, 1000)
	}
	p.Set(domain.ScenarioBaseline, domain.VarHouseholdNetIncome, domain.AggregationPerson, []float64{100, 200, 300, 400})
	p.Set(domain.ScenarioReform, domain.VarHouseholdNetIncome, domain.AggregationPerson, reform)
	return p
}

func TestImpactPipeline_RevenueNeutralReformsGetDistinctIDs(t *testing.T) {
	ctx := context.Background()
	chartStore := memory.NewChartRowStore()

	toPoorest, err := newTestPipeline(revenueNeutral(150, 150, 300, 400), t.TempDir()).
		WithoutHousehold().
		WithChartStore(chartStore).
		Run(ctx)
	require.NoError(t, err)
	toRichest, err := newTestPipeline(revenueNeutral(100, 200, 350, 350), t.TempDir()).
		WithoutHousehold().
		WithChartStore(chartStore).
		Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, toPoorest.Summary.BudgetImpact, toRichest.Summary.BudgetImpact)
	assert.NotEqual(t, toPoorest.ReportID, toRichest.ReportID)

	ids, err := chartStore.ListReports(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	verifier := verification.NewVerifier(chartStore)
	result, err := verifier.VerifyReport(ctx, toRichest.ReportID, reporting.ChartRows(toRichest))
	require.NoError(t, err)
	assert.True(t, result.Match(), "divergences: %+v", result.Divergences)

	result, err = verifier.VerifyReport(ctx, toRichest.ReportID, reporting.ChartRows(toPoorest))
	require.NoError(t, err)
	assert.False(t, result.Match())
}

func TestImpactPipeline_NonFiniteIncome(t *testing.T) {
	p := staticDemo()
	income := findVector(DemoVectors(DemoDataset), domain.ScenarioBaseline, domain.VarHouseholdNetIncome, domain.AggregationPerson)
	require.NotNil(t, income)
	values := append([]float64(nil), income.Values...)
	values[0] = math.NaN()
	p.Set(domain.ScenarioBaseline, domain.VarHouseholdNetIncome, domain.AggregationPerson, values)
	dir := t.TempDir()

	report, err := newTestPipeline(p, dir).WithChartStore(memory.NewChartRowStore()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.DataQuality.ExcludedFromTotals)
	assert.False(t, report.DataQuality.AllChecksPassed)
	for _, d := range report.Deciles {
		assert.False(t, math.IsNaN(d.Change), "decile %d", d.Decile)
	}

	md, err := os.ReadFile(filepath.Join(dir, ReportFile))
	require.NoError(t, err)
	assert.Contains(t, string(md), "People left out of totals (NaN or infinite income): 1")
}
