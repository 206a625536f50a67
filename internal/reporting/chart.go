package reporting

import (
	"encoding/json"
	"fmt"
	"strconv"

	"policy-impact-lab/internal/domain"
)

// Chart names used in exported rows.
const (
	ChartDecile            = "decile"
	ChartGroupIncome       = "group_income"
	ChartPoverty           = "poverty"
	ChartIntraDecile       = "intra_decile"
	ChartWaterfallBaseline = "waterfall_baseline"
	ChartWaterfallReform   = "waterfall_reform"
	ChartHouseholdBaseline = "household_waterfall_baseline"
	ChartHouseholdReform   = "household_waterfall_reform"
	ChartBudgetCurve       = "budget_curve"
	ChartMTRCurve          = "mtr_curve"
)

// ChartRows flattens a report into category/value tuples for a rendering
// layer. Seq restarts at 0 for every (chart, series) pair, so rows are unique
// per (report, chart, series, seq). Non-finite values are exported as 0,
// since JSON has no NaN.
func ChartRows(r *Report) []*domain.ChartRow {
	var rows []*domain.ChartRow
	add := func(chart, series string, seq int, category string, value float64, typ, hover string) {
		if !finite(value) {
			value = 0
		}
		rows = append(rows, &domain.ChartRow{
			ReportID: r.ReportID,
			Chart:    chart,
			Series:   series,
			Seq:      seq,
			Category: category,
			Value:    value,
			Type:     typ,
			Hover:    hover,
		})
	}

	for i, d := range r.Deciles {
		typ := string(domain.BarGain)
		if d.Change < 0 {
			typ = string(domain.BarLoss)
		}
		add(ChartDecile, "change", i, strconv.Itoa(d.Decile), d.Change, typ, d.Label)
	}

	for i, g := range r.AgeGroups {
		typ := string(domain.BarGain)
		if g.Change < 0 {
			typ = string(domain.BarLoss)
		}
		add(ChartGroupIncome, "change", i, g.Group.Label(), g.Change, typ, g.Label)
	}

	for i, p := range r.Poverty {
		add(ChartPoverty, "change", i, p.Group.Label(), p.Change, "", p.Label)
	}

	// one series per band, seq follows the decile axis
	seq := make(map[string]int)
	for _, b := range r.IntraDecile {
		add(ChartIntraDecile, b.Band, seq[b.Band], b.Decile, b.Fraction, b.Band, b.Hover)
		seq[b.Band]++
	}

	addBars := func(chart string, bars []domain.WaterfallBar) {
		for i, b := range bars {
			add(chart, "floor", i, b.Label, b.Floor, string(b.Category), "")
			add(chart, "height", i, b.Label, b.Height, string(b.Category), "")
		}
	}
	addBars(ChartWaterfallBaseline, r.Waterfall.Baseline)
	addBars(ChartWaterfallReform, r.Waterfall.Reform)

	if r.Summary.SweepPoints > 0 {
		addBars(ChartHouseholdBaseline, r.HouseholdWaterfall.Baseline)
		addBars(ChartHouseholdReform, r.HouseholdWaterfall.Reform)

		addCurve := func(chart string, points []domain.CurvePoint) {
			for i, p := range points {
				x := FormatAmount(p.X)
				add(chart, string(domain.ScenarioBaseline), i, x, p.Baseline, "", "")
				add(chart, string(domain.ScenarioReform), i, x, p.Reform, "", "")
			}
		}
		addCurve(ChartBudgetCurve, r.BudgetCurve)
		addCurve(ChartMTRCurve, r.MTRCurve)
	}

	return rows
}

type chartRowJSON struct {
	Chart    string  `json:"chart"`
	Series   string  `json:"series"`
	Seq      int     `json:"seq"`
	Category string  `json:"category"`
	Value    float64 `json:"value"`
	Type     string  `json:"type,omitempty"`
	Hover    string  `json:"hover,omitempty"`
}

type chartFileJSON struct {
	ReportID string         `json:"report_id"`
	Rows     []chartRowJSON `json:"rows"`
}

// RenderChartJSON renders chart rows as indented JSON under one report id.
func RenderChartJSON(reportID string, rows []*domain.ChartRow) ([]byte, error) {
	file := chartFileJSON{
		ReportID: reportID,
		Rows:     make([]chartRowJSON, 0, len(rows)),
	}
	for _, r := range rows {
		file.Rows = append(file.Rows, chartRowJSON{
			Chart:    r.Chart,
			Series:   r.Series,
			Seq:      r.Seq,
			Category: r.Category,
			Value:    r.Value,
			Type:     r.Type,
			Hover:    r.Hover,
		})
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal chart rows: %w", err)
	}
	return data, nil
}
