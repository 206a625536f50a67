package reporting

import (
	"fmt"
	"strings"

	"policy-impact-lab/internal/domain"
)

// RenderDecileCSV renders the decile, age group and poverty tables as one CSV.
func RenderDecileCSV(r *Report) string {
	var sb strings.Builder

	sb.WriteString("table,category,baseline,reform,change,label\n")
	for _, d := range r.Deciles {
		sb.WriteString(fmt.Sprintf("decile,%d,%.6f,%.6f,%.6f,%s\n",
			d.Decile, d.BaselineTotal, d.ReformTotal, d.Change, d.Label))
	}
	for _, g := range r.AgeGroups {
		sb.WriteString(fmt.Sprintf("group,%s,%.6f,%.6f,%.6f,%s\n",
			g.Group, g.BaselineTotal, g.ReformTotal, g.Change, g.Label))
	}
	for _, p := range r.Poverty {
		sb.WriteString(fmt.Sprintf("poverty,%s,%.6f,%.6f,%.6f,%s\n",
			p.Group, p.BaselineRate, p.ReformRate, p.Change, p.Label))
	}

	return sb.String()
}

// RenderBandCSV renders the intra-decile distribution.
func RenderBandCSV(rows []BandRow) string {
	var sb strings.Builder

	sb.WriteString("decile,band,count,fraction,hover\n")
	for _, b := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%.6f,%s\n", b.Decile, b.Band, b.Count, b.Fraction, b.Hover))
	}

	return sb.String()
}

// RenderWaterfallCSV renders waterfall bars for both scenarios of the
// population comparison and, when a sweep was run, the household one.
func RenderWaterfallCSV(r *Report) string {
	var sb strings.Builder

	sb.WriteString("comparison,scenario,seq,name,label,floor,height,category\n")
	writeBars(&sb, "population", domain.ScenarioBaseline, r.Waterfall.Baseline)
	writeBars(&sb, "population", domain.ScenarioReform, r.Waterfall.Reform)
	if r.Summary.SweepPoints > 0 {
		writeBars(&sb, "household", domain.ScenarioBaseline, r.HouseholdWaterfall.Baseline)
		writeBars(&sb, "household", domain.ScenarioReform, r.HouseholdWaterfall.Reform)
	}

	return sb.String()
}

func writeBars(sb *strings.Builder, comparison string, scenario domain.Scenario, bars []domain.WaterfallBar) {
	for i, b := range bars {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%s,%s,%.6f,%.6f,%s\n",
			comparison, scenario, i, b.Name, b.Label, b.Floor, b.Height, b.Category))
	}
}

// RenderCurveCSV renders the household budget and MTR curves.
// The MTR column is empty at the last sweep point.
func RenderCurveCSV(budget, mtr []domain.CurvePoint) string {
	var sb strings.Builder

	sb.WriteString("employment_income,baseline_net_income,reform_net_income,baseline_mtr,reform_mtr\n")
	for i, p := range budget {
		if i < len(mtr) {
			sb.WriteString(fmt.Sprintf("%.2f,%.2f,%.2f,%.6f,%.6f\n",
				p.X, p.Baseline, p.Reform, mtr[i].Baseline, mtr[i].Reform))
			continue
		}
		sb.WriteString(fmt.Sprintf("%.2f,%.2f,%.2f,,\n", p.X, p.Baseline, p.Reform))
	}

	return sb.String()
}
