package reporting

import (
	"fmt"
	"strings"
	"time"

	"policy-impact-lab/internal/domain"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Policy Impact Report\n\n")
	sb.WriteString(fmt.Sprintf("Report ID: `%s`\n\n", r.ReportID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Dataset: %s | Provider: %s\n\n", r.Dataset, r.Provider))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| People | %d |\n", r.Summary.People))
	sb.WriteString(fmt.Sprintf("| Baseline net income | %s |\n", FormatAmount(r.Summary.BaselineNetIncome)))
	sb.WriteString(fmt.Sprintf("| Reform net income | %s |\n", FormatAmount(r.Summary.ReformNetIncome)))
	sb.WriteString(fmt.Sprintf("| Budget impact | %s |\n", FormatAmount(r.Summary.BudgetImpact)))
	sb.WriteString(fmt.Sprintf("| Sweep points | %d |\n", r.Summary.SweepPoints))
	sb.WriteString("\n")

	// Data Quality
	sb.WriteString("## Data Quality\n\n")
	if len(r.DataQuality.MissingVariables) == 0 {
		sb.WriteString("**All variables provided.**\n\n")
	} else {
		sb.WriteString("### Missing Variables\n\n")
		for _, m := range r.DataQuality.MissingVariables {
			sb.WriteString(fmt.Sprintf("- %s\n", m))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("People excluded from change bands (zero baseline income): %d\n\n",
		r.DataQuality.ExcludedFromBands))
	if r.DataQuality.ExcludedFromTotals > 0 {
		sb.WriteString(fmt.Sprintf("People left out of totals (NaN or infinite income): %d\n\n",
			r.DataQuality.ExcludedFromTotals))
	}

	// Deciles
	sb.WriteString("## Income Change by Decile\n\n")
	if len(r.Deciles) > 0 {
		sb.WriteString("| Decile | Baseline | Reform | Change |\n")
		sb.WriteString("|--------|----------|--------|--------|\n")
		for _, d := range r.Deciles {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s |\n",
				d.Decile, FormatAmount(d.BaselineTotal), FormatAmount(d.ReformTotal),
				FormatSignedPercent(d.Change, 1)))
		}
	} else {
		sb.WriteString("No decile data available.\n")
	}
	sb.WriteString("\n")

	// Age groups
	sb.WriteString("## Income Change by Age Group\n\n")
	if len(r.AgeGroups) > 0 {
		sb.WriteString("| Group | Baseline | Reform | Change |\n")
		sb.WriteString("|-------|----------|--------|--------|\n")
		for _, g := range r.AgeGroups {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				g.Group.Label(), FormatAmount(g.BaselineTotal), FormatAmount(g.ReformTotal),
				FormatSignedPercent(g.Change, 1)))
		}
	} else {
		sb.WriteString("No age group data available.\n")
	}
	sb.WriteString("\n")

	// Poverty
	sb.WriteString("## Poverty\n\n")
	if len(r.Poverty) > 0 {
		sb.WriteString("| Group | Baseline Rate | Reform Rate | Change | |\n")
		sb.WriteString("|-------|---------------|-------------|--------|---|\n")
		for _, p := range r.Poverty {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
				p.Group.Label(), FormatPercent(p.BaselineRate, 1), FormatPercent(p.ReformRate, 1),
				FormatSignedPercent(p.Change, 1), p.Label))
		}
	} else {
		sb.WriteString("No poverty data available.\n")
	}
	sb.WriteString("\n")

	// Intra-decile
	sb.WriteString("## Winners and Losers\n\n")
	writeBandTable(&sb, r.IntraDecile)

	// Waterfalls
	sb.WriteString("## Budget Breakdown (population)\n\n")
	writeWaterfallTable(&sb, r.Waterfall)

	if r.Summary.SweepPoints > 0 {
		sb.WriteString("## Household Budget Breakdown\n\n")
		writeWaterfallTable(&sb, r.HouseholdWaterfall)

		sb.WriteString("## Household Net Income\n\n")
		writeCurveTable(&sb, "Employment income", "Net income", r.BudgetCurve, FormatAmount)

		sb.WriteString("## Marginal Tax Rate\n\n")
		writeCurveTable(&sb, "Employment income", "MTR", r.MTRCurve, func(v float64) string {
			return FormatPercent(v, 1)
		})
	}

	return sb.String()
}

// writeBandTable renders one row per decile with a column per band.
func writeBandTable(sb *strings.Builder, rows []BandRow) {
	if len(rows) == 0 {
		sb.WriteString("No band data available.\n\n")
		return
	}

	var bands, deciles []string
	seenBand := make(map[string]bool)
	seenDecile := make(map[string]bool)
	cells := make(map[string]string)
	for _, r := range rows {
		if !seenBand[r.Band] {
			seenBand[r.Band] = true
			bands = append(bands, r.Band)
		}
		if !seenDecile[r.Decile] {
			seenDecile[r.Decile] = true
			deciles = append(deciles, r.Decile)
		}
		cells[r.Decile+"|"+r.Band] = FormatPercent(r.Fraction, 0)
	}

	sb.WriteString("| Decile | " + strings.Join(bands, " | ") + " |\n")
	sb.WriteString("|--------|" + strings.Repeat("---|", len(bands)) + "\n")
	for _, d := range deciles {
		line := make([]string, len(bands))
		for i, b := range bands {
			line[i] = cells[d+"|"+b]
		}
		sb.WriteString(fmt.Sprintf("| %s | %s |\n", d, strings.Join(line, " | ")))
	}
	sb.WriteString("\n")
}

func writeWaterfallTable(sb *strings.Builder, w domain.WaterfallComparison) {
	if len(w.Baseline) == 0 && len(w.Reform) == 0 {
		sb.WriteString("No components available.\n\n")
		return
	}
	sb.WriteString("| Component | Baseline | Reform |\n")
	sb.WriteString("|-----------|----------|--------|\n")
	for i := range w.Baseline {
		reform := ""
		if i < len(w.Reform) {
			reform = signedBar(w.Reform[i])
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", w.Baseline[i].Label, signedBar(w.Baseline[i]), reform))
	}
	sb.WriteString("\n")
}

// signedBar shows a bar's contribution with its sign restored.
func signedBar(b domain.WaterfallBar) string {
	switch b.Category {
	case domain.BarLoss:
		return FormatAmount(-b.Height)
	case domain.BarFinal:
		if b.Floor < 0 {
			return FormatAmount(-b.Height)
		}
	}
	return FormatAmount(b.Height)
}

func writeCurveTable(sb *strings.Builder, xLabel, yLabel string, points []domain.CurvePoint, format func(float64) string) {
	if len(points) == 0 {
		sb.WriteString("No points available.\n\n")
		return
	}
	sb.WriteString(fmt.Sprintf("| %s | Baseline %s | Reform %s |\n", xLabel, yLabel, yLabel))
	sb.WriteString("|---|---|---|\n")
	for _, p := range points {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", FormatAmount(p.X), format(p.Baseline), format(p.Reform)))
	}
	sb.WriteString("\n")
}
