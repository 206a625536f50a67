package impact

import (
	"math"
	"sort"

	"policy-impact-lab/internal/domain"
)

// NumDeciles is the number of income deciles.
const NumDeciles = 10

// safeRatio returns num / den, or 0 when the ratio is undefined.
// Zero is the single sentinel for undefined ratios across the package.
func safeRatio(num, den float64) float64 {
	if den == 0 || math.IsNaN(den) || math.IsInf(den, 0) || math.IsNaN(num) {
		return 0
	}
	r := num / den
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// PctChange returns (reform - baseline) / baseline, 0 when baseline is 0.
func PctChange(baseline, reform float64) float64 {
	return safeRatio(reform-baseline, baseline)
}

// finite reports whether v is neither NaN nor infinite. Engines use NaN for
// values they could not compute.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// usable reports whether entity i has finite baseline, reform and weight.
func usable(baseline, reform, weights []float64, i int) bool {
	return finite(baseline[i]) && finite(reform[i]) && finite(weightAt(weights, i))
}

// NonFinite counts entities whose baseline or reform value is NaN or
// infinite. They are left out of every weighted sum.
func NonFinite(baseline, reform []float64) int {
	n := 0
	for i := range baseline {
		if !finite(baseline[i]) || !finite(reform[i]) {
			n++
		}
	}
	return n
}

// weightAt returns weights[i], or 1 when no weights are supplied.
func weightAt(weights []float64, i int) float64 {
	if weights == nil {
		return 1
	}
	return weights[i]
}

// DecileRanks assigns each entity a decile 1..10 by ascending value.
// Entities are ordered by value then input index, NaN last; the decile of an
// entity is floor(10 * c / W) + 1 where c is the weight of all entities ranked
// before it and W the total weight. Nil or all-zero weights count every entity once, so
// deciles hold equal counts up to rounding.
func DecileRanks(values, weights []float64) []int {
	n := len(values)
	deciles := make([]int, n)
	if n == 0 {
		return deciles
	}

	total := 0.0
	if weights != nil {
		for _, w := range weights {
			if w > 0 && finite(w) {
				total += w
			}
		}
		if total == 0 {
			weights = nil
		}
	}
	if weights == nil {
		total = float64(n)
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		x, y := values[order[a]], values[order[b]]
		if math.IsNaN(x) {
			return false
		}
		return math.IsNaN(y) || x < y
	})

	cumulative := 0.0
	for _, idx := range order {
		d := int(math.Floor(NumDeciles*cumulative/total)) + 1
		if d > NumDeciles {
			d = NumDeciles
		}
		deciles[idx] = d
		if w := weightAt(weights, idx); w > 0 && finite(w) {
			cumulative += w
		}
	}
	return deciles
}

// DecileChanges computes the relative change in income per decile:
// sum(w * (reform - baseline)) / sum(w * baseline).
// Always returns NumDeciles rows in decile order; empty deciles report 0.
// Entities with a non-finite value or weight are skipped.
func DecileChanges(deciles []int, baseline, reform, weights []float64) []domain.DecileChange {
	rows := make([]domain.DecileChange, NumDeciles)
	gains := make([]float64, NumDeciles)
	for i := range rows {
		rows[i].Decile = i + 1
	}

	for i, d := range deciles {
		if d < 1 || d > NumDeciles || !usable(baseline, reform, weights, i) {
			continue
		}
		w := weightAt(weights, i)
		rows[d-1].BaselineTotal += w * baseline[i]
		rows[d-1].ReformTotal += w * reform[i]
		gains[d-1] += w * (reform[i] - baseline[i])
	}

	for i := range rows {
		rows[i].Change = safeRatio(gains[i], rows[i].BaselineTotal)
	}
	return rows
}

// GroupChanges computes the weighted relative change of a value per group,
// in domain.GroupOrder. groups[i] is the group of entity i. Entities with a
// non-finite value or weight are skipped.
func GroupChanges(groups []domain.Group, baseline, reform, weights []float64) []domain.GroupChange {
	rows := make([]domain.GroupChange, len(domain.GroupOrder))
	for gi, g := range domain.GroupOrder {
		row := domain.GroupChange{Group: g}
		for i, p := range groups {
			if !g.Contains(p) || !usable(baseline, reform, weights, i) {
				continue
			}
			w := weightAt(weights, i)
			row.Baseline += w * baseline[i]
			row.Reform += w * reform[i]
		}
		row.Change = PctChange(row.Baseline, row.Reform)
		rows[gi] = row
	}
	return rows
}

// PovertyRate returns the weighted share of a group flagged as in poverty.
// inPoverty holds the engine's 0/1 flag per person; the poverty line itself
// is the engine's concern. An empty group has rate 0. People with a
// non-finite flag or weight are left out of both numerator and denominator.
func PovertyRate(groups []domain.Group, inPoverty, weights []float64, group domain.Group) float64 {
	var poor, total float64
	for i, p := range groups {
		w := weightAt(weights, i)
		if !group.Contains(p) || !finite(inPoverty[i]) || !finite(w) {
			continue
		}
		total += w
		if inPoverty[i] > 0 {
			poor += w
		}
	}
	return safeRatio(poor, total)
}

// PovertyChanges returns the relative change in poverty rate per group in
// domain.GroupOrder. A group with a zero baseline rate reports 0 change.
func PovertyChanges(baselineRates, reformRates map[domain.Group]float64) []domain.GroupChange {
	rows := make([]domain.GroupChange, len(domain.GroupOrder))
	for i, g := range domain.GroupOrder {
		b, r := baselineRates[g], reformRates[g]
		rows[i] = domain.GroupChange{
			Group:    g,
			Baseline: b,
			Reform:   r,
			Change:   PctChange(b, r),
		}
	}
	return rows
}

// AssignGroups derives each person's group from the engine's membership flags.
// Children win over seniors; everyone else is counted as working-age.
func AssignGroups(isChild, isSenior []float64) []domain.Group {
	groups := make([]domain.Group, len(isChild))
	for i := range groups {
		switch {
		case isChild[i] > 0:
			groups[i] = domain.GroupChild
		case isSenior[i] > 0:
			groups[i] = domain.GroupSenior
		default:
			groups[i] = domain.GroupWorkingAge
		}
	}
	return groups
}
