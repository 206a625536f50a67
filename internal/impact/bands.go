package impact

import (
	"math"
	"strconv"

	"policy-impact-lab/internal/domain"
)

// Band is a named interval of relative income change.
// A value x belongs to the band when Lower < x <= Upper.
type Band struct {
	Name  string
	Lower float64 // exclusive, -Inf for the lowest band
	Upper float64 // inclusive, +Inf for the highest band
}

// Contains reports whether x falls inside the band.
func (b Band) Contains(x float64) bool {
	return x > b.Lower && x <= b.Upper
}

// Band names
const (
	BandGainMore = "Gain more than 5%"
	BandGainLess = "Gain less than 5%"
	BandNoChange = "No change"
	BandLoseLess = "Lose less than 5%"
	BandLoseMore = "Lose more than 5%"
)

// DefaultBands returns the five gain/loss bands, gains first.
// Together they cover every finite value exactly once.
func DefaultBands() []Band {
	return []Band{
		{Name: BandGainMore, Lower: 0.05, Upper: math.Inf(1)},
		{Name: BandGainLess, Lower: 1e-3, Upper: 0.05},
		{Name: BandNoChange, Lower: -1e-3, Upper: 1e-3},
		{Name: BandLoseLess, Lower: -0.05, Upper: -1e-3},
		{Name: BandLoseMore, Lower: math.Inf(-1), Upper: -0.05},
	}
}

// ClassifyBand returns the index of the band holding x.
// Returns false for NaN or when no band matches.
func ClassifyBand(bands []Band, x float64) (int, bool) {
	if math.IsNaN(x) {
		return 0, false
	}
	for i, b := range bands {
		if b.Contains(x) {
			return i, true
		}
	}
	return 0, false
}

// IntraDecileDistribution computes, for every band and every decile plus the
// whole population, the fraction of entities whose relative change falls in
// the band. Entities with valid[i] == false are excluded entirely.
//
// Rows are ordered by band, then deciles "1".."10", then "All". A decile with
// no valid entities reports 0 for every band.
func IntraDecileDistribution(deciles []int, relative []float64, valid []bool, bands []Band) []domain.BandFraction {
	// counts[d][b]; d == 0 is the whole population
	counts := make([][]int, NumDeciles+1)
	for d := range counts {
		counts[d] = make([]int, len(bands))
	}
	totals := make([]int, NumDeciles+1)

	for i, d := range deciles {
		if !valid[i] || d < 1 || d > NumDeciles {
			continue
		}
		b, ok := ClassifyBand(bands, relative[i])
		if !ok {
			continue
		}
		counts[d][b]++
		counts[0][b]++
		totals[d]++
		totals[0]++
	}

	rows := make([]domain.BandFraction, 0, len(bands)*(NumDeciles+1))
	for b, band := range bands {
		for d := 1; d <= NumDeciles; d++ {
			rows = append(rows, domain.BandFraction{
				Decile:   strconv.Itoa(d),
				Band:     band.Name,
				Count:    counts[d][b],
				Fraction: safeRatio(float64(counts[d][b]), float64(totals[d])),
			})
		}
		rows = append(rows, domain.BandFraction{
			Decile:   domain.DecileAll,
			Band:     band.Name,
			Count:    counts[0][b],
			Fraction: safeRatio(float64(counts[0][b]), float64(totals[0])),
		})
	}
	return rows
}

// RelativeChanges returns per-entity relative changes, a validity mask and
// the number of entities whose change is undefined.
func RelativeChanges(baseline, reform []float64) ([]float64, []bool, int) {
	relative := make([]float64, len(baseline))
	valid := make([]bool, len(baseline))
	excluded := 0
	for i := range baseline {
		cv := domain.ChangeVector{Baseline: baseline[i], Reform: reform[i]}
		relative[i], valid[i] = cv.RelativeDelta()
		if !valid[i] {
			excluded++
		}
	}
	return relative, valid, excluded
}
