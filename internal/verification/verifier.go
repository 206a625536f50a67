// Package verification checks that stored chart rows match a fresh
// computation of the same report.
package verification

import (
	"context"
	"fmt"
	"math"
	"sort"

	"policy-impact-lab/internal/domain"
	"policy-impact-lab/internal/storage"
)

// FloatTolerance is the tolerance for chart values.
const FloatTolerance = 1e-7

// FieldDivergence is one mismatch between a stored and a recomputed row.
type FieldDivergence struct {
	Key      string      // chart|series|seq
	Field    string      // Value, Category, Type, Hover, or Row for a missing row
	Expected interface{} // stored value
	Actual   interface{} // recomputed value
}

// VerificationReport summarises one report verification.
type VerificationReport struct {
	ReportID    string
	StoredRows  int
	MatchedRows int
	Divergences []FieldDivergence
}

// Match reports whether every row matched.
func (r *VerificationReport) Match() bool {
	return len(r.Divergences) == 0
}

// Verifier compares recomputed chart rows with a ChartRowStore.
type Verifier struct {
	store storage.ChartRowStore
}

// NewVerifier creates a verifier reading from store.
func NewVerifier(store storage.ChartRowStore) *Verifier {
	return &Verifier{store: store}
}

// VerifyReport loads the stored rows of reportID and compares them with
// recomputed. Returns storage.ErrNotFound if nothing is stored for reportID.
func (v *Verifier) VerifyReport(ctx context.Context, reportID string, recomputed []*domain.ChartRow) (*VerificationReport, error) {
	stored, err := v.store.GetByReport(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("load chart rows: %w", err)
	}
	if len(stored) == 0 {
		return nil, storage.ErrNotFound
	}

	report := &VerificationReport{
		ReportID:   reportID,
		StoredRows: len(stored),
	}

	fresh := make(map[string]*domain.ChartRow, len(recomputed))
	for _, r := range recomputed {
		fresh[rowKey(r)] = r
	}

	seen := make(map[string]bool, len(stored))
	for _, s := range stored {
		key := rowKey(s)
		seen[key] = true
		r, ok := fresh[key]
		if !ok {
			report.Divergences = append(report.Divergences, FieldDivergence{
				Key: key, Field: "Row", Expected: "present", Actual: "missing",
			})
			continue
		}
		d := CompareChartRows(s, r)
		if len(d) == 0 {
			report.MatchedRows++
			continue
		}
		report.Divergences = append(report.Divergences, d...)
	}

	var extra []string
	for key := range fresh {
		if !seen[key] {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		report.Divergences = append(report.Divergences, FieldDivergence{
			Key: key, Field: "Row", Expected: "missing", Actual: "present",
		})
	}

	return report, nil
}

// CompareChartRows compares two rows with the same key.
// Values are compared within FloatTolerance.
func CompareChartRows(stored, recomputed *domain.ChartRow) []FieldDivergence {
	var divergences []FieldDivergence
	key := rowKey(stored)

	if !floatEquals(stored.Value, recomputed.Value) {
		divergences = append(divergences, FieldDivergence{
			Key: key, Field: "Value", Expected: stored.Value, Actual: recomputed.Value,
		})
	}
	if stored.Category != recomputed.Category {
		divergences = append(divergences, FieldDivergence{
			Key: key, Field: "Category", Expected: stored.Category, Actual: recomputed.Category,
		})
	}
	if stored.Type != recomputed.Type {
		divergences = append(divergences, FieldDivergence{
			Key: key, Field: "Type", Expected: stored.Type, Actual: recomputed.Type,
		})
	}
	if stored.Hover != recomputed.Hover {
		divergences = append(divergences, FieldDivergence{
			Key: key, Field: "Hover", Expected: stored.Hover, Actual: recomputed.Hover,
		})
	}

	return divergences
}

func rowKey(r *domain.ChartRow) string {
	return fmt.Sprintf("%s|%s|%d", r.Chart, r.Series, r.Seq)
}

// floatEquals compares two float64 values within FloatTolerance.
// NaN equals NaN so that a stored NaN does not diverge from itself.
func floatEquals(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return math.Abs(a-b) <= FloatTolerance
}
