package domain

import "math"

// Group is the age category a person is reported under.
type Group string

// Group constants
const (
	GroupChild      Group = "child"
	GroupWorkingAge Group = "working-age"
	GroupSenior     Group = "senior"
	GroupAll        Group = "all" // synthetic whole-population category
)

// GroupOrder is the fixed reporting order used for chart axes.
var GroupOrder = []Group{GroupChild, GroupWorkingAge, GroupSenior, GroupAll}

// Label returns the display name of the group.
func (g Group) Label() string {
	switch g {
	case GroupChild:
		return "Child"
	case GroupWorkingAge:
		return "Working-age"
	case GroupSenior:
		return "Senior"
	case GroupAll:
		return "All"
	default:
		return string(g)
	}
}

// Contains reports whether a person in group p is counted under g.
func (g Group) Contains(p Group) bool {
	return g == GroupAll || g == p
}

// PersonRecord is one row of the person-level result table.
type PersonRecord struct {
	ID                string  // stable person identifier (index when the engine has none)
	Income            float64 // household net income mapped to the person
	EquivalisedIncome float64 // household net income adjusted for composition
	Group             Group   // child | working-age | senior
	Decile            int     // 1..10 by equivalised income rank
	Weight            float64 // survey weight, 1 when unweighted
}

// ChangeVector pairs a baseline and reform value for one entity.
type ChangeVector struct {
	Baseline float64
	Reform   float64
}

// Delta returns reform minus baseline.
func (c ChangeVector) Delta() float64 {
	return c.Reform - c.Baseline
}

// RelativeDelta returns delta / baseline.
// The second result is false when the ratio is undefined: baseline is zero
// or non-finite, or reform is NaN.
func (c ChangeVector) RelativeDelta() (float64, bool) {
	if c.Baseline == 0 || math.IsNaN(c.Baseline) || math.IsInf(c.Baseline, 0) || math.IsNaN(c.Reform) {
		return 0, false
	}
	rel := c.Delta() / c.Baseline
	if math.IsNaN(rel) || math.IsInf(rel, 0) {
		return 0, false
	}
	return rel, true
}
