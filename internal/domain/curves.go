package domain

// CurvePoint is one x position with a baseline and reform value.
type CurvePoint struct {
	X        float64
	Baseline float64
	Reform   float64
}
