package domain

// Polarity says whether a component adds to or subtracts from income.
type Polarity string

// Polarity constants
const (
	PolarityGain Polarity = "Gain"
	PolarityLoss Polarity = "Loss"
)

// BarCategory tags a waterfall bar for colouring.
type BarCategory string

// BarCategory constants
const (
	BarGain  BarCategory = "Gain"
	BarLoss  BarCategory = "Loss"
	BarFinal BarCategory = "Final"
)

// ComponentContribution is a named income, tax or benefit amount.
// Amount is as reported by the engine; Polarity decides its sign.
type ComponentContribution struct {
	Name     string
	Amount   float64
	Polarity Polarity
}

// Signed returns the amount with polarity applied.
func (c ComponentContribution) Signed() float64 {
	if c.Polarity == PolarityLoss {
		return -c.Amount
	}
	return c.Amount
}

// WaterfallBar is one positioned bar. It spans [Floor, Floor+Height].
type WaterfallBar struct {
	Name     string
	Label    string
	Floor    float64
	Height   float64 // always >= 0
	Category BarCategory
}

// Top returns the upper edge of the bar.
func (b WaterfallBar) Top() float64 {
	return b.Floor + b.Height
}

// WaterfallComparison holds baseline and reform waterfalls on one axis.
type WaterfallComparison struct {
	Components []string // shared axis, excluding the final total
	Baseline   []WaterfallBar
	Reform     []WaterfallBar
	Min        float64 // shared value-axis extent
	Max        float64
}
