package reporting

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"policy-impact-lab/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// NotAvailable is rendered in place of a NaN or infinite value.
const NotAvailable = "n/a"

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FormatPercent renders a ratio as a percentage with fixed places,
// rounding half away from zero: FormatPercent(0.0125, 1) == "1.3%".
func FormatPercent(ratio float64, places int32) string {
	if !finite(ratio) {
		return NotAvailable
	}
	return decimal.NewFromFloat(ratio).Mul(hundred).StringFixed(places) + "%"
}

// FormatSignedPercent is FormatPercent with an explicit "+" for gains.
func FormatSignedPercent(ratio float64, places int32) string {
	s := FormatPercent(ratio, places)
	if finite(ratio) && decimal.NewFromFloat(ratio).Mul(hundred).Round(places).IsPositive() {
		return "+" + s
	}
	return s
}

// FormatAmount renders a currency amount rounded to whole units.
func FormatAmount(v float64) string {
	if !finite(v) {
		return NotAvailable
	}
	return decimal.NewFromFloat(v).StringFixed(0)
}

// PovertyLabel describes a poverty rate change, e.g. "Child poverty falls 1.2%".
// The whole population is called "Total". A change that rounds to 0.0% does
// not change.
func PovertyLabel(g domain.Group, change float64) string {
	name := g.Label()
	if g == domain.GroupAll {
		name = "Total"
	}

	magnitude := FormatPercent(math.Abs(change), 1)
	if magnitude == NotAvailable {
		return name + " poverty change not available"
	}
	if magnitude == "0.0%" {
		return name + " poverty does not change"
	}
	verb := "rises"
	if change < 0 {
		verb = "falls"
	}
	return fmt.Sprintf("%s poverty %s %s", name, verb, magnitude)
}

// DecileLabel describes a decile change, e.g. "Decile 3: +1.2%".
func DecileLabel(decile int, change float64) string {
	return fmt.Sprintf("Decile %d: %s", decile, FormatSignedPercent(change, 1))
}

// GroupIncomeLabel describes an age group's income change, e.g.
// "Child income: +1.2%". The whole population is called "Total".
func GroupIncomeLabel(g domain.Group, change float64) string {
	name := g.Label()
	if g == domain.GroupAll {
		name = "Total"
	}
	return fmt.Sprintf("%s income: %s", name, FormatSignedPercent(change, 1))
}

var bandVerbs = map[string]string{
	"Gain more than 5%": "gain more than 5%",
	"Gain less than 5%": "gain less than 5%",
	"No change":         "experience no change",
	"Lose less than 5%": "lose less than 5%",
	"Lose more than 5%": "lose more than 5%",
}

// BandHover describes one banded fraction, e.g.
// "25% of decile 3 gain more than 5%" or "10% of all people experience no change".
func BandHover(decile, band string, fraction float64) string {
	who := "decile " + decile
	if decile == domain.DecileAll {
		who = "all people"
	}
	verb, ok := bandVerbs[band]
	if !ok {
		verb = band
	}
	return fmt.Sprintf("%s of %s %s", FormatPercent(fraction, 0), who, verb)
}
