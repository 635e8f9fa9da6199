package order

import "github.com/shopspring/decimal"

var (
	hundred       = decimal.NewFromInt(100)
	minorCutoff   = decimal.NewFromInt(1000)
	wholeCutoff   = decimal.NewFromInt(100)
	refMultiplier = decimal.NewFromInt(50)

	// Tolerance absorbs float rounding noise in caller-submitted figures.
	Tolerance = decimal.New(1, -2) // 0.01
)

// round2 rounds to 2 decimal places, half up. Every derived monetary field
// goes through this at each step so rounding errors never compound across
// subtotal, tax, shipping, and total.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// NormalizeAmount converts a monetary value that may have been submitted in
// the minor currency unit (cents) into the major unit. The heuristic, first
// match wins:
//
//  1. a positive reference is given and v exceeds 50x the reference;
//  2. v is an integer >= 1000;
//  3. v is an integer > 100;
//
// in all three cases v is treated as minor-unit and divided by 100,
// otherwise it is returned as-is. The result is rounded to 2 decimal places.
//
// Integer amounts between 101 and 999 that are legitimate whole-unit prices
// are indistinguishable from minor-unit encodings here; that false-positive
// range is an accepted limitation of the heuristic, kept for compatibility
// with the payloads mobile clients historically sent.
func NormalizeAmount(v decimal.Decimal, ref *decimal.Decimal) decimal.Decimal {
	switch {
	case ref != nil && ref.IsPositive() && v.GreaterThan(ref.Mul(refMultiplier)):
		return round2(v.Div(hundred))
	case v.IsInteger() && v.GreaterThanOrEqual(minorCutoff):
		return round2(v.Div(hundred))
	case v.IsInteger() && v.GreaterThan(wholeCutoff):
		return round2(v.Div(hundred))
	default:
		return round2(v)
	}
}

// withinTolerance reports whether a and b differ by at most Tolerance.
func withinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}
