package formula

import "math"

// DefaultTolerance is the relative tolerance used by ApproxEqual.
const DefaultTolerance = 1e-6

// ApproxEqual reports whether a and b agree within DefaultTolerance,
// scaled by max(1, |a|, |b|).
func ApproxEqual(a, b float64) bool {
	return ApproxEqualTol(a, b, DefaultTolerance)
}

// ApproxEqualTol is ApproxEqual with an explicit tolerance. A tolerance
// <= 0 selects DefaultTolerance. Non-finite values never compare equal.
func ApproxEqualTol(a, b, tol float64) bool {
	if !isFinite(a) || !isFinite(b) {
		return false
	}
	if tol <= 0 {
		tol = DefaultTolerance
	}
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= tol*scale
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
