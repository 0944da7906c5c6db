package formula

import (
	"math"
	"sort"

	"github.com/lemonberrylabs/formula-verifier/pkg/types"
)

// MathFunc is a whitelisted single-argument function.
type MathFunc func(x float64) (float64, error)

// functions is the complete set of callable names. Nothing outside this
// table can be invoked from a formula.
var functions = map[string]MathFunc{
	"sqrt": mathSqrt,
	"sin":  plain(math.Sin),
	"cos":  plain(math.Cos),
	"tan":  plain(math.Tan),
	"asin": unitDomain("asin", math.Asin),
	"acos": unitDomain("acos", math.Acos),
	"atan": plain(math.Atan),
}

// IsFunction reports whether name is a whitelisted function.
func IsFunction(name string) bool {
	_, ok := functions[name]
	return ok
}

// Functions returns the whitelisted function names in sorted order.
func Functions() []string {
	names := make([]string, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func plain(fn func(float64) float64) MathFunc {
	return func(x float64) (float64, error) {
		return fn(x), nil
	}
}

func mathSqrt(x float64) (float64, error) {
	if x < 0 {
		return 0, types.NewMathDomainError("sqrt", x)
	}
	return math.Sqrt(x), nil
}

// unitDomain wraps functions defined only on [-1, 1].
func unitDomain(name string, fn func(float64) float64) MathFunc {
	return func(x float64) (float64, error) {
		if x < -1 || x > 1 {
			return 0, types.NewMathDomainError(name, x)
		}
		return fn(x), nil
	}
}
