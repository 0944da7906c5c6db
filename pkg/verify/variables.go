package verify

import (
	"encoding/json"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/lemonberrylabs/formula-verifier/pkg/formula"
	"github.com/lemonberrylabs/formula-verifier/pkg/types"
)

var validVariableName = regexp.MustCompile(`^[_A-Za-z][_A-Za-z0-9]*$`)

// ToNumber converts a decoded JSON/YAML value into a finite float64.
// Numeric strings are accepted; booleans and non-finite values are not.
func ToNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ValidateVariables turns step variables into a binding environment.
// Invalid names and non-numeric values are reported and left unbound.
// Variables that the problem also gives must agree with the given value.
func ValidateVariables(vars map[string]any, given formula.Env, tol float64) (formula.Env, []types.Issue) {
	bindings := make(formula.Env, len(vars))
	var issues []types.Issue

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !validVariableName.MatchString(name) {
			issues = append(issues, types.NewIssue(types.KindInvalidVariableName, "Invalid variable name: %s", name))
			continue
		}
		v, ok := ToNumber(vars[name])
		if !ok {
			issues = append(issues, types.NewIssue(types.KindVariableNotNumeric, "Variable %s must be numeric", name))
			continue
		}
		bindings[name] = v
	}

	givenNames := make([]string, 0, len(given))
	for name := range given {
		givenNames = append(givenNames, name)
	}
	sort.Strings(givenNames)

	for _, name := range givenNames {
		v, ok := bindings[name]
		if !ok {
			continue
		}
		if want := given[name]; !formula.ApproxEqualTol(v, want, tol) {
			issues = append(issues, types.NewIssue(types.KindWrongVariableValue,
				"Variable %s should be %s but is %s", name, fmtNum(want), fmtNum(v)))
		}
	}

	return bindings, issues
}

func fmtNum(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
