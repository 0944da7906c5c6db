// Package verify checks calculation steps written as formulas against
// numeric bindings, and grades multi-step solutions.
//
// A step is classified in priority order:
//
//  1. no '=': the expression is evaluated and any claimed result must
//     match it;
//  2. no unknowns: both sides are evaluated and must balance, and a
//     claimed result must match either side;
//  3. one unknown standing alone on one side: the other side resolves it,
//     and a claimed result must match;
//  4. anything else is reported as InsufficientVariables. Verification
//     never solves symbolically; see formula.Isolate for rearrangement.
package verify

import (
	"sort"
	"strings"

	"github.com/lemonberrylabs/formula-verifier/pkg/formula"
	"github.com/lemonberrylabs/formula-verifier/pkg/types"
)

// Step is one submitted calculation step.
type Step struct {
	Formula   string         `json:"formula" yaml:"formula" validate:"required"`
	Variables map[string]any `json:"variables,omitempty" yaml:"variables,omitempty"`
	Result    *float64       `json:"result,omitempty" yaml:"result,omitempty"`
}

// Options configures verification.
type Options struct {
	// Given holds the problem's canonical values; step variables with the
	// same name must agree with them.
	Given formula.Env
	// Constants holds branch-level constants such as g or c. Step
	// variables shadow them.
	Constants formula.Env
	// Tolerance is the relative tolerance; 0 means formula.DefaultTolerance.
	Tolerance float64
}

// VerdictKind classifies the outcome of a step.
type VerdictKind string

const (
	VerdictBalanced         VerdictKind = "Balanced"
	VerdictResolved         VerdictKind = "Resolved"
	VerdictInsufficientInfo VerdictKind = "InsufficientInfo"
	VerdictInvalid          VerdictKind = "Invalid"
)

// Verdict is the overall outcome of a step. Value and Unknown are set for
// Resolved; Reason is set for Invalid and InsufficientInfo.
type Verdict struct {
	Kind    VerdictKind `json:"kind" yaml:"kind"`
	Value   *float64    `json:"value,omitempty" yaml:"value,omitempty"`
	Unknown string      `json:"unknown,omitempty" yaml:"unknown,omitempty"`
	Reason  string      `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Values carries the numbers computed for display.
type Values struct {
	LHS  *float64 `json:"lhsVal" yaml:"lhsVal"`
	RHS  *float64 `json:"rhsVal" yaml:"rhsVal"`
	Expr *float64 `json:"exprVal" yaml:"exprVal"`
}

// Primary returns the step's headline value: the expression value, else
// the right side, else the left side.
func (v Values) Primary() (float64, bool) {
	for _, p := range []*float64{v.Expr, v.RHS, v.LHS} {
		if p != nil {
			return *p, true
		}
	}
	return 0, false
}

// StepResult is the outcome of verifying one step.
type StepResult struct {
	OK      bool          `json:"ok" yaml:"ok"`
	Verdict Verdict       `json:"verdict" yaml:"verdict"`
	Issues  []types.Issue `json:"issues" yaml:"issues"`
	Values  Values        `json:"values" yaml:"values"`
}

// VerifyStep verifies a single step. When the formula cannot be parsed the
// result holds only the parse issue.
func VerifyStep(step Step, opts Options) StepResult {
	f, err := formula.Parse(step.Formula)
	if err != nil {
		issue := types.IssueFromError(err)
		return StepResult{
			Verdict: Verdict{Kind: VerdictInvalid, Reason: issue.Message},
			Issues:  []types.Issue{issue},
		}
	}

	bindings, issues := ValidateVariables(step.Variables, opts.Given, opts.Tolerance)
	v := &stepVerifier{
		scope:  formula.Chain(bindings, opts.Constants),
		tol:    opts.Tolerance,
		result: step.Result,
		issues: issues,
	}

	if f.IsEquation() {
		v.verifyEquation(f)
	} else {
		v.verifyExpression(f)
	}
	return v.finish()
}

// stepVerifier accumulates issues and values for one step.
type stepVerifier struct {
	scope  formula.Scope
	tol    float64
	result *float64
	issues []types.Issue
	values Values
	// outcome when no issue is raised
	verdict Verdict
}

func (v *stepVerifier) addIssue(kind types.Kind, format string, args ...any) {
	v.issues = append(v.issues, types.NewIssue(kind, format, args...))
}

func (v *stepVerifier) eval(node formula.Node) (*float64, bool) {
	val, err := formula.Evaluate(node, v.scope)
	if err != nil {
		v.issues = append(v.issues, types.IssueFromError(err))
		return nil, false
	}
	return &val, true
}

func (v *stepVerifier) matches(a, b float64) bool {
	return formula.ApproxEqualTol(a, b, v.tol)
}

func (v *stepVerifier) verifyExpression(f *formula.Formula) {
	val, ok := v.eval(f.Expr)
	if !ok {
		return
	}
	v.values.Expr = val
	v.verdict = Verdict{Kind: VerdictResolved, Value: val}
	if v.result != nil && !v.matches(*val, *v.result) {
		v.addIssue(types.KindResultMismatch, "Provided result %s does not match evaluated %s", fmtNum(*v.result), fmtNum(*val))
	}
}

func (v *stepVerifier) verifyEquation(f *formula.Formula) {
	// Resolved per side so a name needed on one side only is not
	// misclassified by the other.
	unknownL := formula.Unknowns(f.LHS, v.scope)
	unknownR := formula.Unknowns(f.RHS, v.scope)
	unknowns := union(unknownL, unknownR)

	switch len(unknowns) {
	case 0:
		v.verifyBalance(f)
	case 1:
		unk := unknowns[0]
		switch {
		case isBare(f.LHS, unk) && len(unknownR) == 0:
			v.resolve(unk, f.RHS, &v.values.RHS)
		case isBare(f.RHS, unk) && len(unknownL) == 0:
			v.resolve(unk, f.LHS, &v.values.LHS)
		default:
			v.addIssue(types.KindInsufficientVariables,
				"Provide all but one variable and isolate the unknown %s on one side (e.g., %s = ...)", unk, unk)
		}
	default:
		v.addIssue(types.KindInsufficientVariables,
			"Too many unknown variables to evaluate this step: %s", strings.Join(unknowns, ", "))
	}
}

func (v *stepVerifier) verifyBalance(f *formula.Formula) {
	lhs, okL := v.eval(f.LHS)
	rhs, okR := v.eval(f.RHS)
	v.values.LHS, v.values.RHS = lhs, rhs
	if !okL || !okR {
		return
	}

	if !v.matches(*lhs, *rhs) {
		v.addIssue(types.KindEquationNotBalanced, "Left (%s) not equal to Right (%s)", fmtNum(*lhs), fmtNum(*rhs))
	}
	if v.result != nil && !v.matches(*rhs, *v.result) && !v.matches(*lhs, *v.result) {
		v.addIssue(types.KindResultMismatch, "Provided result %s does not match evaluated value", fmtNum(*v.result))
	}
	v.verdict = Verdict{Kind: VerdictBalanced}
}

func (v *stepVerifier) resolve(unknown string, known formula.Node, slot **float64) {
	val, ok := v.eval(known)
	if !ok {
		return
	}
	*slot = val
	v.verdict = Verdict{Kind: VerdictResolved, Value: val, Unknown: unknown}
	if v.result != nil && !v.matches(*val, *v.result) {
		v.addIssue(types.KindResultMismatch, "Result for %s should be %s but got %s", unknown, fmtNum(*val), fmtNum(*v.result))
	}
}

func (v *stepVerifier) finish() StepResult {
	res := StepResult{
		OK:     len(v.issues) == 0,
		Issues: v.issues,
		Values: v.values,
	}
	if res.Issues == nil {
		res.Issues = []types.Issue{}
	}

	switch {
	case res.OK:
		res.Verdict = v.verdict
	case onlyKind(res.Issues, types.KindInsufficientVariables):
		res.Verdict = Verdict{Kind: VerdictInsufficientInfo, Reason: res.Issues[0].Message}
	default:
		res.Verdict = Verdict{Kind: VerdictInvalid, Reason: firstNotOf(res.Issues, types.KindInsufficientVariables).Message}
	}
	return res
}

func isBare(node formula.Node, name string) bool {
	v, ok := node.(*formula.VariableNode)
	return ok && v.Name == name
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func onlyKind(issues []types.Issue, kind types.Kind) bool {
	for _, is := range issues {
		if is.Kind != kind {
			return false
		}
	}
	return len(issues) > 0
}

func firstNotOf(issues []types.Issue, kind types.Kind) types.Issue {
	for _, is := range issues {
		if is.Kind != kind {
			return is
		}
	}
	return issues[0]
}
