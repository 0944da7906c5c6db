// Package types holds the issue taxonomy shared by the formula engine,
// the verifier and the transports.
package types

import (
	"errors"
	"fmt"
)

// Kind tags a verification failure.
type Kind string

// Issue kinds. The JSON form is the Kind string itself.
const (
	KindEmptyFormula          Kind = "EmptyFormula"
	KindInvalidCharacter      Kind = "InvalidCharacter"
	KindUnbalancedParentheses Kind = "UnbalancedParentheses"
	KindMalformedExpression   Kind = "MalformedExpression"
	KindUnboundVariable       Kind = "UnboundVariable"
	KindDivisionByZero        Kind = "DivisionByZero"
	KindMathDomainError       Kind = "MathDomainError"
	KindNonFiniteResult       Kind = "NonFiniteResult"
	KindResultMismatch        Kind = "ResultMismatch"
	KindEquationNotBalanced   Kind = "EquationNotBalanced"
	KindInsufficientVariables Kind = "InsufficientVariables"
	KindVariableNotNumeric    Kind = "VariableNotNumeric"
	KindInvalidVariableName   Kind = "InvalidVariableName"
	KindWrongVariableValue    Kind = "WrongVariableValue"
	KindNoSteps               Kind = "NoSteps"
	KindFinalAnswerIncorrect  Kind = "FinalAnswerIncorrect"
	KindCheatingSuspected     Kind = "CheatingSuspected"
	KindInternal              Kind = "Internal"
)

// IsParseKind reports whether k is produced when no AST can be built.
func (k Kind) IsParseKind() bool {
	switch k {
	case KindEmptyFormula, KindInvalidCharacter, KindUnbalancedParentheses, KindMalformedExpression:
		return true
	}
	return false
}

// FormulaError is an error raised while parsing or evaluating a formula.
type FormulaError struct {
	Kind    Kind
	Message string
	Pos     int // byte offset in the normalized formula, -1 when unknown
}

// Error implements the error interface.
func (e *FormulaError) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("%s: %s (position %d)", e.Kind, e.Message, e.Pos)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches another *FormulaError with the same Kind, so callers can
// write errors.Is(err, &FormulaError{Kind: KindDivisionByZero}).
func (e *FormulaError) Is(target error) bool {
	var t *FormulaError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf extracts the Kind of err, or KindInternal when err is not a
// *FormulaError.
func KindOf(err error) Kind {
	var fe *FormulaError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInternal
}

// Common error constructors.

// NewEmptyFormulaError creates an EmptyFormula error.
func NewEmptyFormulaError() *FormulaError {
	return &FormulaError{Kind: KindEmptyFormula, Message: "empty formula", Pos: -1}
}

// NewInvalidCharacterError creates an InvalidCharacter error for the
// character at pos.
func NewInvalidCharacterError(ch rune, pos int) *FormulaError {
	return &FormulaError{Kind: KindInvalidCharacter, Message: fmt.Sprintf("formula contains invalid character %q", ch), Pos: pos}
}

// NewLimitError creates an InvalidCharacter-class error for formulas that
// exceed a size bound.
func NewLimitError(msg string) *FormulaError {
	return &FormulaError{Kind: KindInvalidCharacter, Message: msg, Pos: -1}
}

// NewUnbalancedParenthesesError creates an UnbalancedParentheses error.
func NewUnbalancedParenthesesError(msg string, pos int) *FormulaError {
	return &FormulaError{Kind: KindUnbalancedParentheses, Message: msg, Pos: pos}
}

// NewMalformedError creates a MalformedExpression error.
func NewMalformedError(msg string, pos int) *FormulaError {
	return &FormulaError{Kind: KindMalformedExpression, Message: msg, Pos: pos}
}

// NewUnboundVariableError creates an UnboundVariable error.
func NewUnboundVariableError(name string) *FormulaError {
	return &FormulaError{Kind: KindUnboundVariable, Message: fmt.Sprintf("variable '%s' has no value", name), Pos: -1}
}

// NewDivisionByZeroError creates a DivisionByZero error.
func NewDivisionByZeroError() *FormulaError {
	return &FormulaError{Kind: KindDivisionByZero, Message: "division by zero", Pos: -1}
}

// NewMathDomainError creates a MathDomainError.
func NewMathDomainError(fn string, arg float64) *FormulaError {
	return &FormulaError{Kind: KindMathDomainError, Message: fmt.Sprintf("%s(%g) is outside the function's domain", fn, arg), Pos: -1}
}

// NewNonFiniteError creates a NonFiniteResult error.
func NewNonFiniteError(what string) *FormulaError {
	return &FormulaError{Kind: KindNonFiniteResult, Message: fmt.Sprintf("%s produced a non-finite result", what), Pos: -1}
}

// Issue describes one verification failure. StepIndex is set by the
// solution grader; single-step verification leaves it nil.
type Issue struct {
	Kind      Kind   `json:"type" yaml:"type"`
	Message   string `json:"message" yaml:"message"`
	StepIndex *int   `json:"stepIndex,omitempty" yaml:"stepIndex,omitempty"`
}

// NewIssue creates an Issue with a formatted message.
func NewIssue(kind Kind, format string, args ...any) Issue {
	return Issue{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// IssueFromError converts err into an Issue. Errors that are not
// *FormulaError become KindInternal issues.
func IssueFromError(err error) Issue {
	var fe *FormulaError
	if errors.As(err, &fe) {
		return Issue{Kind: fe.Kind, Message: fe.Message}
	}
	return Issue{Kind: KindInternal, Message: err.Error()}
}

// AtStep returns a copy of i stamped with the step index.
func (i Issue) AtStep(idx int) Issue {
	i.StepIndex = &idx
	return i
}

// String returns a one-line rendering of the issue.
func (i Issue) String() string {
	if i.StepIndex != nil {
		return fmt.Sprintf("step %d: %s: %s", *i.StepIndex, i.Kind, i.Message)
	}
	return fmt.Sprintf("%s: %s", i.Kind, i.Message)
}
