package formula

import (
	"fmt"
	"math"

	"github.com/lemonberrylabs/formula-verifier/pkg/types"
)

// zeroThreshold is the divisor magnitude below which division is refused.
// It is the smallest normal float64, so tiny physical quantities such as
// Planck's constant still divide.
const zeroThreshold = 0x1p-1022

// Evaluate reduces node to a finite number. Variables are looked up in
// scope first and in the named constants second. A nil scope binds
// nothing.
func Evaluate(node Node, scope Scope) (float64, error) {
	if scope == nil {
		scope = Env(nil)
	}
	v, err := eval(node, scope)
	if err != nil {
		return 0, err
	}
	return v, nil
}

func eval(node Node, scope Scope) (float64, error) {
	switch n := node.(type) {
	case *LiteralNode:
		if !isFinite(n.Value) {
			return 0, types.NewNonFiniteError("numeric literal")
		}
		return n.Value, nil
	case *VariableNode:
		return evalVariable(n, scope)
	case *BinaryNode:
		return evalBinary(n, scope)
	case *UnaryNode:
		v, err := eval(n.Operand, scope)
		if err != nil {
			return 0, err
		}
		return -v, nil
	case *CallNode:
		return evalCall(n, scope)
	default:
		return 0, fmt.Errorf("unsupported formula node type: %T", node)
	}
}

func evalVariable(n *VariableNode, scope Scope) (float64, error) {
	if v, ok := scope.Lookup(n.Name); ok {
		if !isFinite(v) {
			return 0, types.NewNonFiniteError("variable '" + n.Name + "'")
		}
		return v, nil
	}
	if v, ok := NamedConstant(n.Name); ok {
		return v, nil
	}
	return 0, types.NewUnboundVariableError(n.Name)
}

func evalBinary(n *BinaryNode, scope Scope) (float64, error) {
	left, err := eval(n.Left, scope)
	if err != nil {
		return 0, err
	}
	right, err := eval(n.Right, scope)
	if err != nil {
		return 0, err
	}

	var result float64
	switch n.Op {
	case OpAdd:
		result = left + right
	case OpSub:
		result = left - right
	case OpMul:
		result = left * right
	case OpDiv:
		if math.Abs(right) < zeroThreshold {
			return 0, types.NewDivisionByZeroError()
		}
		result = left / right
	case OpPow:
		if left == 0 && right < 0 {
			return 0, types.NewDivisionByZeroError()
		}
		result = math.Pow(left, right)
		if math.IsNaN(result) {
			return 0, &types.FormulaError{
				Kind:    types.KindMathDomainError,
				Message: fmt.Sprintf("%g ^ %g is not a real number", left, right),
				Pos:     -1,
			}
		}
	default:
		return 0, fmt.Errorf("unsupported binary operator: %s", n.Op)
	}

	if !isFinite(result) {
		return 0, types.NewNonFiniteError(fmt.Sprintf("'%s'", n.Op))
	}
	return result, nil
}

func evalCall(n *CallNode, scope Scope) (float64, error) {
	fn, ok := functions[n.Func]
	if !ok {
		// The parser only builds calls for whitelisted names.
		return 0, fmt.Errorf("unknown function '%s'", n.Func)
	}
	arg, err := eval(n.Arg, scope)
	if err != nil {
		return 0, err
	}
	result, err := fn(arg)
	if err != nil {
		return 0, err
	}
	if !isFinite(result) {
		return 0, types.NewNonFiniteError(n.Func)
	}
	return result, nil
}

// EvaluateString parses and evaluates a bare expression.
func EvaluateString(input string, scope Scope) (float64, error) {
	node, err := ParseExpression(input)
	if err != nil {
		return 0, err
	}
	return Evaluate(node, scope)
}
