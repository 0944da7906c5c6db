package formula

import (
	"errors"
	"fmt"
)

// ErrNotIsolatable is returned by Isolate when no linear rewrite exists.
var ErrNotIsolatable = errors.New("variable cannot be isolated")

// Isolate rewrites an equation as target = expression by moving the other
// operand of each operator on the target's path across the '=' with its
// inverse:
//
//	A + B = R  ->  A = R - B      B = R - A
//	A - B = R  ->  A = R + B      B = A - R
//	A * B = R  ->  A = R / B      B = R / A
//	A / B = R  ->  A = R * B      B = A / R
//	-A = R     ->  A = -R
//
// The target must occur exactly once and never under a function call or
// an exponent. The input formula is not modified.
func Isolate(f *Formula, target string) (*Formula, error) {
	if f == nil || !f.IsEquation() {
		return nil, fmt.Errorf("%w: formula is not an equation", ErrNotIsolatable)
	}

	inLHS, inRHS := Occurrences(f.LHS, target), Occurrences(f.RHS, target)
	switch total := inLHS + inRHS; {
	case total == 0:
		return nil, fmt.Errorf("%w: '%s' does not appear in the equation", ErrNotIsolatable, target)
	case total > 1:
		return nil, fmt.Errorf("%w: '%s' appears %d times", ErrNotIsolatable, target, total)
	}

	side, other := Clone(f.LHS), Clone(f.RHS)
	if inRHS == 1 {
		side, other = other, side
	}

	for {
		switch n := side.(type) {
		case *VariableNode:
			rhs := other
			lhs := &VariableNode{Name: target}
			return &Formula{Text: target + " = " + String(rhs), LHS: lhs, RHS: rhs}, nil

		case *UnaryNode:
			side, other = n.Operand, &UnaryNode{Operand: other}

		case *BinaryNode:
			var err error
			side, other, err = invert(n, other, Occurrences(n.Left, target) > 0)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrNotIsolatable, err)
			}

		case *CallNode:
			return nil, fmt.Errorf("%w: '%s' is inside %s()", ErrNotIsolatable, target, n.Func)

		default:
			return nil, fmt.Errorf("%w: unexpected node %T", ErrNotIsolatable, side)
		}
	}
}

// invert undoes one binary operator. It returns the child holding the
// target and the new opposite side.
func invert(n *BinaryNode, r Node, targetInLeft bool) (Node, Node, error) {
	a, b := n.Left, n.Right
	switch n.Op {
	case OpAdd:
		if targetInLeft {
			return a, &BinaryNode{Op: OpSub, Left: r, Right: b}, nil
		}
		return b, &BinaryNode{Op: OpSub, Left: r, Right: a}, nil
	case OpSub:
		if targetInLeft {
			return a, &BinaryNode{Op: OpAdd, Left: r, Right: b}, nil
		}
		return b, &BinaryNode{Op: OpSub, Left: a, Right: r}, nil
	case OpMul:
		if targetInLeft {
			return a, &BinaryNode{Op: OpDiv, Left: r, Right: b}, nil
		}
		return b, &BinaryNode{Op: OpDiv, Left: r, Right: a}, nil
	case OpDiv:
		if targetInLeft {
			return a, &BinaryNode{Op: OpMul, Left: r, Right: b}, nil
		}
		return b, &BinaryNode{Op: OpDiv, Left: a, Right: r}, nil
	default:
		return nil, nil, fmt.Errorf("'%s' is not a linear operator", n.Op)
	}
}

// Rearrange parses input and isolates target. When isolation is not
// possible it returns input unchanged and false.
func Rearrange(input, target string) (string, bool) {
	f, err := Parse(input)
	if err != nil {
		return input, false
	}
	out, err := Isolate(f, target)
	if err != nil {
		return input, false
	}
	return out.Text, true
}
