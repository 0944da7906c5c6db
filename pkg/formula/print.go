package formula

import (
	"strconv"
	"strings"
)

const (
	precAdd = iota + 1
	precMul
	precNeg
	precPow
	precAtom
)

func nodePrecedence(node Node) int {
	switch n := node.(type) {
	case *BinaryNode:
		switch n.Op {
		case OpAdd, OpSub:
			return precAdd
		case OpMul, OpDiv:
			return precMul
		default:
			return precPow
		}
	case *UnaryNode:
		return precNeg
	default:
		return precAtom
	}
}

// String renders node as formula text with the fewest parentheses that
// keep the tree shape when parsed again.
func String(node Node) string {
	var sb strings.Builder
	writeNode(&sb, node)
	return sb.String()
}

// String renders the formula from its AST.
func (f *Formula) String() string {
	if f.IsEquation() {
		return String(f.LHS) + " = " + String(f.RHS)
	}
	return String(f.Expr)
}

func writeNode(sb *strings.Builder, node Node) {
	switch n := node.(type) {
	case *LiteralNode:
		s := strconv.FormatFloat(n.Value, 'g', -1, 64)
		if n.Value < 0 {
			s = "(" + s + ")"
		}
		sb.WriteString(s)
	case *VariableNode:
		sb.WriteString(n.Name)
	case *CallNode:
		sb.WriteString(n.Func)
		sb.WriteByte('(')
		writeNode(sb, n.Arg)
		sb.WriteByte(')')
	case *UnaryNode:
		sb.WriteByte('-')
		writeOperand(sb, n.Operand, nodePrecedence(n.Operand) < precNeg)
	case *BinaryNode:
		prec := nodePrecedence(n)
		lp, rp := nodePrecedence(n.Left), nodePrecedence(n.Right)
		if n.Op == OpPow {
			// Right-associative: a ^ b ^ c is a ^ (b ^ c).
			writeOperand(sb, n.Left, lp <= prec)
			sb.WriteString(" ^ ")
			writeOperand(sb, n.Right, rp < prec)
			return
		}
		writeOperand(sb, n.Left, lp < prec)
		sb.WriteByte(' ')
		sb.WriteString(n.Op.String())
		sb.WriteByte(' ')
		writeOperand(sb, n.Right, rp <= prec)
	}
}

func writeOperand(sb *strings.Builder, node Node, parens bool) {
	if parens {
		sb.WriteByte('(')
	}
	writeNode(sb, node)
	if parens {
		sb.WriteByte(')')
	}
}
