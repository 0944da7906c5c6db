package formula

// Node is the interface for all formula AST nodes. Each node owns its
// children; trees are never shared between formulas.
type Node interface {
	nodeType() string
}

// Op is a binary arithmetic operator.
type Op byte

const (
	OpAdd Op = '+'
	OpSub Op = '-'
	OpMul Op = '*'
	OpDiv Op = '/'
	OpPow Op = '^'
)

// String returns the operator symbol.
func (o Op) String() string { return string(o) }

// LiteralNode represents a numeric literal.
type LiteralNode struct {
	Value float64
}

func (n *LiteralNode) nodeType() string { return "Literal" }

// VariableNode represents an identifier: a bound variable, a named
// constant or an unknown, depending on the scope it is resolved in.
type VariableNode struct {
	Name string
}

func (n *VariableNode) nodeType() string { return "Variable" }

// BinaryNode represents a binary operation (e.g., a + b, m * g).
type BinaryNode struct {
	Op    Op
	Left  Node
	Right Node
}

func (n *BinaryNode) nodeType() string { return "Binary" }

// UnaryNode represents negation.
type UnaryNode struct {
	Operand Node
}

func (n *UnaryNode) nodeType() string { return "Unary" }

// CallNode represents a call to a whitelisted single-argument function.
type CallNode struct {
	Func string
	Arg  Node
}

func (n *CallNode) nodeType() string { return "Call" }

// Formula is a parsed formula. A bare expression sets Expr; an equation
// sets LHS and RHS.
type Formula struct {
	Text string // normalized source text
	Expr Node
	LHS  Node
	RHS  Node
}

// IsEquation reports whether the formula contains '='.
func (f *Formula) IsEquation() bool {
	return f.LHS != nil && f.RHS != nil
}

// Clone returns a deep copy of node.
func Clone(node Node) Node {
	switch n := node.(type) {
	case *LiteralNode:
		return &LiteralNode{Value: n.Value}
	case *VariableNode:
		return &VariableNode{Name: n.Name}
	case *BinaryNode:
		return &BinaryNode{Op: n.Op, Left: Clone(n.Left), Right: Clone(n.Right)}
	case *UnaryNode:
		return &UnaryNode{Operand: Clone(n.Operand)}
	case *CallNode:
		return &CallNode{Func: n.Func, Arg: Clone(n.Arg)}
	default:
		return nil
	}
}
