package formula

import (
	"fmt"
	"strings"

	"github.com/lemonberrylabs/formula-verifier/pkg/types"
)

// MaxFormulaLength is the maximum allowed length of a normalized formula.
const MaxFormulaLength = 400

// MaxTokens bounds the token count of a formula, which in turn bounds the
// depth of the AST and of every recursive walk over it.
const MaxTokens = 128

// Normalize collapses runs of whitespace to a single space and trims the
// ends.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Parse validates and parses a formula. Validation runs before any
// tokenizing: emptiness, length, the character whitelist, parenthesis
// balance and the single '=' rule.
func Parse(input string) (*Formula, error) {
	text := Normalize(input)
	if err := Validate(text); err != nil {
		return nil, err
	}

	p := &Parser{}
	eq := strings.IndexByte(text, '=')
	if eq < 0 {
		expr, err := p.parseSide(text, 0)
		if err != nil {
			return nil, err
		}
		return &Formula{Text: text, Expr: expr}, nil
	}

	left, right := text[:eq], text[eq+1:]
	if strings.TrimSpace(left) == "" {
		return nil, types.NewMalformedError("equation is missing its left-hand side", eq)
	}
	if strings.TrimSpace(right) == "" {
		return nil, types.NewMalformedError("equation is missing its right-hand side", eq)
	}
	if err := checkParens(left, 0); err != nil {
		return nil, err
	}
	if err := checkParens(right, eq+1); err != nil {
		return nil, err
	}

	lhs, err := p.parseSide(left, 0)
	if err != nil {
		return nil, err
	}
	rhs, err := p.parseSide(right, eq+1)
	if err != nil {
		return nil, err
	}
	return &Formula{Text: text, LHS: lhs, RHS: rhs}, nil
}

// ParseExpression parses a formula that must not contain '='.
func ParseExpression(input string) (Node, error) {
	f, err := Parse(input)
	if err != nil {
		return nil, err
	}
	if f.IsEquation() {
		return nil, types.NewMalformedError("expected an expression, got an equation", strings.IndexByte(f.Text, '='))
	}
	return f.Expr, nil
}

// Validate runs the structural checks Parse performs before tokenizing.
// text must already be normalized.
func Validate(text string) error {
	if text == "" {
		return types.NewEmptyFormulaError()
	}
	if len(text) > MaxFormulaLength {
		return types.NewLimitError(fmt.Sprintf("formula exceeds maximum length of %d characters", MaxFormulaLength))
	}
	for i, ch := range text {
		if !isAllowedChar(ch) {
			return types.NewInvalidCharacterError(ch, i)
		}
	}
	if err := checkParens(text, 0); err != nil {
		return err
	}
	if first := strings.IndexByte(text, '='); first >= 0 {
		if second := strings.IndexByte(text[first+1:], '='); second >= 0 {
			return types.NewMalformedError("formula may contain at most one '='", first+1+second)
		}
	}
	return nil
}

// isAllowedChar implements the character whitelist [0-9+\-*/().,^=\sA-Za-z_].
func isAllowedChar(ch rune) bool {
	if ch > 0x7f {
		return false
	}
	b := byte(ch)
	if isIdentPart(b) {
		return true
	}
	switch b {
	case '+', '-', '*', '/', '(', ')', '.', ',', '^', '=', ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

// checkParens verifies that nesting never goes negative and ends at zero.
func checkParens(s string, offset int) error {
	depth := 0
	last := -1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
			last = i
		case ')':
			depth--
			if depth < 0 {
				return types.NewUnbalancedParenthesesError("mismatched ')'", offset+i)
			}
		}
	}
	if depth != 0 {
		return types.NewUnbalancedParenthesesError("unclosed '('", offset+last)
	}
	return nil
}

// Parser builds expression trees with a two-stack shunting-yard pass.
// The token budget is shared by both sides of an equation.
type Parser struct {
	tokenCount int
}

// opKind distinguishes entries on the operator stack.
type opKind int

const (
	opBinary opKind = iota
	opNegate
	opCall
	opParen
)

type stackOp struct {
	kind opKind
	op   Op
	fn   string
	pos  int
}

// Precedence (low to high):
//
//	+, -        left-associative
//	*, /        left-associative
//	unary -     prefix
//	^           right-associative
func (s stackOp) precedence() int {
	switch s.kind {
	case opNegate:
		return 3
	case opBinary:
		switch s.op {
		case OpAdd, OpSub:
			return 1
		case OpMul, OpDiv:
			return 2
		case OpPow:
			return 4
		}
	}
	return 0
}

func (p *Parser) parseSide(src string, offset int) (Node, error) {
	lexer := NewLexer(src)
	lexer.offset = offset
	tokens, err := lexer.Tokenize()
	if err != nil {
		return nil, err
	}

	p.tokenCount += len(tokens)
	if p.tokenCount > MaxTokens {
		return nil, types.NewLimitError(fmt.Sprintf("formula exceeds maximum of %d tokens", MaxTokens))
	}
	if len(tokens) == 0 {
		return nil, types.NewMalformedError("expression has no operands", offset)
	}

	sy := &shuntingYard{}
	return sy.run(tokens, offset+len(src))
}

type shuntingYard struct {
	operands []Node
	ops      []stackOp
}

func (sy *shuntingYard) run(tokens []Token, end int) (Node, error) {
	expectOperand := true

	for i, tok := range tokens {
		switch tok.Type {
		case TokenNumber:
			if !expectOperand {
				return nil, types.NewMalformedError("missing operator before "+tok.Value, tok.Pos)
			}
			sy.operands = append(sy.operands, &LiteralNode{Value: tok.Num})
			expectOperand = false

		case TokenIdent:
			if !expectOperand {
				return nil, types.NewMalformedError("missing operator before "+tok.Value, tok.Pos)
			}
			if i+1 < len(tokens) && tokens[i+1].Type == TokenLParen && IsFunction(tok.Value) {
				sy.ops = append(sy.ops, stackOp{kind: opCall, fn: tok.Value, pos: tok.Pos})
				continue
			}
			sy.operands = append(sy.operands, &VariableNode{Name: tok.Value})
			expectOperand = false

		case TokenLParen:
			if !expectOperand {
				return nil, types.NewMalformedError("missing operator before '('", tok.Pos)
			}
			sy.ops = append(sy.ops, stackOp{kind: opParen, pos: tok.Pos})

		case TokenRParen:
			if expectOperand {
				return nil, types.NewMalformedError("missing operand before ')'", tok.Pos)
			}
			if err := sy.closeParen(tok.Pos); err != nil {
				return nil, err
			}

		case TokenPlus, TokenMinus:
			if expectOperand {
				if tok.Type == TokenMinus {
					sy.ops = append(sy.ops, stackOp{kind: opNegate, pos: tok.Pos})
				}
				continue
			}
			if err := sy.pushBinary(binaryOp(tok.Type), tok.Pos); err != nil {
				return nil, err
			}
			expectOperand = true

		case TokenStar, TokenSlash, TokenCaret:
			if expectOperand {
				return nil, types.NewMalformedError("missing operand before '"+tok.Value+"'", tok.Pos)
			}
			if err := sy.pushBinary(binaryOp(tok.Type), tok.Pos); err != nil {
				return nil, err
			}
			expectOperand = true

		default:
			return nil, types.NewMalformedError(fmt.Sprintf("unexpected %q", tok.Value), tok.Pos)
		}
	}

	if expectOperand {
		return nil, types.NewMalformedError("expression ends with an operator", end)
	}

	for len(sy.ops) > 0 {
		top := sy.ops[len(sy.ops)-1]
		if top.kind == opParen {
			return nil, types.NewUnbalancedParenthesesError("unclosed '('", top.pos)
		}
		if err := sy.apply(); err != nil {
			return nil, err
		}
	}

	if len(sy.operands) != 1 {
		return nil, types.NewMalformedError("expression does not reduce to a single value", end)
	}
	return sy.operands[0], nil
}

func binaryOp(tt TokenType) Op {
	switch tt {
	case TokenPlus:
		return OpAdd
	case TokenMinus:
		return OpSub
	case TokenStar:
		return OpMul
	case TokenSlash:
		return OpDiv
	default:
		return OpPow
	}
}

// pushBinary reduces stacked operators that bind at least as tightly as op
// (strictly tighter for the right-associative ^) and then pushes op.
func (sy *shuntingYard) pushBinary(op Op, pos int) error {
	incoming := stackOp{kind: opBinary, op: op, pos: pos}
	prec := incoming.precedence()
	for len(sy.ops) > 0 {
		top := sy.ops[len(sy.ops)-1]
		if top.kind != opBinary && top.kind != opNegate {
			break
		}
		tp := top.precedence()
		if tp > prec || (tp == prec && op != OpPow) {
			if err := sy.apply(); err != nil {
				return err
			}
			continue
		}
		break
	}
	sy.ops = append(sy.ops, incoming)
	return nil
}

// closeParen reduces back to the matching '(' and applies a pending call.
func (sy *shuntingYard) closeParen(pos int) error {
	for {
		if len(sy.ops) == 0 {
			return types.NewUnbalancedParenthesesError("mismatched ')'", pos)
		}
		if sy.ops[len(sy.ops)-1].kind == opParen {
			break
		}
		if err := sy.apply(); err != nil {
			return err
		}
	}
	sy.ops = sy.ops[:len(sy.ops)-1]

	if len(sy.ops) > 0 && sy.ops[len(sy.ops)-1].kind == opCall {
		return sy.apply()
	}
	return nil
}

// apply pops the top operator and combines operands into a node.
func (sy *shuntingYard) apply() error {
	top := sy.ops[len(sy.ops)-1]
	sy.ops = sy.ops[:len(sy.ops)-1]

	switch top.kind {
	case opBinary:
		if len(sy.operands) < 2 {
			return types.NewMalformedError("missing operand for '"+top.op.String()+"'", top.pos)
		}
		right := sy.operands[len(sy.operands)-1]
		left := sy.operands[len(sy.operands)-2]
		sy.operands = sy.operands[:len(sy.operands)-2]
		sy.operands = append(sy.operands, &BinaryNode{Op: top.op, Left: left, Right: right})
	case opNegate, opCall:
		if len(sy.operands) < 1 {
			return types.NewMalformedError("missing operand", top.pos)
		}
		operand := sy.operands[len(sy.operands)-1]
		if top.kind == opNegate {
			sy.operands[len(sy.operands)-1] = &UnaryNode{Operand: operand}
		} else {
			sy.operands[len(sy.operands)-1] = &CallNode{Func: top.fn, Arg: operand}
		}
	default:
		return types.NewUnbalancedParenthesesError("unclosed '('", top.pos)
	}
	return nil
}
