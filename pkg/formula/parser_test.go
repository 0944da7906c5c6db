package formula

import (
	"errors"
	"strings"
	"testing"

	"github.com/lemonberrylabs/formula-verifier/pkg/types"
)

func TestParseShapes(t *testing.T) {
	tests := []struct {
		input string
		want  string // re-printed form
	}{
		{"1 + 2 * 3", "1 + 2 * 3"},
		{"(1 + 2) * 3", "(1 + 2) * 3"},
		{"a - b - c", "a - b - c"},
		{"a - (b - c)", "a - (b - c)"},
		{"a / b / c", "a / b / c"},
		{"a / (b * c)", "a / (b * c)"},
		{"2 ^ 3 ^ 2", "2 ^ 3 ^ 2"},
		{"(2 ^ 3) ^ 2", "(2 ^ 3) ^ 2"},
		{"-x ^ 2", "-x ^ 2"},
		{"(-x) ^ 2", "(-x) ^ 2"},
		{"-(a + b)", "-(a + b)"},
		{"a * -b", "a * -b"},
		{"+a", "a"},
		{"sqrt(x + 1)", "sqrt(x + 1)"},
		{"sin(theta)*cos(theta)", "sin(theta) * cos(theta)"},
		{"  u   +  a*t  ", "u + a * t"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			node, err := ParseExpression(tt.input)
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}
			if got := String(node); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParsePrecedenceTree(t *testing.T) {
	node, err := ParseExpression("u + a * t")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	add, ok := node.(*BinaryNode)
	if !ok || add.Op != OpAdd {
		t.Fatalf("expected '+' at the root, got %#v", node)
	}
	if v, ok := add.Left.(*VariableNode); !ok || v.Name != "u" {
		t.Errorf("expected u on the left, got %#v", add.Left)
	}
	mul, ok := add.Right.(*BinaryNode)
	if !ok || mul.Op != OpMul {
		t.Fatalf("expected '*' on the right, got %#v", add.Right)
	}
}

func TestParseEquation(t *testing.T) {
	f, err := Parse("v = u + a*t")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if !f.IsEquation() {
		t.Fatal("expected an equation")
	}
	if f.Text != "v = u + a*t" {
		t.Errorf("unexpected normalized text %q", f.Text)
	}
	if v, ok := f.LHS.(*VariableNode); !ok || v.Name != "v" {
		t.Errorf("unexpected LHS %#v", f.LHS)
	}
	if got := f.String(); got != "v = u + a * t" {
		t.Errorf("got %q", got)
	}
}

func TestParseUnknownFunctionIsNotACall(t *testing.T) {
	// f is not whitelisted, so "f(x)" is a variable next to a group.
	_, err := Parse("f(x)")
	if types.KindOf(err) != types.KindMalformedExpression {
		t.Fatalf("expected MalformedExpression, got %v", err)
	}

	node, err := ParseExpression("sqrt")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if _, ok := node.(*VariableNode); !ok {
		t.Errorf("bare function name should be a variable, got %#v", node)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input string
		kind  types.Kind
	}{
		{"", types.KindEmptyFormula},
		{"   \t\n ", types.KindEmptyFormula},
		{"v = u; process.exit()", types.KindInvalidCharacter},
		{"a $ b", types.KindInvalidCharacter},
		{"x = 2 π", types.KindInvalidCharacter},
		{"a == b", types.KindMalformedExpression},
		{"a = b = c", types.KindMalformedExpression},
		{"(a + b", types.KindUnbalancedParentheses},
		{"a + b)", types.KindUnbalancedParentheses},
		{")a(", types.KindUnbalancedParentheses},
		{"(a = b)", types.KindUnbalancedParentheses},
		{"= b", types.KindMalformedExpression},
		{"a =", types.KindMalformedExpression},
		{"3 +", types.KindMalformedExpression},
		{"a b", types.KindMalformedExpression},
		{"* a", types.KindMalformedExpression},
		{"()", types.KindMalformedExpression},
		{"2(3)", types.KindMalformedExpression},
		{"max(a, b)", types.KindMalformedExpression},
		{"a.b", types.KindMalformedExpression},
		{"x. + 1", types.KindMalformedExpression},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Parse(tt.input)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := types.KindOf(err); got != tt.kind {
				t.Errorf("got kind %s (%v), want %s", got, err, tt.kind)
			}
		})
	}
}

func TestParseInvalidCharacterPosition(t *testing.T) {
	_, err := Parse("v = u; x")
	var fe *types.FormulaError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FormulaError, got %v", err)
	}
	if fe.Pos != 5 {
		t.Errorf("got position %d, want 5", fe.Pos)
	}
}

func TestParseLimits(t *testing.T) {
	long := strings.Repeat("a", MaxFormulaLength+1)
	if _, err := Parse(long); types.KindOf(err) != types.KindInvalidCharacter {
		t.Errorf("expected length limit rejection, got %v", err)
	}

	// 65 operands joined by '+' is 129 tokens.
	many := strings.TrimSuffix(strings.Repeat("1+", 65), "+")
	if _, err := Parse(many); types.KindOf(err) != types.KindInvalidCharacter {
		t.Errorf("expected token limit rejection, got %v", err)
	}

	within := strings.TrimSuffix(strings.Repeat("1+", 64), "+")
	if _, err := Parse(within); err != nil {
		t.Errorf("expected %d tokens to parse, got %v", 127, err)
	}
}

func TestParseExpressionRejectsEquation(t *testing.T) {
	if _, err := ParseExpression("a = b"); types.KindOf(err) != types.KindMalformedExpression {
		t.Errorf("expected MalformedExpression, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  v  =\tu +\n a*t "); got != "v = u + a*t" {
		t.Errorf("got %q", got)
	}
}
