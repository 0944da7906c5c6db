// Package formula implements the formula language used for physics and
// algebra steps: a tokenizer, a shunting-yard parser, a closed numeric
// evaluator, an identifier resolver and a linear isolator.
package formula

// TokenType represents the type of a lexical token.
type TokenType int

const (
	TokenNumber TokenType = iota // numeric literal
	TokenIdent                   // identifier (variable, constant or function name)

	// Operators
	TokenPlus  // +
	TokenMinus // -
	TokenStar  // *
	TokenSlash // /
	TokenCaret // ^

	// Grouping
	TokenLParen // (
	TokenRParen // )
	TokenComma  // ,
)

// Token represents a single lexical token.
type Token struct {
	Type  TokenType
	Value string  // raw text
	Num   float64 // parsed value (for TokenNumber)
	Pos   int     // position in source
}

// String returns a debug-friendly representation of the token type.
func (t TokenType) String() string {
	switch t {
	case TokenNumber:
		return "NUMBER"
	case TokenIdent:
		return "IDENT"
	case TokenPlus:
		return "PLUS"
	case TokenMinus:
		return "MINUS"
	case TokenStar:
		return "STAR"
	case TokenSlash:
		return "SLASH"
	case TokenCaret:
		return "CARET"
	case TokenLParen:
		return "LPAREN"
	case TokenRParen:
		return "RPAREN"
	case TokenComma:
		return "COMMA"
	default:
		return "UNKNOWN"
	}
}

// isOperator reports whether t is one of + - * / ^.
func (t TokenType) isOperator() bool {
	switch t {
	case TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenCaret:
		return true
	}
	return false
}
