package formula

import (
	"errors"
	"strconv"
	"unicode"

	"github.com/lemonberrylabs/formula-verifier/pkg/types"
)

// Lexer tokenizes one side of a formula.
type Lexer struct {
	input  string
	pos    int
	offset int // position of input within the full formula
	tokens []Token
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize scans the entire input and returns all tokens. Characters that
// do not start a token are skipped; Parse rejects them beforehand.
func (l *Lexer) Tokenize() ([]Token, error) {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]

		switch {
		case unicode.IsSpace(rune(ch)):
			l.pos++
		case isDigit(ch) || (ch == '.' && l.pos+1 < len(l.input) && isDigit(l.input[l.pos+1])):
			tok, err := l.readNumber()
			if err != nil {
				return nil, err
			}
			l.tokens = append(l.tokens, tok)
		case isIdentStart(ch):
			l.tokens = append(l.tokens, l.readIdentifier())
		case ch == '.':
			return nil, types.NewMalformedError("unexpected '.'", l.offset+l.pos)
		default:
			if tt, ok := singleCharTokens[ch]; ok {
				l.tokens = append(l.tokens, Token{Type: tt, Value: string(ch), Pos: l.offset + l.pos})
			}
			l.pos++
		}
	}
	return l.tokens, nil
}

var singleCharTokens = map[byte]TokenType{
	'+': TokenPlus,
	'-': TokenMinus,
	'*': TokenStar,
	'/': TokenSlash,
	'^': TokenCaret,
	'(': TokenLParen,
	')': TokenRParen,
	',': TokenComma,
}

// readNumber reads a decimal literal with at most one '.' and an optional
// exponent suffix such as e-34.
func (l *Lexer) readNumber() (Token, error) {
	start := l.pos
	seenDot := false

	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if isDigit(ch) {
			l.pos++
		} else if ch == '.' && !seenDot {
			seenDot = true
			l.pos++
		} else {
			break
		}
	}

	if n := l.exponentLen(); n > 0 {
		l.pos += n
	}

	raw := l.input[start:l.pos]
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return Token{}, types.NewMalformedError("invalid number "+strconv.Quote(raw), l.offset+start)
	}
	// Out-of-range literals keep their ±Inf/0 value; evaluation reports them.
	return Token{Type: TokenNumber, Value: raw, Num: f, Pos: l.offset + start}, nil
}

// exponentLen returns the length of an exponent suffix at the current
// position, or 0 when the next 'e' starts an identifier instead.
func (l *Lexer) exponentLen() int {
	i := l.pos
	if i >= len(l.input) || (l.input[i] != 'e' && l.input[i] != 'E') {
		return 0
	}
	i++
	if i < len(l.input) && (l.input[i] == '+' || l.input[i] == '-') {
		i++
	}
	if i >= len(l.input) || !isDigit(l.input[i]) {
		return 0
	}
	for i < len(l.input) && isDigit(l.input[i]) {
		i++
	}
	if i < len(l.input) && isIdentPart(l.input[i]) {
		// "2e3x" is not a number followed by x; leave it to the parser.
		return 0
	}
	return i - l.pos
}

// readIdentifier reads an identifier.
func (l *Lexer) readIdentifier() Token {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
		l.pos++
	}
	return Token{Type: TokenIdent, Value: l.input[start:l.pos], Pos: l.offset + start}
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
